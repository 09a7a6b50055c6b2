// Package httpapi is the Ingress Router: path normalization, method
// dispatch, the data-plane and control-plane handlers, and the uniform
// CORS/error-response post-processing that wraps every outgoing response.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/envsensor-gateway/internal/adminauth"
	"github.com/R3E-Network/envsensor-gateway/internal/apierr"
	"github.com/R3E-Network/envsensor-gateway/internal/clock"
	"github.com/R3E-Network/envsensor-gateway/internal/credential"
	"github.com/R3E-Network/envsensor-gateway/internal/ingest"
	"github.com/R3E-Network/envsensor-gateway/internal/logging"
	"github.com/R3E-Network/envsensor-gateway/internal/metrics"
	"github.com/R3E-Network/envsensor-gateway/internal/query"
	"github.com/R3E-Network/envsensor-gateway/internal/registry"
)

// ServiceName identifies this process in health responses and logs.
const ServiceName = "envsensor-gateway"

// Server wires the domain engines to HTTP handlers.
type Server struct {
	registry   *registry.Registry
	credential *credential.Engine
	admin      *adminauth.Checker
	ingest     *ingest.Engine
	query      *query.Engine
	clock      clock.Clock

	log     *logging.Logger
	metrics *metrics.Metrics

	corsAllowedOrigin string
}

// Config bundles the collaborators a Server needs.
type Config struct {
	Registry          *registry.Registry
	Credential        *credential.Engine
	Admin             *adminauth.Checker
	Ingest            *ingest.Engine
	Query             *query.Engine
	Clock             clock.Clock
	Logger            *logging.Logger
	Metrics           *metrics.Metrics
	CORSAllowedOrigin string
}

// New constructs a Server.
func New(cfg Config) *Server {
	return &Server{
		registry:          cfg.Registry,
		credential:        cfg.Credential,
		admin:             cfg.Admin,
		ingest:            cfg.Ingest,
		query:             cfg.Query,
		clock:             cfg.Clock,
		log:               cfg.Logger,
		metrics:           cfg.Metrics,
		corsAllowedOrigin: cfg.CORSAllowedOrigin,
	}
}

// pathPrefixes are optional reverse-proxy prefixes stripped before routing
// (spec §6 "Path normalization").
var pathPrefixes = []string{"/api/control", "/api/data"}

// normalizePath strips a recognized reverse-proxy prefix and any trailing
// slash (except on root "/").
func normalizePath(path string) string {
	for _, prefix := range pathPrefixes {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	if path == "" {
		path = "/"
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimRight(path, "/")
	}
	return path
}

func pathNormalizationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = normalizePath(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// Router builds the complete gorilla/mux handler, including the
// logging/recovery/CORS/path-normalization middleware chain.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)
	router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/data", s.handleIngest).Methods(http.MethodPost)

	router.HandleFunc("/api-keys", s.handleCreateCredential).Methods(http.MethodPost)
	router.HandleFunc("/api-keys", s.handleListCredentials).Methods(http.MethodGet)
	router.HandleFunc("/api-keys/{key_id}", s.handleRevokeCredential).Methods(http.MethodDelete)

	router.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)
	router.HandleFunc("/devices/{hardware_id}", s.handleGetDevice).Methods(http.MethodGet)
	router.HandleFunc("/devices/{hardware_id}/readings", s.handleListReadings).Methods(http.MethodGet)
	router.HandleFunc("/devices/{hardware_id}/latest", s.handleLatestReading).Methods(http.MethodGet)

	router.PathPrefix("/metrics").Handler(metrics.Handler())

	var handler http.Handler = router
	handler = corsMiddleware(s.corsAllowedOrigin)(handler)
	handler = recoveryMiddleware(s.log)(handler)
	handler = requestLogMiddleware(s.log, s.metrics)(handler)
	handler = pathNormalizationMiddleware(handler)
	return handler
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apierr.New(http.StatusNotFound, "NOT_FOUND", "route not found"))
}
