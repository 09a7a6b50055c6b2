package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/R3E-Network/envsensor-gateway/internal/logging"
	"github.com/R3E-Network/envsensor-gateway/internal/metrics"
)

// responseWriter wraps http.ResponseWriter to capture the status code for
// logging and metrics after the handler has run.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// requestLogMiddleware assigns a request id, logs the completed request,
// and records Prometheus metrics against routeTemplate(r): the request
// path with identifier-looking segments collapsed to {id}, which limits
// label cardinality.
func requestLogMiddleware(log *logging.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = logging.NewRequestID()
			}
			ctx := logging.WithRequestID(r.Context(), reqID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", reqID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			route := routeTemplate(r)
			log.LogRequest(ctx, r.Method, route, wrapped.statusCode, duration)
			if m != nil {
				m.ObserveRequest(route, r.Method, wrapped.statusCode, duration)
			}
		})
	}
}

// recoveryMiddleware converts a panic into a 500 response instead of
// tearing down the server.
func recoveryMiddleware(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithContext(r.Context()).WithFields(map[string]interface{}{
						"panic": fmt.Sprintf("%v", rec),
						"stack": string(debug.Stack()),
						"path":  r.URL.Path,
					}).Error("panic recovered")
					writeInternalError(w, r)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware applies a single configured allowed origin, or "*" when
// CORSAllowedOrigin is unset.
func corsMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
			w.Header().Set("Access-Control-Max-Age", "3600")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func routeTemplate(r *http.Request) string {
	path := r.URL.Path
	// Collapse segments of at least 8 characters that contain a digit, so
	// /devices/ab12cd34 and /devices/ef56ab78 aggregate under one metrics
	// series. Shorter or digit-free segments (e.g. an all-letter MAC such
	// as AA:BB:CC:DD:EE:FF) are kept as they are.
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if i > 0 && looksLikeIdentifier(p) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func looksLikeIdentifier(segment string) bool {
	return len(segment) >= 8 && strings.ContainsAny(segment, "0123456789")
}
