// Command gateway runs the environmental sensor fleet ingress service:
// device registration, authenticated batch ingest, and the administrator
// API for devices, readings, and credentials.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/R3E-Network/envsensor-gateway/internal/adminauth"
	"github.com/R3E-Network/envsensor-gateway/internal/clock"
	"github.com/R3E-Network/envsensor-gateway/internal/config"
	"github.com/R3E-Network/envsensor-gateway/internal/credential"
	"github.com/R3E-Network/envsensor-gateway/internal/httpapi"
	"github.com/R3E-Network/envsensor-gateway/internal/idgen"
	"github.com/R3E-Network/envsensor-gateway/internal/ingest"
	"github.com/R3E-Network/envsensor-gateway/internal/logging"
	"github.com/R3E-Network/envsensor-gateway/internal/metrics"
	"github.com/R3E-Network/envsensor-gateway/internal/query"
	"github.com/R3E-Network/envsensor-gateway/internal/registry"
	"github.com/R3E-Network/envsensor-gateway/internal/storage/boltstore"
)

func main() {
	log := logging.NewFromEnv(httpapi.ServiceName)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if err := cfg.RequireDataPlane(); err != nil {
		log.WithError(err).Warn("data plane configuration incomplete; device requests will fail until resolved")
	}
	if err := cfg.RequireControlPlane(); err != nil {
		log.WithError(err).Warn("control plane configuration incomplete; admin requests will fail until resolved")
	}

	store, err := boltstore.Open(cfg.BoltDBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer store.Close()

	if err := store.StartReaper(cfg.ReapInterval); err != nil {
		log.WithError(err).Fatal("failed to start reaper")
	}

	sysClock := clock.System{}
	sysIDs := idgen.System{}

	reg := registry.New(store, sysClock, sysIDs)
	cred := credential.New(store, sysClock, sysIDs, cfg.APIKeyPepper, log)
	admin := adminauth.New(cfg.AdminToken)
	ing := ingest.New(store, sysClock, cfg.ReadingTTLSecs)
	qry := query.New(store, store, store)

	m := metrics.New(prometheus.DefaultRegisterer)

	server := httpapi.New(httpapi.Config{
		Registry:          reg,
		Credential:        cred,
		Admin:             admin,
		Ingest:            ing,
		Query:             qry,
		Clock:             sysClock,
		Logger:            log,
		Metrics:           m,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("gateway listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
