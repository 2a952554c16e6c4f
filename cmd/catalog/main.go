// Package main runs the catalog's write-path worker: Resource/Graph/Search
// stores behind the Catalog Coordinator, the Kafka-backed Event Producer and
// Consumer, the dead-letter subsystem, and a thin ops healthcheck — no
// REST API is mounted here (see SPEC_FULL.md §1).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/correlator-io/catalog/internal/aliasing"
	"github.com/correlator-io/catalog/internal/coordinator"
	"github.com/correlator-io/catalog/internal/eventbus/consumer"
	"github.com/correlator-io/catalog/internal/eventbus/deadletter"
	"github.com/correlator-io/catalog/internal/eventbus/envelope"
	"github.com/correlator-io/catalog/internal/eventbus/producer"
	"github.com/correlator-io/catalog/internal/eventbus/schemaregistry"
	"github.com/correlator-io/catalog/internal/graphstore"
	"github.com/correlator-io/catalog/internal/resourcestore"
	"github.com/correlator-io/catalog/internal/searchindex"
	"github.com/correlator-io/catalog/internal/telemetry"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "catalog"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("starting catalog coordinator", "service", name, "version", version)

	if err := run(logger); err != nil {
		logger.Error("catalog coordinator exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("catalog coordinator stopped")
}

func run(logger *slog.Logger) error {
	resourceCfg := resourcestore.LoadConfig()
	if err := resourceCfg.Validate(); err != nil {
		return err
	}

	graphCfg := graphstore.LoadConfig()
	if err := graphCfg.Validate(); err != nil {
		return err
	}

	searchCfg := searchindex.LoadConfig()
	if err := searchCfg.Validate(); err != nil {
		return err
	}

	coordinatorCfg := coordinator.LoadConfig()
	if err := coordinatorCfg.Validate(); err != nil {
		return err
	}

	producerCfg := producer.LoadConfig()
	if err := producerCfg.Validate(); err != nil {
		return err
	}

	consumerCfg := consumer.LoadConfig()
	if err := consumerCfg.Validate(); err != nil {
		return err
	}

	dlqCfg := deadletter.LoadConfig()
	if err := dlqCfg.Validate(); err != nil {
		return err
	}

	metrics := telemetry.New(prometheus.NewRegistry())

	resourceConn, err := resourcestore.NewConnection(resourceCfg)
	if err != nil {
		return err
	}

	resourceStore := resourcestore.NewPostgresStore(resourceConn)

	aliasCfg, err := aliasing.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	resourceStore.SetAliasResolver(aliasing.NewResolver(aliasCfg))

	graphStore, err := graphstore.NewNeo4jStore(graphCfg)
	if err != nil {
		return err
	}

	searchStore, err := searchindex.NewRedisStore(searchCfg)
	if err != nil {
		return err
	}

	dlqHandler, err := deadletter.New(dlqCfg, metrics, logger)
	if err != nil {
		return err
	}

	pub, err := producer.New(producerCfg, schemaregistry.NewRegistry(), metrics, logger)
	if err != nil {
		return err
	}

	registry := consumer.NewRegistry()
	registerAuditHandlers(registry, logger)

	cons, err := consumer.New(consumerCfg, registry, dlqHandler, metrics, logger)
	if err != nil {
		return err
	}

	coord := coordinator.New(resourceStore, graphStore, searchStore, pub, coordinatorCfg, metrics, logger)

	if err := cons.Start([]string{coordinatorCfg.EventsTopic}); err != nil {
		return err
	}

	httpServer := newHealthServer(resourceStore, graphStore, searchStore, logger)

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("healthcheck server listening", "address", httpServer.Addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	_ = coord // exercised by tests and, eventually, an ingestion-facing caller; kept wired and running here

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-stop:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	return shutdown(logger, httpServer, cons, pub, dlqHandler, resourceStore, graphStore, searchStore)
}

func shutdown(
	logger *slog.Logger,
	httpServer *http.Server,
	cons *consumer.Consumer,
	pub *producer.Producer,
	dlqHandler *deadletter.Handler,
	resourceStore *resourcestore.PostgresStore,
	graphStore *graphstore.Neo4jStore,
	searchStore *searchindex.RedisStore,
) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("healthcheck server shutdown failed", "error", err)
	}

	if err := cons.Stop(ctx); err != nil {
		logger.Warn("consumer stop failed", "error", err)
	}

	if err := pub.Flush(10 * time.Second); err != nil {
		logger.Warn("producer flush timed out", "error", err)
	}

	for _, closer := range []struct {
		name string
		fn   func() error
	}{
		{"producer", pub.Close},
		{"dead-letter handler", dlqHandler.Close},
		{"resource store", resourceStore.Close},
		{"graph store", graphStore.Close},
		{"search index", searchStore.Close},
	} {
		if err := closer.fn(); err != nil {
			logger.Warn("close failed", "component", closer.name, "error", err)
		}
	}

	return nil
}

// registerAuditHandlers wires one handler per coordinator-emitted event type
// (spec §6) that logs receipt — the minimal in-process consumer of the
// catalog's own event stream this worker owns, standing in for whatever
// downstream audit/search-rebuild consumer the deployment adds later.
func registerAuditHandlers(registry *consumer.Registry, logger *slog.Logger) {
	resourceHandler := func(ctx context.Context, payload coordinator.ResourceEvent, meta envelope.Metadata) error {
		logger.Info("observed resource event",
			"id", payload.ID, "type", payload.Type, "name", payload.Name, "correlationId", meta.CorrelationID)

		return nil
	}

	relationshipHandler := func(ctx context.Context, payload coordinator.RelationshipEvent, meta envelope.Metadata) error {
		logger.Info("observed relationship event",
			"id", payload.ID, "type", payload.Type, "correlationId", meta.CorrelationID)

		return nil
	}

	for _, eventType := range []string{
		coordinator.EventResourceCreated,
		coordinator.EventResourceUpdated,
		coordinator.EventResourceDeleted,
	} {
		if err := consumer.Register(registry, eventType, resourceHandler); err != nil {
			logger.Warn("handler registration failed", "eventType", eventType, "error", err)
		}
	}

	for _, eventType := range []string{
		coordinator.EventRelationshipCreated,
		coordinator.EventRelationshipDeleted,
	} {
		if err := consumer.Register(registry, eventType, relationshipHandler); err != nil {
			logger.Warn("handler registration failed", "eventType", eventType, "error", err)
		}
	}
}

// healthStatus mirrors the teacher's api.HealthStatus shape without pulling
// in the HTTP API package (SPEC_FULL.md §1: no REST layer here).
type healthStatus struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Resources string `json:"resources"`
	Graph     string `json:"graph"`
	Search    string `json:"search"`
}

func newHealthServer(
	resourceStore *resourcestore.PostgresStore,
	graphStore *graphstore.Neo4jStore,
	searchStore *searchindex.RedisStore,
	logger *slog.Logger,
) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := healthStatus{Status: "healthy", Service: name, Version: version}
		healthy := true

		if err := resourceStore.HealthCheck(ctx); err != nil {
			status.Resources = err.Error()
			healthy = false
		} else {
			status.Resources = "ok"
		}

		if err := graphStore.HealthCheck(ctx); err != nil {
			status.Graph = err.Error()
			healthy = false
		} else {
			status.Graph = "ok"
		}

		if err := searchStore.HealthCheck(ctx); err != nil {
			status.Search = err.Error()
			healthy = false
		} else {
			status.Search = "ok"
		}

		w.Header().Set("Content-Type", "application/json")

		if !healthy {
			status.Status = "degraded"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Error("failed to encode health response", "error", err)
		}
	})

	return &http.Server{
		Addr:         healthAddr(),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func healthAddr() string {
	if addr := os.Getenv("CATALOG_HEALTH_ADDR"); addr != "" {
		return addr
	}

	return ":8090"
}
