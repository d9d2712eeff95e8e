// Package berryservice assembles and runs the memory service.
package berryservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/geoffjay/berry/internal/api"
	"github.com/geoffjay/berry/internal/api/recovery"
	"github.com/geoffjay/berry/internal/config"
	"github.com/geoffjay/berry/internal/embeddings"
	"github.com/geoffjay/berry/internal/factory"
	"github.com/geoffjay/berry/internal/health"
	"github.com/geoffjay/berry/internal/logger"
	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/search"
	"github.com/geoffjay/berry/internal/services"
	"github.com/geoffjay/berry/internal/store"
	"github.com/geoffjay/berry/internal/vectorstore"
)

// Run starts the berry HTTP server and blocks until shutdown or error.
// buildTarget, when non-empty, overrides the BUILD_TARGET environment value.
func Run(buildTarget string) error {
	log := logger.New("berry-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	if buildTarget != "" {
		cfg.BuildTarget = buildTarget
		cfg.VectorStore = "auto"
		if err := cfg.ResolveDefaults(); err != nil {
			log.Error().Err(err).Msg("Invalid build-target override")
			return err
		}
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("vector_store", cfg.VectorStore).
		Int("http_port", cfg.HTTPPort).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Msg("Berry service starting")

	// Cancellable root context bound to SIGINT/SIGTERM.
	ctx, stop := newServerContext()
	defer stop()

	vs, embedder, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Start health checkers before the router so the health endpoint can
	// read the aggregate flag.
	svcHealth := startHealthCheckers(ctx, cfg, log, vs, embedder)

	router := buildRouter(vs, embedder, svcHealth.IsHealthy, cfg, log)

	// Block startup until dependencies report healthy; fail fast otherwise.
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs the embedder and vector store, failing fast
// when either is unavailable.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (vectorstore.Store, embeddings.Embedder, error) {
	embedder := factory.NewEmbeddingProvider(cfg, log)
	if embedder == nil {
		return nil, nil, fmt.Errorf("embedding provider not configured")
	}

	vs, err := factory.NewVectorStore(ctx, cfg, embedder, log)
	if err != nil {
		log.Error().Err(err).Msg("Vector store unavailable")
		return nil, nil, err
	}
	return vs, embedder, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(vs vectorstore.Store, embedder embeddings.Embedder, isHealthy func() bool, cfg *config.Config, log zerolog.Logger) *mux.Router {
	adapter := store.New(vs, log)
	engine := search.NewEngine(adapter, embedder, cfg.AdminActor, cfg.SearchOverfetchFactor, log)
	svc := services.NewMemoryService(adapter, engine, cfg.AdminActor, model.MemoryType(cfg.DefaultType), log)

	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	memory := api.NewMemoryHandler(svc, cfg.DefaultActor)
	root.HandleFunc("/api/memories", memory.CreateMemory).Methods("POST")
	root.HandleFunc("/api/memories/{id}", memory.GetMemory).Methods("GET")
	root.HandleFunc("/api/memories/{id}", memory.DeleteMemory).Methods("DELETE")
	root.HandleFunc("/api/memories/{id}/visibility", memory.UpdateVisibility).Methods("PATCH")

	searchHandler := api.NewSearchHandler(svc)
	root.HandleFunc("/api/search", searchHandler.HandleSearch).Methods("POST")

	healthHandler := api.NewHealthHandler(isHealthy)
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	return root
}

// startHealthCheckers starts component checkers plus the service aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, vs vectorstore.Store, embedder embeddings.Embedder) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	var checkers []health.HealthChecker

	// Components without a probe get a nil pinger and count as healthy.
	var vsPinger health.Pinger
	if p, ok := vs.(health.Pinger); ok {
		vsPinger = p
	}
	vsChecker := health.NewPingChecker("vectorstore", vsPinger, log, probeTimeout)
	go vsChecker.Start(ctx, interval)
	checkers = append(checkers, vsChecker)

	var embPinger health.Pinger
	if p, ok := embedder.(health.Pinger); ok {
		embPinger = p
	}
	embChecker := health.NewPingChecker("embedder", embPinger, log, probeTimeout)
	go embChecker.Start(ctx, interval)
	checkers = append(checkers, embChecker)

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// startupHealthTimeout returns the startup window in seconds: twice the
// probe interval, floored at 60.
func startupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup
// window expires. Checkers start unhealthy and need one probe cycle.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := startupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a context cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
