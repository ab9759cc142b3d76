package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taleweave/internal/embedtoken"
	"taleweave/internal/platform/config"
	"taleweave/internal/platform/database"
	"taleweave/internal/platform/logger"
	"taleweave/internal/platform/middleware"
	"taleweave/internal/story"
	syndicationhandler "taleweave/internal/syndication/handler"
	syndicationmetrics "taleweave/internal/syndication/metrics"
	syndicationservice "taleweave/internal/syndication/service"
	syndicationstore "taleweave/internal/syndication/store"
	"taleweave/internal/syndication/worker"
	"taleweave/internal/webhook/delivery"
	webhookhandler "taleweave/internal/webhook/handler"
	webhookmetrics "taleweave/internal/webhook/metrics"
	webhookservice "taleweave/internal/webhook/service"
	webhookstore "taleweave/internal/webhook/store"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing taleweave syndication core", "addr", cfg.Addr)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database initialization failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close() //nolint:errcheck // best-effort on shutdown

	// Stores fall back to memory when no database is configured.
	var (
		hooks     webhookFullStore
		consents  syndicationservice.ConsentStore
		directory syndicationservice.StoryDirectory
	)
	if pool.DB() != nil {
		hooks = webhookstore.NewPostgres(pool.DB())
		consents = syndicationstore.NewPostgres(pool.DB())
		directory = story.NewPostgres(pool.DB())
		log.Info("using postgres stores")
	} else {
		hooks = webhookstore.New()
		consents = syndicationstore.New()
		directory = story.NewMemory()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	hookMetrics := webhookmetrics.New(prometheus.DefaultRegisterer)
	consentMetrics := syndicationmetrics.New(prometheus.DefaultRegisterer)

	executor := delivery.New(delivery.WithTimeout(cfg.WebhookTimeout))
	notifier := webhookservice.New(hooks, hooks, executor, log,
		webhookservice.WithMetrics(hookMetrics),
	)
	admin := webhookservice.NewAdmin(hooks, log)

	issuer := embedtoken.New([]byte(cfg.EmbedSigningKey), embedtoken.WithTTL(cfg.EmbedTokenTTL))
	consentSvc := syndicationservice.New(consents, directory, notifier, log,
		syndicationservice.WithMetrics(consentMetrics),
		syndicationservice.WithTokenIssuer(issuer),
	)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(60 * time.Second))

	syndicationhandler.New(consentSvc, log).Register(router)
	webhookhandler.New(admin, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Health(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Expiry sweep runs for the life of the process.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	sweep := worker.New(consentSvc,
		worker.WithLogger(log),
		worker.WithInterval(cfg.ExpirySweep),
		worker.WithMetrics(consentMetrics),
	)
	go func() {
		if err := sweep.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("expiry worker stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// webhookFullStore is the union of the delivery pipeline's and the admin
// API's registry needs, satisfied by both store implementations.
type webhookFullStore interface {
	webhookservice.SubscriptionStore
	webhookservice.DeliveryLog
	webhookservice.AdminStore
}
