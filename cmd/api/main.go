package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printcalc_backend/internal/estimates"
	estimatesvc "printcalc_backend/internal/estimates/service"
	domainevents "printcalc_backend/internal/events"
	apphttp "printcalc_backend/internal/http"
	"printcalc_backend/internal/http/router"
	"printcalc_backend/internal/scheduler"
	"printcalc_backend/internal/slicing"
	"printcalc_backend/internal/storage"
	"printcalc_backend/internal/tenants"
	"printcalc_backend/platform/config"
	"printcalc_backend/platform/db"
	"printcalc_backend/platform/events"
	"printcalc_backend/platform/logger"
	"printcalc_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	domainevents.SubscribeAuditLog(eventBus, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage for model uploads and G-code artifacts (MinIO)
	var store storage.ObjectStore
	if cfg.IsMinIOEnabled() {
		s, err := storage.NewMinIOStore(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize storage", "error", err)
			panic("failed to initialize storage: " + err.Error())
		}
		store = s
		log.Info("storage initialized",
			"modelsBucket", cfg.GetMinIOBucketModels(), "gcodeBucket", cfg.GetMinIOBucketGCode())
	} else {
		log.Warn("MinIO not configured; queued estimates and gcode archival disabled")
	}

	// Slicing backend chain
	chain, closeChain := slicing.BuildChain(ctx, cfg, log)
	defer closeChain()
	orchestrator := slicing.NewOrchestrator(log, chain...)

	// Job queue client for queued estimates
	var queue estimatesvc.Enqueuer
	if cfg.GetRedisURL() != "" {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
		} else {
			queue = client
			defer client.Close()
		}
	} else {
		log.Warn("REDIS_URL not configured; queued estimates disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	tenantsModule := tenants.NewModule(pool, eventBus, val, log)
	estimatesModule := estimates.NewModule(pool, orchestrator, tenantsModule.Service(),
		store, queue, eventBus, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			tenantsModule,
			estimatesModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		delay := baseDelay * time.Duration(attempt)
		log.Warn("retrying after failure", "operation", name, "attempt", attempt, "delay", delay.String(), "error", lastErr.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
