package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"printcalc_backend/internal/estimates"
	domainevents "printcalc_backend/internal/events"
	"printcalc_backend/internal/scheduler"
	"printcalc_backend/internal/slicing"
	"printcalc_backend/internal/storage"
	"printcalc_backend/internal/tenants"
	"printcalc_backend/platform/config"
	"printcalc_backend/platform/db"
	"printcalc_backend/platform/events"
	"printcalc_backend/platform/logger"
	"printcalc_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting estimate worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if !cfg.IsMinIOEnabled() {
		panic("MinIO must be configured for the estimate worker")
	}
	store, err := storage.NewMinIOStore(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize storage", "error", err)
		panic("failed to initialize storage: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	domainevents.SubscribeAuditLog(eventBus, log)
	val := validator.New()

	chain, closeChain := slicing.BuildChain(ctx, cfg, log)
	defer closeChain()
	orchestrator := slicing.NewOrchestrator(log, chain...)

	tenantsModule := tenants.NewModule(pool, eventBus, val, log)
	estimatesModule := estimates.NewModule(pool, orchestrator, tenantsModule.Service(),
		store, nil, eventBus, val, log)

	worker, err := scheduler.NewWorker(cfg, estimatesModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("estimate worker listening", "queue", cfg.GetAsynqQueueName(), "concurrency", cfg.GetAsynqConcurrency())
	worker.Run(ctx)
	log.Info("estimate worker stopped")
}
