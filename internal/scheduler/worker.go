package scheduler

import (
	"context"
	"fmt"

	"printcalc_backend/platform/config"
	"printcalc_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// EstimateProcessor runs one queued estimate to completion.
type EstimateProcessor interface {
	ProcessQueued(ctx context.Context, tenantID, estimateID uuid.UUID) error
}

// Worker consumes estimate jobs from the asynq queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor EstimateProcessor
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor EstimateProcessor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		processor: processor,
		log:       log,
	}

	mux.HandleFunc(TaskEstimateJob, w.handleEstimateJob)

	return w, nil
}

func (w *Worker) handleEstimateJob(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEstimateJobPayload(task)
	if err != nil {
		return err
	}

	estimateID, err := uuid.Parse(payload.EstimateID)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	w.log.Info("processing estimate job", "estimate_id", payload.EstimateID, "tenant_id", payload.TenantID)
	return w.processor.ProcessQueued(ctx, tenantID, estimateID)
}

// Run blocks until ctx is cancelled, then drains the server.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
