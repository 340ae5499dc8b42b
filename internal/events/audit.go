package events

import (
	"context"

	platform "printcalc_backend/platform/events"
	"printcalc_backend/platform/logger"
)

// SubscribeAuditLog attaches a structured log line to every estimate
// outcome, giving operators a flat audit trail without querying the
// database.
func SubscribeAuditLog(bus platform.Bus, log *logger.Logger) {
	bus.Subscribe(EstimateCompleted{}.EventName(), platform.HandlerFunc(
		func(ctx context.Context, event platform.Event) error {
			e, ok := event.(EstimateCompleted)
			if !ok {
				return nil
			}
			log.Info("estimate completed",
				"tenant_id", e.TenantID.String(),
				"estimate_id", e.EstimateID.String(),
				"backend", e.Backend,
				"estimated", e.Estimated,
				"total", e.Total,
			)
			return nil
		}))

	bus.Subscribe(EstimateFailed{}.EventName(), platform.HandlerFunc(
		func(ctx context.Context, event platform.Event) error {
			e, ok := event.(EstimateFailed)
			if !ok {
				return nil
			}
			log.Warn("estimate failed",
				"tenant_id", e.TenantID.String(),
				"estimate_id", e.EstimateID.String(),
				"failure_kind", e.FailureKind,
				"retryable", e.Retryable,
				"message", e.Message,
			)
			return nil
		}))

	bus.Subscribe(TenantCreated{}.EventName(), platform.HandlerFunc(
		func(ctx context.Context, event platform.Event) error {
			e, ok := event.(TenantCreated)
			if !ok {
				return nil
			}
			log.Info("tenant created",
				"tenant_id", e.TenantID.String(),
				"slug", e.Slug,
			)
			return nil
		}))
}
