// Package events defines the domain events exchanged between modules.
package events

import (
	"github.com/google/uuid"

	platform "printcalc_backend/platform/events"
)

// EstimateCompleted is published after an estimate has been sliced,
// priced, and persisted.
type EstimateCompleted struct {
	platform.BaseEvent
	TenantID   uuid.UUID
	EstimateID uuid.UUID
	Backend    string
	Estimated  bool
	Total      float64
}

// EventName returns the event identifier.
func (EstimateCompleted) EventName() string { return "estimate.completed" }

// EstimateFailed is published when the slicing pipeline exhausts every
// backend or rejects the request.
type EstimateFailed struct {
	platform.BaseEvent
	TenantID    uuid.UUID
	EstimateID  uuid.UUID
	FailureKind string
	Retryable   bool
	Message     string
}

// EventName returns the event identifier.
func (EstimateFailed) EventName() string { return "estimate.failed" }

// TenantCreated is published when a new tenant is provisioned, so other
// modules can seed tenant defaults.
type TenantCreated struct {
	platform.BaseEvent
	TenantID uuid.UUID
	Slug     string
}

// EventName returns the event identifier.
func (TenantCreated) EventName() string { return "tenant.created" }
