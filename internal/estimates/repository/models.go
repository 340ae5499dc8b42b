package repository

import (
	"time"

	"github.com/google/uuid"
)

// Estimate status values. Queued estimates move through processing to a
// terminal completed or failed.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Estimate is one estimate run, synchronous or queued.
type Estimate struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Filename string
	Status   string

	// ModelKey is the object key of the staged model, set for queued runs.
	ModelKey string
	// GCodeKey is the object key of the archived artifact, when kept.
	GCodeKey string

	Backend   string
	Estimated bool

	TimeSeconds   float64
	MaterialGrams float64
	LayerCount    int

	// OptionsJSON is the raw request configuration, kept for reruns.
	OptionsJSON []byte
	// PricingJSON is the serialized pricing result of a completed run.
	PricingJSON []byte

	FailureKind    string
	FailureMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateParams inserts a new estimate row.
type CreateParams struct {
	TenantID    uuid.UUID
	Filename    string
	Status      string
	ModelKey    string
	OptionsJSON []byte
}

// CompleteParams marks an estimate completed with its results.
type CompleteParams struct {
	ID            uuid.UUID
	Backend       string
	Estimated     bool
	TimeSeconds   float64
	MaterialGrams float64
	LayerCount    int
	PricingJSON   []byte
	GCodeKey      string
}

// FailParams marks an estimate failed.
type FailParams struct {
	ID             uuid.UUID
	FailureKind    string
	FailureMessage string
}

// ListParams filters the history listing.
type ListParams struct {
	TenantID uuid.UUID
	Limit    int
	Offset   int
}
