// Package transport defines the request and response DTOs for the
// estimates module.
package transport

import (
	"printcalc_backend/internal/pricing"
)

// EstimateOptions is the JSON configuration part of an estimate request.
// It travels alongside the uploaded model file in the multipart form.
type EstimateOptions struct {
	Quality  string `json:"quality" validate:"required"`
	Material string `json:"material" validate:"required"`

	InfillPercent    int     `json:"infillPercent" validate:"gte=0,lte=100"`
	WallCount        int     `json:"wallCount" validate:"gte=0"`
	SupportsEnabled  bool    `json:"supportsEnabled"`
	NozzleDiameterMm float64 `json:"nozzleDiameterMm" validate:"gte=0"`
	LayerHeightMm    float64 `json:"layerHeightMm" validate:"gte=0"`
	SpeedMmS         float64 `json:"speedMmS" validate:"gte=0"`
	Brim             bool    `json:"brim"`
	Raft             bool    `json:"raft"`

	Quantity          int      `json:"quantity" validate:"required,gte=1"`
	ExpressDelivery   bool     `json:"expressDelivery"`
	PostProcessingIDs []string `json:"postProcessingIds"`
}

// StatsResponse is the normalized print statistics of one estimate.
type StatsResponse struct {
	TimeSeconds   float64 `json:"time"`
	MaterialGrams float64 `json:"material"`
	Layers        int     `json:"layers"`
}

// EstimateResponse is the full result of a completed estimate. Pricing
// amounts carry full precision; DisplayTotal is the rounded figure a
// storefront shows.
type EstimateResponse struct {
	ID           string         `json:"id"`
	Success      bool           `json:"success"`
	Measured     bool           `json:"measured"`
	Backend      string         `json:"backend"`
	Stats        StatsResponse  `json:"stats"`
	Pricing      pricing.Result `json:"pricing"`
	DisplayTotal int64          `json:"displayTotal"`
	GCodeURL     string         `json:"gcodeUrl,omitempty"`
}

// JobResponse is the state of a queued estimate.
type JobResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Result    *EstimateResponse `json:"result,omitempty"`
	ModelURL  string            `json:"modelUrl,omitempty"`
	Error     string            `json:"error,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
}

// HistoryItem is one row of the tenant's estimate history.
type HistoryItem struct {
	ID           string        `json:"id"`
	Filename     string        `json:"filename"`
	Status       string        `json:"status"`
	Backend      string        `json:"backend,omitempty"`
	Measured     bool          `json:"measured"`
	Stats        StatsResponse `json:"stats"`
	Total        float64       `json:"total"`
	DisplayTotal int64         `json:"displayTotal"`
	CreatedAt    string        `json:"createdAt"`
}

// ListEstimatesResponse wraps the history listing.
type ListEstimatesResponse struct {
	Estimates []HistoryItem `json:"estimates"`
	Total     int           `json:"total"`
}
