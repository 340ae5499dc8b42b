// Package pricing computes itemized price quotes from normalized print
// statistics and tenant-configured rates. The calculation is pure and
// deterministic: same inputs, same result, no I/O.
package pricing

// CalculationType selects the formula a fee is computed with.
type CalculationType string

const (
	CalcFixed     CalculationType = "fixed"
	CalcPerGram   CalculationType = "per_gram"
	CalcPerMinute CalculationType = "per_minute"
	CalcPerHour   CalculationType = "per_hour"
	CalcPerKwh    CalculationType = "per_kwh"
)

// ApplicationType selects how a fee scales with order quantity.
type ApplicationType string

const (
	// ApplyPerModel scales the fee linearly with quantity.
	ApplyPerModel ApplicationType = "per_model"
	// ApplyOncePerOrder applies the fee a single time regardless of quantity.
	ApplyOncePerOrder ApplicationType = "once_per_order"
	// ApplyCustom is a pass-through hook: applied once, never scaled.
	ApplyCustom ApplicationType = "custom"
)

// Config is a tenant's pricing configuration snapshot.
type Config struct {
	// MaterialPricePerGram maps material keys to their per-gram price.
	// Unknown materials price at the "pla" entry.
	MaterialPricePerGram map[string]float64
	// TimeRatePerHour is the machine-time rate.
	TimeRatePerHour float64
}

// Fee is one tenant-configured surcharge.
type Fee struct {
	Name            string
	CalculationType CalculationType
	Amount          float64
	ApplicationType ApplicationType
	Enabled         bool
}

// PostProcessingOption is a selected finishing service with its unit price.
type PostProcessingOption struct {
	ID    string
	Name  string
	Price float64
}

// Options carries the order-level inputs of one calculation.
type Options struct {
	MaterialKey     string
	Quantity        int
	ExpressDelivery bool
	// PostProcessing holds the already-resolved selected options.
	PostProcessing []PostProcessingOption
}

// LineItem is one row of the price breakdown.
type LineItem struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Result is an itemized price quote. All amounts are floats; rounding
// happens at presentation time only.
type Result struct {
	MaterialCost       float64    `json:"materialCost"`
	TimeCost           float64    `json:"timeCost"`
	FeesCost           float64    `json:"feesCost"`
	PostProcessingCost float64    `json:"postProcessingCost"`
	ExpressCost        float64    `json:"expressCost"`
	Subtotal           float64    `json:"subtotal"`
	Total              float64    `json:"total"`
	Breakdown          []LineItem `json:"breakdown"`
}
