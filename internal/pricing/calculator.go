package pricing

import (
	"math"

	"printcalc_backend/internal/slicing"
)

const (
	// defaultMaterialKey prices unknown materials.
	defaultMaterialKey = "pla"

	// expressSurchargeRate is the fixed express-delivery surcharge applied
	// to the subtotal.
	expressSurchargeRate = 0.5

	// printerAvgWatts is the energy proxy for per_kwh fees: average printer
	// draw, kWh = watts x hours / 1000.
	printerAvgWatts = 120.0
)

// Calculate turns print statistics and a tenant's pricing snapshot into an
// itemized result. The computation order is fixed: material, time, fees,
// post-processing, subtotal, express, total. Zero-valued optional
// categories are omitted from the breakdown, not shown as zero.
func Calculate(stats slicing.SliceStats, cfg Config, fees []Fee, opts Options) Result {
	qty := float64(opts.Quantity)
	if opts.Quantity < 1 {
		qty = 1
	}

	materialCost := stats.MaterialGrams * materialPrice(cfg, opts.MaterialKey) * qty

	hours := stats.TimeSeconds / 3600
	timeCost := hours * cfg.TimeRatePerHour * qty

	feesCost := 0.0
	for _, fee := range fees {
		feesCost += feeContribution(fee, stats, qty)
	}

	postProcessingCost := 0.0
	for _, opt := range opts.PostProcessing {
		postProcessingCost += opt.Price
	}
	postProcessingCost *= qty

	subtotal := materialCost + timeCost + feesCost + postProcessingCost

	expressCost := 0.0
	if opts.ExpressDelivery {
		expressCost = subtotal * expressSurchargeRate
	}

	total := subtotal + expressCost

	breakdown := []LineItem{
		{Label: "Material", Amount: materialCost},
		{Label: "Print time", Amount: timeCost},
	}
	if feesCost > 0 {
		breakdown = append(breakdown, LineItem{Label: "Fees", Amount: feesCost})
	}
	if postProcessingCost > 0 {
		breakdown = append(breakdown, LineItem{Label: "Post-processing", Amount: postProcessingCost})
	}
	if expressCost > 0 {
		breakdown = append(breakdown, LineItem{Label: "Express delivery (+50%)", Amount: expressCost})
	}

	return Result{
		MaterialCost:       materialCost,
		TimeCost:           timeCost,
		FeesCost:           feesCost,
		PostProcessingCost: postProcessingCost,
		ExpressCost:        expressCost,
		Subtotal:           subtotal,
		Total:              total,
		Breakdown:          breakdown,
	}
}

// materialPrice resolves the per-gram price, falling back to the default
// material entry for unknown keys.
func materialPrice(cfg Config, key string) float64 {
	if price, ok := cfg.MaterialPricePerGram[key]; ok {
		return price
	}
	return cfg.MaterialPricePerGram[defaultMaterialKey]
}

// feeContribution computes one fee's addition to the fees total. The
// per-unit amount depends on the calculation type; quantity scaling only
// applies to per_model fees. Custom fees are applied once, unscaled.
func feeContribution(fee Fee, stats slicing.SliceStats, qty float64) float64 {
	if !fee.Enabled {
		return 0
	}

	minutes := stats.TimeSeconds / 60
	hours := stats.TimeSeconds / 3600

	var perUnit float64
	switch fee.CalculationType {
	case CalcFixed:
		perUnit = fee.Amount
	case CalcPerGram:
		perUnit = fee.Amount * stats.MaterialGrams
	case CalcPerMinute:
		perUnit = fee.Amount * minutes
	case CalcPerHour:
		perUnit = fee.Amount * hours
	case CalcPerKwh:
		perUnit = fee.Amount * (printerAvgWatts * hours / 1000)
	default:
		return 0
	}

	if fee.ApplicationType == ApplyPerModel {
		return perUnit * qty
	}
	return perUnit
}

// RoundForDisplay rounds a monetary amount to the nearest whole currency
// unit. Intermediate results are never rounded; only presentation is.
func RoundForDisplay(amount float64) int64 {
	return int64(math.Round(amount))
}
