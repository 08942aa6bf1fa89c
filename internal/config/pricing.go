package config

import "math"

// Pricing holds per-million-token prices for the four billing categories.
type Pricing struct {
	InputPerMTok         float64
	OutputPerMTok        float64
	CacheReadPerMTok     float64
	CacheCreationPerMTok float64
}

// DefaultPricing is the Sonnet-tier price table used for estimates.
var DefaultPricing = Pricing{
	InputPerMTok:         3.00,
	OutputPerMTok:        15.00,
	CacheReadPerMTok:     0.30,
	CacheCreationPerMTok: 3.75,
}

// activePricing is the table used by EstimateCost. Config overrides are
// applied onto it at startup via ApplyPricing.
var activePricing = DefaultPricing

// ActivePricing returns the price table currently in effect.
func ActivePricing() Pricing {
	return activePricing
}

// EstimateCost computes the estimated cost in USD for the given token
// counts, rounded to 4 decimal places (half away from zero).
func EstimateCost(inputTokens, outputTokens, cacheReadTokens, cacheCreationTokens int64) float64 {
	p := activePricing
	cost := float64(inputTokens)*p.InputPerMTok/1_000_000 +
		float64(outputTokens)*p.OutputPerMTok/1_000_000 +
		float64(cacheReadTokens)*p.CacheReadPerMTok/1_000_000 +
		float64(cacheCreationTokens)*p.CacheCreationPerMTok/1_000_000
	return round4(cost)
}

// CacheSavings estimates what cache reads saved versus fresh input
// pricing, rounded to 4 decimal places.
func CacheSavings(cacheReadTokens int64) float64 {
	p := activePricing
	saved := float64(cacheReadTokens) * (p.InputPerMTok - p.CacheReadPerMTok) / 1_000_000
	return round4(saved)
}

func round4(v float64) float64 {
	return math.Round(v*10_000) / 10_000
}
