package config

import (
	"math"
	"testing"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name                                           string
		input, output, cacheRead, cacheCreation        int64
		want                                           float64
	}{
		{"zero", 0, 0, 0, 0, 0},
		{"input only", 1_000_000, 0, 0, 0, 3.00},
		{"output only", 0, 1_000_000, 0, 0, 15.00},
		{"cache read only", 0, 0, 1_000_000, 0, 0.30},
		{"cache creation only", 0, 0, 0, 1_000_000, 3.75},
		{"mixed", 2000, 900, 15_500, 12_000, 2000*3.00/1e6 + 900*15.00/1e6 + 15_500*0.30/1e6 + 12_000*3.75/1e6},
		{"small counts round to 4 places", 100, 10, 0, 0, 0.0005},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCost(tt.input, tt.output, tt.cacheRead, tt.cacheCreation)
			want := math.Round(tt.want*10_000) / 10_000
			if got != want {
				t.Errorf("EstimateCost = %v, want %v", got, want)
			}
		})
	}
}

func TestEstimateCost_RoundsToFourPlaces(t *testing.T) {
	got := EstimateCost(111, 0, 0, 0) // 0.000333
	if got != 0.0003 {
		t.Errorf("EstimateCost = %v, want 0.0003", got)
	}
}

func TestCacheSavings(t *testing.T) {
	// 15500 cached reads at the fresh-vs-cached spread of $2.70/MTok.
	got := CacheSavings(15_500)
	if got != 0.0419 {
		t.Errorf("CacheSavings = %v, want 0.0419", got)
	}
	if CacheSavings(0) != 0 {
		t.Error("CacheSavings(0) should be 0")
	}
	if CacheSavings(10) < 0 {
		t.Error("CacheSavings must never be negative")
	}
}

func TestApplyPricing(t *testing.T) {
	defer func() { activePricing = DefaultPricing }()

	in := 6.0
	out := 30.0
	ApplyPricing(Config{Pricing: PricingOverride{
		InputPerMTok:  &in,
		OutputPerMTok: &out,
	}})

	p := ActivePricing()
	if p.InputPerMTok != 6.0 || p.OutputPerMTok != 30.0 {
		t.Errorf("overrides not applied: %+v", p)
	}
	if p.CacheReadPerMTok != DefaultPricing.CacheReadPerMTok {
		t.Errorf("unset fields must keep defaults: %+v", p)
	}

	if got := EstimateCost(1_000_000, 0, 0, 0); got != 6.00 {
		t.Errorf("EstimateCost after override = %v, want 6.00", got)
	}
}
