package pricing

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPricing() ProviderPricing {
	return ProviderPricing{
		TierCheap:   0.001,
		TierCapable: 0.008,
		TierPremium: 0.024,
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		mix  Mix
		want Mix
	}{
		{
			name: "already normalized",
			mix:  Mix{Cheap: 0.5, Capable: 0.4, Premium: 0.1},
			want: Mix{Cheap: 0.5, Capable: 0.4, Premium: 0.1},
		},
		{
			name: "percent style inputs",
			mix:  Mix{Cheap: 50, Capable: 40, Premium: 10},
			want: Mix{Cheap: 0.5, Capable: 0.4, Premium: 0.1},
		},
		{
			name: "all zero falls back to documented default",
			mix:  Mix{},
			want: DefaultMix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mix.Normalize()
			assert.InDelta(t, tt.want.Cheap, got.Cheap, 1e-9)
			assert.InDelta(t, tt.want.Capable, got.Capable, 1e-9)
			assert.InDelta(t, tt.want.Premium, got.Premium, 1e-9)
		})
	}
}

func TestSimulate(t *testing.T) {
	sim := Simulate(testPricing(), Mix{Cheap: 0.5, Capable: 0.4, Premium: 0.1}, 1000)

	// 500*0.001 + 400*0.008 + 100*0.024 = 0.5 + 3.2 + 2.4
	assert.InDelta(t, 6.1, sim.ActualCost, 1e-9)
	assert.InDelta(t, 24.0, sim.BaselineCost, 1e-9)
	assert.InDelta(t, 17.9, sim.Savings, 1e-9)

	require.Len(t, sim.PerTier, 3)
	assert.Equal(t, 500, sim.PerTier[TierCheap].Requests)
	assert.Equal(t, 400, sim.PerTier[TierCapable].Requests)
	assert.Equal(t, 100, sim.PerTier[TierPremium].Requests)
}

func TestSimulateZeroMixUsesDefault(t *testing.T) {
	sim := Simulate(testPricing(), Mix{}, 1000)

	assert.Equal(t, 500, sim.PerTier[TierCheap].Requests)
	assert.Equal(t, 400, sim.PerTier[TierCapable].Requests)
	assert.Equal(t, 100, sim.PerTier[TierPremium].Requests)
	assert.False(t, math.IsNaN(sim.ActualCost))
}

func TestSimulateZeroRequests(t *testing.T) {
	sim := Simulate(testPricing(), DefaultMix, 0)

	assert.Zero(t, sim.ActualCost)
	assert.Zero(t, sim.BaselineCost)
	assert.Zero(t, sim.Savings)
}

func TestSimulateNegativeRequestsClamped(t *testing.T) {
	sim := Simulate(testPricing(), DefaultMix, -5)
	assert.Zero(t, sim.ActualCost)
}

func TestTableOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	yaml := "providers:\n  anthropic:\n    premium: 0.03\n  custom:\n    cheap: 0.0001\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	table := NewTable()
	require.NoError(t, table.LoadOverrides(path))

	p, ok := table.Pricing("anthropic")
	require.True(t, ok)
	assert.Equal(t, 0.03, p[TierPremium])
	// Untouched tiers keep their built-in values.
	assert.Equal(t, 0.001, p[TierCheap])

	custom, ok := table.Pricing("custom")
	require.True(t, ok)
	assert.Equal(t, 0.0001, custom[TierCheap])
}

func TestTableMissingOverrideFile(t *testing.T) {
	table := NewTable()
	assert.NoError(t, table.LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml")))

	_, ok := table.Pricing("anthropic")
	assert.True(t, ok)
}
