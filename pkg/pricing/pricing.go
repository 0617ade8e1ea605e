package pricing

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Tier is a cost/quality category used for both real telemetry and the
// cost simulator.
type Tier string

const (
	TierCheap   Tier = "cheap"
	TierCapable Tier = "capable"
	TierPremium Tier = "premium"
)

// Tiers lists all tiers in ascending cost order.
var Tiers = []Tier{TierCheap, TierCapable, TierPremium}

// ProviderPricing is the per-request cost by tier for one provider, in USD.
type ProviderPricing map[Tier]float64

// Table maps provider names to their tier pricing. It is static
// configuration, not runtime state.
type Table struct {
	mu        sync.RWMutex
	providers map[string]ProviderPricing
}

// NewTable returns a table seeded with the built-in pricing.
func NewTable() *Table {
	return &Table{providers: builtinPricing()}
}

// tableFile is the YAML shape of a user pricing override file.
type tableFile struct {
	Providers map[string]map[string]float64 `yaml:"providers"`
}

// LoadOverrides merges user pricing from a YAML file over the built-ins.
// A missing file is not an error; built-in defaults apply.
func (t *Table) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read pricing overrides: %w", err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse pricing overrides: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// User entries take precedence per provider/tier pair.
	for provider, tiers := range file.Providers {
		merged, ok := t.providers[provider]
		if !ok {
			merged = make(ProviderPricing)
			t.providers[provider] = merged
		}
		for tier, cost := range tiers {
			merged[Tier(tier)] = cost
		}
	}
	return nil
}

// Pricing returns the tier pricing for a provider and whether it is known.
func (t *Table) Pricing(provider string) (ProviderPricing, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.providers[provider]
	if !ok {
		return nil, false
	}
	out := make(ProviderPricing, len(p))
	for tier, cost := range p {
		out[tier] = cost
	}
	return out, true
}

// Providers returns all provider names with pricing data.
func (t *Table) Providers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.providers))
	for name := range t.providers {
		names = append(names, name)
	}
	return names
}

// builtinPricing returns the default per-request pricing.
func builtinPricing() map[string]ProviderPricing {
	return map[string]ProviderPricing{
		"anthropic": {
			TierCheap:   0.001,
			TierCapable: 0.008,
			TierPremium: 0.024,
		},
		"openai": {
			TierCheap:   0.0008,
			TierCapable: 0.006,
			TierPremium: 0.020,
		},
		"google": {
			TierCheap:   0.0005,
			TierCapable: 0.005,
			TierPremium: 0.018,
		},
	}
}
