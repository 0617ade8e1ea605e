package pricing

import "math"

// Mix is a tier-mix scenario as fractional shares of total requests.
// Shares need not sum to 1; Normalize handles that.
type Mix struct {
	Cheap   float64 `yaml:"cheap" json:"cheap"`
	Capable float64 `yaml:"capable" json:"capable"`
	Premium float64 `yaml:"premium" json:"premium"`
}

// DefaultMix is the fallback scenario when all three inputs are zero.
var DefaultMix = Mix{Cheap: 0.5, Capable: 0.4, Premium: 0.1}

// Normalize scales the mix so its shares sum to 1. An all-zero mix
// normalizes to DefaultMix instead of dividing by zero.
func (m Mix) Normalize() Mix {
	sum := m.Cheap + m.Capable + m.Premium
	if sum == 0 {
		return DefaultMix
	}
	return Mix{
		Cheap:   m.Cheap / sum,
		Capable: m.Capable / sum,
		Premium: m.Premium / sum,
	}
}

// share returns the normalized fraction for a tier.
func (m Mix) share(tier Tier) float64 {
	switch tier {
	case TierCheap:
		return m.Cheap
	case TierCapable:
		return m.Capable
	default:
		return m.Premium
	}
}

// TierCost is the simulated spend for one tier of a scenario.
type TierCost struct {
	Requests int     `json:"requests"`
	Cost     float64 `json:"cost"`
}

// Simulation is the projected outcome of a tier-mix scenario.
type Simulation struct {
	// ActualCost is the projected spend under the given mix.
	ActualCost float64 `json:"actual_cost"`

	// BaselineCost models the no-optimization counterfactual: every
	// request at the premium-tier price. This is an explicit modeling
	// choice, not the most expensive real tier combination.
	BaselineCost float64 `json:"baseline_cost"`

	// Savings is BaselineCost minus ActualCost.
	Savings float64 `json:"savings"`

	// PerTier breaks the scenario down by tier.
	PerTier map[Tier]TierCost `json:"per_tier"`
}

// Simulate projects costs for a tier-mix scenario against one provider's
// pricing. Pure function: no I/O, no clock, no hidden state.
func Simulate(pricing ProviderPricing, mix Mix, totalRequests int) Simulation {
	if totalRequests < 0 {
		totalRequests = 0
	}
	normalized := mix.Normalize()

	sim := Simulation{PerTier: make(map[Tier]TierCost, len(Tiers))}
	for _, tier := range Tiers {
		share := normalized.share(tier)
		requests := int(math.Round(share * float64(totalRequests)))
		cost := share * float64(totalRequests) * pricing[tier]
		sim.PerTier[tier] = TierCost{Requests: requests, Cost: cost}
		sim.ActualCost += cost
	}

	sim.BaselineCost = float64(totalRequests) * pricing[TierPremium]
	sim.Savings = sim.BaselineCost - sim.ActualCost
	return sim
}
