// Copyright 2026 The Attune Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package simulate implements the what-if cost scenario command.
package simulate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attuneai/attune/internal/commands/shared"
	"github.com/attuneai/attune/internal/config"
	pkgerrors "github.com/attuneai/attune/pkg/errors"
	"github.com/attuneai/attune/pkg/pricing"
)

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand() *cobra.Command {
	var (
		configPath string
		provider   string
		requests   int
		cheap      float64
		capable    float64
		premium    float64
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Project costs for a tier-mix scenario",
		Long: `Project spend and savings for a hypothetical request volume split
across pricing tiers. With no mix flags the default mix (50% cheap,
40% capable, 10% premium) is used. The baseline models every request
at the premium price.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, configPath, provider, requests,
				pricing.Mix{Cheap: cheap, Capable: capable, Premium: premium}, asJSON)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path (default: XDG config dir)")
	cmd.Flags().StringVar(&provider, "provider", "anthropic", "provider whose pricing to use")
	cmd.Flags().IntVar(&requests, "requests", 1000, "total request volume")
	cmd.Flags().Float64Var(&cheap, "cheap", 0, "cheap tier share (0-1)")
	cmd.Flags().Float64Var(&capable, "capable", 0, "capable tier share (0-1)")
	cmd.Flags().Float64Var(&premium, "premium", 0, "premium tier share (0-1)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the simulation as JSON")
	return cmd
}

func runSimulate(cmd *cobra.Command, configPath, provider string, requests int, mix pricing.Mix, asJSON bool) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}

	table := pricing.NewTable()
	if cfg.PricingFile != "" {
		if err := table.LoadOverrides(cfg.PricingFile); err != nil {
			return err
		}
	}

	providerPricing, ok := table.Pricing(provider)
	if !ok {
		return &pkgerrors.NotFoundError{Resource: "provider", ID: provider}
	}

	sim := pricing.Simulate(providerPricing, mix, requests)

	if asJSON {
		data, err := json.MarshalIndent(sim, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal simulation: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Print(formatSimulation(provider, requests, sim))
	return nil
}

func formatSimulation(provider string, requests int, sim pricing.Simulation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %d requests via %s\n",
		shared.Header.Render("Scenario"), requests, provider)

	for _, tier := range pricing.Tiers {
		tc := sim.PerTier[tier]
		fmt.Fprintf(&b, "  %-8s %6d requests  $%.2f\n", string(tier), tc.Requests, tc.Cost)
	}

	fmt.Fprintf(&b, "%s $%.2f  %s $%.2f  %s $%.2f\n",
		shared.Bold.Render("Projected"), sim.ActualCost,
		shared.Muted.Render("baseline"), sim.BaselineCost,
		shared.StatusOK.Render("saved"), sim.Savings)
	return b.String()
}
