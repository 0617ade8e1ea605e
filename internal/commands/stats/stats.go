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

// Package stats implements the cost telemetry summary command.
package stats

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attuneai/attune/internal/commands/shared"
	"github.com/attuneai/attune/internal/config"
	"github.com/attuneai/attune/internal/log"
	"github.com/attuneai/attune/internal/telemetry"
	"github.com/attuneai/attune/pkg/process"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	var configPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the rolling cost and savings summary",
		Long: `Rebuild and print the seven-day cost telemetry snapshot. Data comes
from the analysis tool's usage query when available, falling back to its
usage file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, configPath, asJSON)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path (default: XDG config dir)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the snapshot as JSON")
	return cmd
}

func runStats(cmd *cobra.Command, configPath string, asJSON bool) error {
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

	logger := log.New(log.FromEnv())
	var opts []telemetry.Option
	if cfg.Telemetry.CLIBinary != "" {
		opts = append(opts, telemetry.WithCLI(cfg.Telemetry.CLIBinary, cfg.Telemetry.CLIArgs...))
	}
	agg := telemetry.NewAggregator(process.NewExecutor(logger), cfg.Telemetry.DataFile, logger, opts...)
	snap := agg.Refresh(cmd.Context())

	if asJSON {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Print(formatSnapshot(snap))
	return nil
}

func formatSnapshot(snap *telemetry.Snapshot) string {
	var b strings.Builder

	b.WriteString(shared.Header.Render("Cost summary (last 7 days)") + "\n")
	if snap.Empty() {
		b.WriteString(shared.Muted.Render("no usage recorded") + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%s $%.2f   %s $%.2f (%d%%)\n",
		shared.Bold.Render("Spent"), snap.TotalCost,
		shared.Bold.Render("Saved"), snap.TotalSavings, snap.SavingsPercent)

	if len(snap.ByTier) > 0 {
		b.WriteString(shared.Header.Render("By tier") + "\n")
		for _, tier := range sortedKeys(snap.ByTier) {
			stat := snap.ByTier[tier]
			fmt.Fprintf(&b, "  %-10s %5d requests  $%.2f\n", tier, stat.Requests, stat.Cost)
		}
	}

	if len(snap.ByProvider) > 0 {
		b.WriteString(shared.Header.Render("By provider") + "\n")
		providers := make([]string, 0, len(snap.ByProvider))
		for name := range snap.ByProvider {
			providers = append(providers, name)
		}
		sort.Strings(providers)
		for _, name := range providers {
			stat := snap.ByProvider[name]
			fmt.Fprintf(&b, "  %-10s %5d requests  $%.2f\n", name, stat.Requests, stat.Cost)
		}
	}

	if len(snap.DailySeries) > 0 {
		b.WriteString(shared.Header.Render("Daily") + "\n")
		for _, point := range snap.DailySeries {
			fmt.Fprintf(&b, "  %s  $%.2f spent, $%.2f saved\n", point.Date, point.Cost, point.Savings)
		}
	}
	return b.String()
}

func sortedKeys(m map[string]telemetry.TierStat) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
