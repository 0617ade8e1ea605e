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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	historycmd "github.com/attuneai/attune/internal/commands/history"
	runcmd "github.com/attuneai/attune/internal/commands/run"
	servecmd "github.com/attuneai/attune/internal/commands/serve"
	"github.com/attuneai/attune/internal/commands/shared"
	simulatecmd "github.com/attuneai/attune/internal/commands/simulate"
	statscmd "github.com/attuneai/attune/internal/commands/stats"
	versioncmd "github.com/attuneai/attune/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	shared.SetVersion(version, commit, buildDate)

	root := &cobra.Command{
		Use:   "attune",
		Short: "Workflow execution and report pipeline for code analysis tools",
		Long: `Attune runs named analysis workflows as external processes, interprets
their output into structured reports, and routes those reports to the
right presentation surface. It also tracks the analysis tool's cost
telemetry with a rolling seven-day summary.`,
		SilenceUsage: true,
	}

	root.AddCommand(runcmd.NewRunCommand())
	root.AddCommand(servecmd.NewServeCommand())
	root.AddCommand(statscmd.NewStatsCommand())
	root.AddCommand(simulatecmd.NewSimulateCommand())
	root.AddCommand(historycmd.NewHistoryCommand())
	root.AddCommand(versioncmd.NewVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, shared.RenderError(err.Error()))
		os.Exit(1)
	}
}
