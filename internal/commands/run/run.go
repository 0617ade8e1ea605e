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

// Package run implements the one-shot workflow runner command.
package run

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/attuneai/attune/internal/commands/shared"
	"github.com/attuneai/attune/internal/config"
	"github.com/attuneai/attune/internal/coordinator"
	"github.com/attuneai/attune/internal/log"
	"github.com/attuneai/attune/internal/report"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var configPath string
	var noInput bool

	cmd := &cobra.Command{
		Use:   "run <workflow> [input]",
		Short: "Run a workflow and print its report",
		Long: `Run a named workflow against an optional input scope (a path, package,
or free-form target the workflow understands) and print the interpreted
report. With no input argument on an interactive terminal, the last input
for the workflow is offered as a prefill.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, args, configPath, noInput)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path (default: XDG config dir)")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "never prompt, run with the given input only")
	return cmd
}

func runWorkflow(cmd *cobra.Command, args []string, configPath string, noInput bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := log.New(log.FromEnv())
	engine, err := shared.BuildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		engine.Coordinator.Shutdown(ctx)
	}()

	workflowID := args[0]
	input := ""
	if len(args) == 2 {
		input = args[1]
	}

	if input == "" && !noInput && !shared.IsNonInteractive() {
		input, err = promptForInput(cmd.Context(), engine, workflowID)
		if err != nil {
			return err
		}
	}

	handle, err := engine.Coordinator.Submit(cmd.Context(), workflowID, input)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), shared.Muted.Render("running "+workflowID+"..."))

	var result *coordinator.Result
	select {
	case result = <-handle.Done():
	case <-cmd.Context().Done():
		engine.Coordinator.Cancel(workflowID)
		return cmd.Context().Err()
	}
	if result == nil {
		return fmt.Errorf("run was superseded before completion")
	}

	fmt.Fprint(cmd.OutOrStdout(), formatResult(result))

	if result.Report.Status != report.StatusSuccess {
		return fmt.Errorf("workflow %s failed", workflowID)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// promptForInput asks for the input scope, prefilled with the workflow's
// last recorded input.
func promptForInput(ctx context.Context, engine *shared.Engine, workflowID string) (string, error) {
	var prefill string
	if engine.History != nil {
		prefill, _ = engine.History.LastInput(ctx, workflowID)
	}

	input := prefill
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Input scope").
				Description("Path or target to analyze (empty for whole project)").
				Value(&input),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("input prompt failed: %w", err)
	}
	return input, nil
}
