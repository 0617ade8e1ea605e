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

// Package history implements the run history commands.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/attuneai/attune/internal/commands/shared"
	"github.com/attuneai/attune/internal/config"
	historystore "github.com/attuneai/attune/internal/history"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded workflow runs",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: XDG config dir)")

	cmd.AddCommand(newListCommand(&configPath))
	cmd.AddCommand(newClearCommand(&configPath))
	return cmd
}

func openStore(configPath string) (*historystore.Store, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return historystore.Open(path)
}

func newListCommand(configPath *string) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(runs, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal runs: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			if len(runs) == 0 {
				cmd.Println(shared.Muted.Render("no runs recorded"))
				return nil
			}
			for _, run := range runs {
				status := shared.RenderStatusLabel(run.Status)
				input := run.Input
				if input == "" {
					input = shared.Muted.Render("(whole project)")
				}
				cmd.Printf("%s  %-20s %s  %s  %s\n",
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.WorkflowID, status, run.Duration.Round(10*time.Millisecond).String(), input)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit runs as JSON")
	return cmd
}

func newClearCommand(configPath *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs and saved inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if shared.IsNonInteractive() {
					return fmt.Errorf("refusing to clear history without --force in non-interactive mode")
				}
				confirmed := false
				prompt := &survey.Confirm{
					Message: "Delete all run history and saved inputs?",
					Default: false,
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					cmd.Println("aborted")
					return nil
				}
			}

			store, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			cmd.Println(shared.RenderOK("history cleared"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt")
	return cmd
}
