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

// Package config loads engine configuration from the XDG config directory.
// A missing config file is not an error: everything has a usable default so
// the engine runs out of the box with its built-in workflows.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/attuneai/attune/internal/jq"
	"github.com/attuneai/attune/internal/render"
	"github.com/attuneai/attune/internal/workflow"
	pkgerrors "github.com/attuneai/attune/pkg/errors"
)

// DefaultListenAddr binds the panel server to loopback only.
const DefaultListenAddr = "127.0.0.1:7611"

// DefaultBinary is the analysis tool binary resolved via PATH.
const DefaultBinary = "attune-analyze"

// Config is the full engine configuration.
type Config struct {
	// Binary is the default analysis binary for workflows that do not
	// override it.
	Binary string `yaml:"binary"`

	// WorkDir is the working directory for spawned processes. Empty
	// means inherit.
	WorkDir string `yaml:"work_dir,omitempty"`

	// Workflows extends or overrides the built-in workflow definitions.
	Workflows []workflow.Definition `yaml:"workflows,omitempty"`

	// RoutingRules are evaluated before static surface classification.
	RoutingRules []render.Rule `yaml:"routing_rules,omitempty"`

	Telemetry TelemetryConfig `yaml:"telemetry"`
	Watcher   WatcherConfig   `yaml:"watcher"`
	Server    ServerConfig    `yaml:"server"`
	Tracing   TracingConfig   `yaml:"tracing"`

	// PricingFile points at a YAML pricing override table.
	PricingFile string `yaml:"pricing_file,omitempty"`

	// HistoryFile is the run history database path. Empty means the
	// default under the XDG data directory.
	HistoryFile string `yaml:"history_file,omitempty"`
}

// TelemetryConfig controls cost snapshot acquisition.
type TelemetryConfig struct {
	// CLIBinary queries usage live. Empty disables the CLI path.
	CLIBinary string   `yaml:"cli_binary,omitempty"`
	CLIArgs   []string `yaml:"cli_args,omitempty"`

	// DataFile is the fallback usage file.
	DataFile string `yaml:"data_file,omitempty"`
}

// WatcherConfig controls the telemetry file watcher.
type WatcherConfig struct {
	Paths    []string      `yaml:"paths,omitempty"`
	Include  []string      `yaml:"include,omitempty"`
	Exclude  []string      `yaml:"exclude,omitempty"`
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// ServerConfig controls the panel websocket server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Binary: DefaultBinary,
		Server: ServerConfig{Listen: DefaultListenAddr},
	}
}

// Load reads configuration from path. A missing file yields defaults;
// a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, &pkgerrors.ConfigError{Key: path, Reason: "unreadable", Cause: err}
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, &pkgerrors.ConfigError{Key: path, Reason: "invalid yaml", Cause: err}
	}

	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListenAddr
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads from the XDG config path.
func LoadDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	return Load(path)
}

func (c *Config) validate() error {
	jqExec := jq.NewExecutor(0, 0)
	seen := make(map[string]bool)
	for _, def := range c.Workflows {
		if def.ID == "" {
			return &pkgerrors.ValidationError{
				Field:      "workflows",
				Message:    "workflow definition missing id",
				Suggestion: "give every workflow entry a unique id",
			}
		}
		if seen[def.ID] {
			return &pkgerrors.ValidationError{
				Field:   "workflows",
				Message: fmt.Sprintf("duplicate workflow id %q", def.ID),
			}
		}
		seen[def.ID] = true
		if def.Timeout < 0 {
			return &pkgerrors.ValidationError{
				Field:   "workflows",
				Message: fmt.Sprintf("workflow %q has a negative timeout", def.ID),
			}
		}
		// A broken transform should fail at load, not at interpret time.
		if err := jqExec.Validate(def.Transform); err != nil {
			return &pkgerrors.ValidationError{
				Field:      "workflows",
				Message:    fmt.Sprintf("workflow %q has an invalid transform: %v", def.ID, err),
				Suggestion: "check the jq expression syntax",
			}
		}
	}
	if c.Watcher.Debounce < 0 {
		return &pkgerrors.ValidationError{
			Field:   "watcher.debounce",
			Message: "debounce must not be negative",
		}
	}
	return nil
}

// HistoryPath resolves the history database location.
func (c *Config) HistoryPath() (string, error) {
	if c.HistoryFile != "" {
		return c.HistoryFile, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
