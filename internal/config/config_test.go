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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attuneai/attune/internal/render"
	pkgerrors "github.com/attuneai/attune/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBinary, cfg.Binary)
	assert.Equal(t, DefaultListenAddr, cfg.Server.Listen)
	assert.Empty(t, cfg.Workflows)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
binary: my-analyzer
work_dir: /srv/project
workflows:
  - id: lint-sweep
    name: Lint Sweep
    args: [lint, --all]
    supports_json: true
    surface: document
    timeout: 90s
routing_rules:
  - when: 'fields.issue_count > 10'
    target: full_document
telemetry:
  cli_binary: my-analyzer
  cli_args: [usage, --json]
  data_file: /var/lib/analyzer/usage.json
watcher:
  paths: [/var/lib/analyzer]
  include: ["*.json"]
  debounce: 2s
server:
  listen: 127.0.0.1:9000
tracing:
  enabled: true
pricing_file: /etc/attune/pricing.yaml
history_file: /var/lib/attune/history.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my-analyzer", cfg.Binary)
	assert.Equal(t, "/srv/project", cfg.WorkDir)

	require.Len(t, cfg.Workflows, 1)
	wf := cfg.Workflows[0]
	assert.Equal(t, "lint-sweep", wf.ID)
	assert.True(t, wf.SupportsJSON)
	assert.Equal(t, 90*time.Second, wf.Timeout)

	require.Len(t, cfg.RoutingRules, 1)
	assert.Equal(t, render.TargetFullDocument, cfg.RoutingRules[0].Target)

	assert.Equal(t, "my-analyzer", cfg.Telemetry.CLIBinary)
	assert.Equal(t, []string{"usage", "--json"}, cfg.Telemetry.CLIArgs)
	assert.Equal(t, 2*time.Second, cfg.Watcher.Debounce)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.True(t, cfg.Tracing.Enabled)

	hist, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/attune/history.db", hist)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "workflows: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *pkgerrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadRejectsWorkflowWithoutID(t *testing.T) {
	path := writeConfig(t, `
workflows:
  - name: Nameless
`)
	_, err := Load(path)
	require.Error(t, err)
	var valErr *pkgerrors.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestLoadRejectsDuplicateWorkflowIDs(t *testing.T) {
	path := writeConfig(t, `
workflows:
  - id: dup
    name: One
  - id: dup
    name: Two
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidTransform(t *testing.T) {
	path := writeConfig(t, `
workflows:
  - id: broken-transform
    name: Broken
    transform: '.summary |'
`)
	_, err := Load(path)
	require.Error(t, err)
	var valErr *pkgerrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Message, "broken-transform")
}

func TestLoadAcceptsValidTransform(t *testing.T) {
	path := writeConfig(t, `
workflows:
  - id: shaped
    name: Shaped
    transform: '{summary: .result.text}'
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Workflows, 1)
	assert.Equal(t, "{summary: .result.text}", cfg.Workflows[0].Transform)
}

func TestLoadRejectsNegativeDebounce(t *testing.T) {
	path := writeConfig(t, `
watcher:
  debounce: -1s
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestConfigDirRespectsXDG(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "attune"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDataDirRespectsXDG(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "attune"), dir)
}
