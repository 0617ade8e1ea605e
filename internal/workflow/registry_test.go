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

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupBuiltin(t *testing.T) {
	r := NewRegistry()

	d, ok := r.Lookup("security-audit")
	require.True(t, ok)
	assert.Equal(t, SurfaceDocument, d.Surface)
	assert.True(t, d.SupportsJSON)

	_, ok = r.Lookup("no-such-workflow")
	assert.False(t, ok)
}

func TestArgv(t *testing.T) {
	tests := []struct {
		name  string
		def   Definition
		input string
		want  []string
	}{
		{
			name:  "json flag appended",
			def:   Definition{Args: []string{"audit", "security"}, SupportsJSON: true},
			input: ".",
			want:  []string{"audit", "security", ".", JSONOutputFlag},
		},
		{
			name:  "no json support",
			def:   Definition{Args: []string{"cost", "estimate"}},
			input: "",
			want:  []string{"cost", "estimate"},
		},
		{
			name:  "input only",
			def:   Definition{Args: []string{"review"}},
			input: "pkg/",
			want:  []string{"review", "pkg/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.def.Argv(tt.input))
		})
	}
}

func TestMergeOverridesBuiltin(t *testing.T) {
	r := NewRegistry()
	r.Merge([]Definition{
		{ID: "security-audit", Name: "Custom Audit", Args: []string{"my-audit"}, Surface: SurfaceExternal},
		{ID: "license-scan", Name: "License Scan", Args: []string{"scan", "licenses"}},
		{ID: "", Name: "ignored"},
	})

	d, ok := r.Lookup("security-audit")
	require.True(t, ok)
	assert.Equal(t, "Custom Audit", d.Name)
	assert.Equal(t, SurfaceExternal, d.Surface)

	// New entries default to the inline surface.
	d, ok = r.Lookup("license-scan")
	require.True(t, ok)
	assert.Equal(t, SurfaceInline, d.Surface)
}

func TestSurfaceForUnknownDefaultsInline(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, SurfaceInline, r.SurfaceFor("mystery"))
}

func TestListSorted(t *testing.T) {
	r := NewRegistry()
	defs := r.List()
	require.NotEmpty(t, defs)
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].ID, defs[i].ID)
	}
}
