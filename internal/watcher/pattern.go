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

package watcher

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// PatternMatcher filters filesystem events by include and exclude globs.
// Patterns use doublestar syntax, so ** crosses path separators.
type PatternMatcher struct {
	include []string
	exclude []string
}

// NewPatternMatcher validates the globs up front so a bad pattern fails at
// startup rather than silently matching nothing. Empty include means match
// everything; excludes always win.
func NewPatternMatcher(include, exclude []string) (*PatternMatcher, error) {
	for _, pattern := range include {
		if _, err := doublestar.Match(pattern, "probe"); err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range exclude {
		if _, err := doublestar.Match(pattern, "probe"); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}
	return &PatternMatcher{include: include, exclude: exclude}, nil
}

// Match reports whether path passes the filter. Each pattern is tried
// against both the full path and the base name, so "usage.json" matches the
// file wherever it lives.
func (pm *PatternMatcher) Match(path string) bool {
	included := len(pm.include) == 0
	for _, pattern := range pm.include {
		if matchPattern(pattern, path) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range pm.exclude {
		if matchPattern(pattern, path) {
			return false
		}
	}
	return true
}

func matchPattern(pattern, path string) bool {
	if matched, _ := doublestar.PathMatch(pattern, path); matched {
		return true
	}
	matched, _ := doublestar.Match(pattern, filepath.Base(path))
	return matched
}

// DefaultExcludePatterns covers editor temp files and swap artifacts that
// would otherwise fire spurious refreshes.
func DefaultExcludePatterns() []string {
	return []string{
		"*.swp",
		"*.swo",
		"*~",
		"#*#",
		".#*",
		"*.tmp",
		"*.temp",
		".DS_Store",
	}
}
