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

package report

import (
	"regexp"
	"strconv"
)

// fieldPattern extracts one recognized field from free text.
type fieldPattern struct {
	field Field
	re    *regexp.Regexp
	parse func(match string) (any, bool)
}

// fieldPatterns is the single ordered extraction table applied when no JSON
// payload is found. Partial matches are expected; a field is populated only
// when its pattern matches and its value parses.
var fieldPatterns = []fieldPattern{
	{
		// Tolerates decoration between the label and the score,
		// e.g. "Health Score: 💯 87/100".
		field: FieldHealthScore,
		re:    regexp.MustCompile(`(?im)health score:\s*\D*?(\d{1,3})\s*/\s*100`),
		parse: parseInt,
	},
	{
		field: FieldGrade,
		re:    regexp.MustCompile(`(?im)\bgrade:\s*([A-F][+-]?)\b`),
		parse: parseString,
	},
	{
		field: FieldQualityScore,
		re:    regexp.MustCompile(`(?im)\bquality score:\s*(\d+(?:\.\d+)?)`),
		parse: parseFloat,
	},
	{
		field: FieldVerdict,
		re:    regexp.MustCompile(`(?im)\bverdict:\s*([a-z][a-z_]*)`),
		parse: parseString,
	},
	{
		field: FieldCost,
		re:    regexp.MustCompile(`(?im)\bcost:\s*\$(\d+(?:\.\d+)?)`),
		parse: parseFloat,
	},
	{
		field: FieldCoverage,
		re:    regexp.MustCompile(`(?im)\bcoverage:\s*(\d+(?:\.\d+)?)\s*%`),
		parse: parseFloat,
	},
	{
		field: FieldDuration,
		re:    regexp.MustCompile(`(?im)\bduration:\s*(\d+)\s*ms\b`),
		parse: parseInt,
	},
	{
		field: FieldIssueCount,
		re:    regexp.MustCompile(`(?im)\b(\d+)\s+issues?\s+found\b`),
		parse: parseInt,
	},
}

func parseInt(s string) (any, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, false
	}
	return n, true
}

func parseFloat(s string) (any, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

func parseString(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}

// extractPatternFields applies the pattern table to raw text.
func extractPatternFields(raw string) Fields {
	fields := make(Fields)
	for _, p := range fieldPatterns {
		m := p.re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if v, ok := p.parse(m[1]); ok {
			fields[p.field] = v
		}
	}
	return fields
}
