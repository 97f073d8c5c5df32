// Copyright 2025 walteh LLC
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

package text

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renameCustomQuestions(t *testing.T, s string) string {
	t.Helper()
	res, err := NewRegexTextReplacer().ReplaceText(context.Background(), strings.NewReader(s), []ReplacementRule{CustomQuestionRule})
	require.NoError(t, err)
	return string(res.ModifiedContent)
}

func TestCustomQuestionRule(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "header_column",
			content: "id\tcustom_questions_12_favorite_color\tlast_name\r\n",
			want:    "id\tfavorite_color_12\tlast_name\r\n",
		},
		{
			name:    "multiple_columns",
			content: "custom_questions_1_a\tcustom_questions_2_b_c\n",
			want:    "a_1\tb_c_2\n",
		},
		{
			name:    "end_of_content_untouched",
			content: "custom_questions_3_last",
			want:    "custom_questions_3_last",
		},
		{
			name:    "no_match",
			content: "id\tname\n",
			want:    "id\tname\n",
		},
		{
			name:    "empty",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renameCustomQuestions(t, tt.content))
		})
	}
}

func TestCustomQuestionRule_FixedPoint(t *testing.T) {
	sample := "custom_questions_12_favorite_color\tother\n"

	once := renameCustomQuestions(t, sample)
	assert.Equal(t, "favorite_color_12\tother\n", once)

	twice := renameCustomQuestions(t, once)
	assert.Equal(t, once, twice, "second pass finds nothing left to move")
}

func TestRegexTextReplacer_ReplaceText(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		rules        []ReplacementRule
		want         string
		wantCount    int
		wantModified bool
	}{
		{
			name:         "custom_questions",
			content:      "custom_questions_1_a\tcustom_questions_2_b\n",
			rules:        []ReplacementRule{CustomQuestionRule},
			want:         "a_1\tb_2\n",
			wantCount:    2,
			wantModified: true,
		},
		{
			name:    "multiple_rules",
			content: "Hello World",
			rules: []ReplacementRule{
				{Pattern: regexp.MustCompile(`Hello`), Replacement: "Hi"},
				{Pattern: regexp.MustCompile(`W(or)ld`), Replacement: "${1}b"},
			},
			want:         "Hi orb",
			wantCount:    2,
			wantModified: true,
		},
		{
			name:         "no_match",
			content:      "Hello World",
			rules:        []ReplacementRule{CustomQuestionRule},
			want:         "Hello World",
			wantCount:    0,
			wantModified: false,
		},
		{
			name:         "nil_pattern_skipped",
			content:      "Hello",
			rules:        []ReplacementRule{{Replacement: "x"}},
			want:         "Hello",
			wantModified: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewRegexTextReplacer().ReplaceText(context.Background(), strings.NewReader(tt.content), tt.rules)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(result.OriginalContent))
			assert.Equal(t, tt.want, string(result.ModifiedContent))
			assert.Equal(t, tt.wantCount, result.ReplacementCount)
			assert.Equal(t, tt.wantModified, result.WasModified)
		})
	}
}

func TestRegexTextReplacer_ValidateRules(t *testing.T) {
	tests := []struct {
		name      string
		rules     []ReplacementRule
		wantError string
	}{
		{name: "valid", rules: []ReplacementRule{CustomQuestionRule}},
		{name: "valid_glob", rules: []ReplacementRule{{Pattern: regexp.MustCompile(`x`), FileFilterGlob: "*_TR_*.txt"}}},
		{name: "missing_pattern", rules: []ReplacementRule{{Replacement: "x"}}, wantError: "pattern is required"},
		{name: "bad_glob", rules: []ReplacementRule{{Pattern: regexp.MustCompile(`x`), FileFilterGlob: "[abc"}}, wantError: "invalid file_filter_glob"},
		{name: "empty", rules: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegexTextReplacer().ValidateRules(tt.rules)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestReplacementRule_AppliesTo(t *testing.T) {
	rule := ReplacementRule{FileFilterGlob: "*_TR_Applications.txt"}
	assert.True(t, rule.AppliesTo("10_18_2026_TR_Applications.txt"))
	assert.False(t, rule.AppliesTo("10_18_2026_TR_Applications.zip"))
	assert.True(t, CustomQuestionRule.AppliesTo("03_07_2024_TR_Applications.txt"))
	assert.False(t, CustomQuestionRule.AppliesTo("03_07_2024_TR_Applications.txt.bak"))
	assert.True(t, ReplacementRule{}.AppliesTo("anything"), "no glob applies everywhere")
}
