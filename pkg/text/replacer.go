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
	"io"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// ReplacementRule defines a single regex substitution
type ReplacementRule struct {
	// Pattern is the regular expression to match
	Pattern *regexp.Regexp

	// Replacement is the expansion template ($1, ${name})
	Replacement string

	// FileFilterGlob limits the rule to matching filenames; empty applies everywhere
	FileFilterGlob string
}

// AppliesTo reports whether the rule should run against filename.
func (r ReplacementRule) AppliesTo(filename string) bool {
	if r.FileFilterGlob == "" {
		return true
	}
	ok, err := doublestar.Match(r.FileFilterGlob, filename)
	return err == nil && ok
}

// ReplacementResult contains the results of a text replacement operation
type ReplacementResult struct {
	// WasModified indicates if any replacements were made
	WasModified bool

	// ReplacementCount is the number of replacements made
	ReplacementCount int

	// OriginalContent is the content before replacements
	OriginalContent []byte

	// ModifiedContent is the content after replacements
	ModifiedContent []byte
}

// TextReplacer defines the interface for text replacement operations
type TextReplacer interface {
	// ReplaceText applies a set of replacement rules to the content
	ReplaceText(ctx context.Context, content io.Reader, rules []ReplacementRule) (*ReplacementResult, error)

	// ValidateRules checks that all rules are valid
	ValidateRules(rules []ReplacementRule) error
}

// RegexTextReplacer implements TextReplacer with regexp substitution
type RegexTextReplacer struct{}

var _ TextReplacer = (*RegexTextReplacer)(nil)

// NewRegexTextReplacer creates a new RegexTextReplacer
func NewRegexTextReplacer() *RegexTextReplacer {
	return &RegexTextReplacer{}
}

// ReplaceText implements TextReplacer.ReplaceText
func (r *RegexTextReplacer) ReplaceText(ctx context.Context, content io.Reader, rules []ReplacementRule) (*ReplacementResult, error) {
	originalContent, err := io.ReadAll(content)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}

	result := &ReplacementResult{
		OriginalContent: originalContent,
		ModifiedContent: originalContent,
	}

	current := originalContent
	for _, rule := range rules {
		if rule.Pattern == nil {
			continue
		}
		matches := len(rule.Pattern.FindAllIndex(current, -1))
		if matches == 0 {
			continue
		}
		current = rule.Pattern.ReplaceAll(current, []byte(rule.Replacement))
		result.ReplacementCount += matches
		result.WasModified = true
	}

	result.ModifiedContent = current
	return result, nil
}

// ValidateRules implements TextReplacer.ValidateRules
func (r *RegexTextReplacer) ValidateRules(rules []ReplacementRule) error {
	for i, rule := range rules {
		if rule.Pattern == nil {
			return errors.Errorf("rule %d: pattern is required", i)
		}
		if rule.FileFilterGlob != "" && !doublestar.ValidatePattern(rule.FileFilterGlob) {
			return errors.Errorf("rule %d: invalid file_filter_glob %q", i, rule.FileFilterGlob)
		}
	}
	return nil
}
