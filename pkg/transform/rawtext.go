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

package transform

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/family"
	"github.com/walteh/capsend/pkg/status"
	"github.com/walteh/capsend/pkg/text"
	"gitlab.com/tozd/go/errors"
)

var rawTextRules = []text.ReplacementRule{text.CustomQuestionRule}

// rawText renames custom question columns of a plain text export in place.
func rawText(ctx context.Context, opts Options, fam *family.Family, path string) (*Result, error) {
	replacer := text.NewRegexTextReplacer()
	if err := replacer.ValidateRules(rawTextRules); err != nil {
		return nil, err
	}

	var rules []text.ReplacementRule
	for _, rule := range rawTextRules {
		if rule.AppliesTo(filepath.Base(path)) {
			rules = append(rules, rule)
		}
	}
	if len(rules) == 0 {
		zerolog.Ctx(ctx).Warn().Str("file", path).Msg("no rewrite rule applies to this name, leaving it as is")
		return &Result{Outputs: []string{path}}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Errorf("stat: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading: %w", err)
	}

	res, err := replacer.ReplaceText(ctx, bytes.NewReader(data), rules)
	if err != nil {
		return nil, errors.Errorf("rewriting: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("file", path).Int("replacements", res.ReplacementCount).Msg("renamed custom questions")

	if res.WasModified {
		if err := status.WriteFileAtomic(path, res.ModifiedContent, info.Mode().Perm()); err != nil {
			return nil, err
		}
	}
	return &Result{Outputs: []string{path}}, nil
}
