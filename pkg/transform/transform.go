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
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/family"
	"github.com/walteh/capsend/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// IndexEntryName is the entry appended to entry-index archives.
const IndexEntryName = "index.txt"

// 📋 Result describes what happened to one dispatched file
type Result struct {
	Path    string      // Input path
	Family  string      // Matched family tag, empty when unmatched
	Outcome log.Outcome // transformed, untouched or failed
	Outputs []string    // Files that now hold the content (chunks or the input itself)
	Skipped []string    // Entries skipped with a warning
	Err     error       // Set when Outcome is failed
}

// 🔧 Options tune the transforms
type Options struct {
	// InPlace rewrites manifest archives in place instead of splitting them into chunks.
	InPlace bool
	// ManifestExtensions recognizes manifest entries; defaults to .xml.
	ManifestExtensions []string
	// ScratchDir is the parent for scratch directories; defaults to the OS temp dir.
	ScratchDir string
}

// Func applies one kind of transform to the file at path.
type Func func(ctx context.Context, opts Options, fam *family.Family, path string) (*Result, error)

var transforms = map[family.Kind]Func{
	family.KindRawText:       rawText,
	family.KindEntryIndex:    entryIndex,
	family.KindManifestIndex: manifestIndex,
}

// 🎯 Dispatcher routes files to the transform of their family
type Dispatcher struct {
	registry *family.Registry
	opts     Options
}

// NewDispatcher creates a dispatcher over an ordered family registry.
func NewDispatcher(registry *family.Registry, opts Options) *Dispatcher {
	return &Dispatcher{registry: registry, opts: opts}
}

// Dispatch classifies path by its base name and applies the matching
// transform. A file that matches no family is left untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, path string) (*Result, error) {
	name := filepath.Base(path)
	fam, ok := d.registry.Classify(name)
	if !ok {
		zerolog.Ctx(ctx).Info().Str("file", path).Msg("no matching family, leaving untouched")
		return &Result{Path: path, Outcome: log.OutcomeUntouched}, nil
	}

	fn, ok := transforms[fam.Kind]
	if !ok {
		return nil, errors.Errorf("family %s: unknown transform kind %q", fam.Tag, fam.Kind)
	}

	zerolog.Ctx(ctx).Debug().Str("file", path).Str("family", fam.Tag).Str("kind", string(fam.Kind)).Msg("dispatching")
	res, err := fn(ctx, d.opts, fam, path)
	if err != nil {
		return nil, errors.Errorf("%s (%s): %w", path, fam.Tag, err)
	}
	res.Path = path
	res.Family = fam.Tag
	res.Outcome = log.OutcomeTransformed
	return res, nil
}

// DispatchAll runs Dispatch over paths in order. A failing file is reported
// in its Result and the batch moves on to the next file.
func (d *Dispatcher) DispatchAll(ctx context.Context, paths []string) []*Result {
	ulog := log.FromContext(ctx)
	results := make([]*Result, 0, len(paths))

	for _, path := range paths {
		res, err := d.Dispatch(ctx, path)
		if err != nil {
			fam, _ := d.registry.Classify(filepath.Base(path))
			res = &Result{Path: path, Outcome: log.OutcomeFailed, Err: err}
			if fam != nil {
				res.Family = fam.Tag
			}
			zerolog.Ctx(ctx).Error().Err(err).Str("file", path).Msg("transform failed")
		}
		ulog.LogArchiveOperation(ctx, log.ArchiveOperation{
			Path:    filepath.Base(path),
			Family:  res.Family,
			Outcome: res.Outcome,
			Outputs: res.Outputs,
			Skipped: len(res.Skipped),
			Err:     res.Err,
		})
		results = append(results, res)
	}
	return results
}
