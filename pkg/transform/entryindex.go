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

	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/archive"
	"github.com/walteh/capsend/pkg/family"
	"github.com/walteh/capsend/pkg/index"
	"gitlab.com/tozd/go/errors"
)

// entryIndex derives one index row per archive entry from its filename and
// appends the index to the archive as index.txt.
func entryIndex(ctx context.Context, opts Options, fam *family.Family, path string) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	names, err := archive.List(path)
	if err != nil {
		return nil, err
	}

	res := &Result{Outputs: []string{path}}
	records := make([]*index.Record, 0, len(names))
	for _, name := range names {
		if name == IndexEntryName {
			logger.Warn().Str("archive", path).Msg("archive already has an index entry")
			continue
		}
		captures, ok := fam.Capture(name)
		if !ok {
			logger.Warn().Str("archive", path).Str("entry", name).Msg("error parsing filename, skipping entry")
			res.Skipped = append(res.Skipped, name)
			continue
		}
		records = append(records, index.RecordFrom(fam.Fields, captures))
	}

	data, err := index.Encode(fam.Fields, records, fam.Delimiter)
	if err != nil {
		return nil, errors.Errorf("building index: %w", err)
	}
	if err := archive.Append(path, IndexEntryName, data); err != nil {
		return nil, errors.Errorf("appending index: %w", err)
	}

	logger.Debug().Str("archive", path).Int("rows", len(records)).Int("skipped", len(res.Skipped)).Msg("appended index")
	return res, nil
}
