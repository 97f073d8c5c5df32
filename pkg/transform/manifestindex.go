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
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/archive"
	"github.com/walteh/capsend/pkg/family"
	"github.com/walteh/capsend/pkg/index"
	"github.com/walteh/capsend/pkg/manifest"
	"gitlab.com/tozd/go/errors"
)

// manifestIndex converts the XML manifest of an archive into a tab index.
// The archive is then split into chunks or rewritten in place.
func manifestIndex(ctx context.Context, opts Options, fam *family.Family, path string) (*Result, error) {
	scratch, err := os.MkdirTemp(opts.ScratchDir, "capsend-*")
	if err != nil {
		return nil, errors.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	extracted := filepath.Join(scratch, "extract")
	names, err := archive.Extract(path, extracted)
	if err != nil {
		return nil, err
	}

	manifestName := ""
	for _, name := range names {
		if manifest.IsManifest(name, opts.ManifestExtensions) {
			manifestName = name
			break
		}
	}
	if manifestName == "" {
		return nil, errors.WithStack(manifest.ErrNoManifest)
	}

	manifestPath := filepath.Join(extracted, filepath.FromSlash(manifestName))
	m, err := manifest.ReadFile(ctx, manifestPath, opts.ManifestExtensions)
	if err != nil {
		return nil, err
	}
	if len(m.Records) == 0 {
		return nil, errors.Errorf("%s: %w", manifestName, index.ErrNoRecords)
	}
	if err := os.Remove(manifestPath); err != nil {
		return nil, errors.Errorf("removing manifest: %w", err)
	}

	indexName := filepath.Base(manifestPath) + ".txt"
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("archive", path).Str("manifest", manifestName).Int("records", len(m.Records)).Msg("read manifest")

	unlisted := unlistedEntries(names, manifestName, m.Files())
	for _, name := range unlisted {
		logger.Warn().Str("archive", path).Str("entry", name).Msg("entry not named by the manifest, kept without an index row")
	}

	var res *Result
	if opts.InPlace {
		res, err = rewriteInPlace(fam, path, extracted, names, manifestName, indexName, m.Records)
	} else {
		res, err = writeChunks(ctx, fam, path, scratch, extracted, indexName, m.Records, unlisted)
	}
	if err != nil {
		return nil, err
	}
	res.Skipped = unlisted
	return res, nil
}

// unlistedEntries returns the archive entries, other than the manifest,
// that no manifest record names.
func unlistedEntries(names []string, manifestName string, files []string) []string {
	listed := make(map[string]bool, len(files))
	for _, f := range files {
		listed[filepath.ToSlash(f)] = true
	}
	var out []string
	for _, name := range names {
		if name == manifestName || listed[filepath.ToSlash(name)] {
			continue
		}
		out = append(out, name)
	}
	return out
}

// rewriteInPlace replaces the archive with its entries minus the manifest,
// plus the generated index.
func rewriteInPlace(fam *family.Family, path, extracted string, names []string, manifestName, indexName string, records []*index.Record) (*Result, error) {
	indexPath := filepath.Join(filepath.Dir(extracted), indexName)
	if err := index.WriteFile(indexPath, records, fam.Delimiter); err != nil {
		return nil, err
	}

	members := make([]archive.Member, 0, len(names))
	for _, name := range names {
		if name == manifestName {
			continue
		}
		members = append(members, archive.Member{Name: name, Path: filepath.Join(extracted, filepath.FromSlash(name))})
	}
	members = append(members, archive.Member{Name: indexName, Path: indexPath})

	if err := archive.Create(path, members); err != nil {
		return nil, err
	}
	return &Result{Outputs: []string{path}}, nil
}

// writeChunks moves each group's files into a staging dir, writes the group's
// index shard beside them and zips the group. Entries no record names ride
// in the last chunk. The original archive is removed once every chunk
// exists; a failure removes the chunks written so far.
func writeChunks(ctx context.Context, fam *family.Family, path, scratch, extracted, indexName string, records []*index.Record, unlisted []string) (res *Result, err error) {
	logger := zerolog.Ctx(ctx)
	chunks := Partition(records, fam.ChunkSize)
	// every shard repeats the header of the full index
	fields := records[0].Keys()

	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, p := range written {
			if rerr := os.Remove(p); rerr != nil && !os.IsNotExist(rerr) {
				logger.Warn().Err(rerr).Str("chunk", p).Msg("failed to remove partial chunk")
			}
		}
	}()

	for _, c := range chunks {
		staging := filepath.Join(scratch, "chunks", fmt.Sprintf("%03d", c.Index))
		if err := os.MkdirAll(staging, 0o755); err != nil {
			return nil, errors.Errorf("creating staging dir: %w", err)
		}

		files := c.Files
		if c.Index == len(chunks)-1 {
			files = append(append([]string(nil), files...), unlisted...)
		}

		members := make([]archive.Member, 0, len(files)+1)
		for _, name := range files {
			if !filepath.IsLocal(name) {
				return nil, errors.Errorf("manifest file %q: %w", name, archive.ErrUnsafePath)
			}
			dest := filepath.Join(staging, name)
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return nil, errors.Errorf("creating staging dir: %w", err)
			}
			// a name missing from the archive or listed twice fails here
			if err := os.Rename(filepath.Join(extracted, name), dest); err != nil {
				return nil, errors.Errorf("staging %s for chunk %d: %w", name, c.Index, err)
			}
			members = append(members, archive.Member{Name: filepath.ToSlash(name), Path: dest})
		}

		shard := filepath.Join(staging, indexName)
		if err := index.WriteFieldsFile(shard, fields, c.Records, fam.Delimiter); err != nil {
			return nil, errors.Errorf("chunk %d: %w", c.Index, err)
		}
		members = append(members, archive.Member{Name: indexName, Path: shard})

		out := ChunkName(path, c.Index)
		if err := archive.Create(out, members); err != nil {
			return nil, errors.Errorf("chunk %d: %w", c.Index, err)
		}
		written = append(written, out)
		logger.Debug().Str("chunk", out).Int("records", len(c.Records)).Msg("wrote chunk")
	}

	if err := os.Remove(path); err != nil {
		return nil, errors.Errorf("removing original archive: %w", err)
	}
	return &Result{Outputs: written}, nil
}
