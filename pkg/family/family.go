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

package family

import (
	"regexp"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Kind selects the transform applied to archives of a family
type Kind string

const (
	KindRawText       Kind = "raw-text"       // regex rewrite of a plain text export
	KindEntryIndex    Kind = "entry-index"    // index.txt derived from entry filenames
	KindManifestIndex Kind = "manifest-index" // index derived from an embedded XML manifest
)

// Delimiters used by index files.
const (
	Tab   = '\t'
	Comma = ','
)

// DefaultChunkSize is the maximum number of records per chunk archive.
const DefaultChunkSize = 100

// 📦 Family is a category of inbound file sharing one filename convention and one transform
type Family struct {
	Tag            string         // Stable name of the family
	Kind           Kind           // Transform selector
	ArchivePattern *regexp.Regexp // Prefix-anchored match against the bare archive filename
	EntryPattern   *regexp.Regexp // Named captures extracted from each archive entry (entry-index only)
	Fields         []string       // Index column order (entry-index only)
	Delimiter      rune           // Index field delimiter
	ChunkSize      int            // Records per chunk (manifest-index only)
}

// Match reports whether the bare filename selects this family.
func (f *Family) Match(filename string) bool {
	return f.ArchivePattern.MatchString(filename)
}

// Capture applies the entry pattern to name and returns the named groups.
// ok is false when the pattern does not match.
func (f *Family) Capture(name string) (map[string]string, bool) {
	if f.EntryPattern == nil {
		return nil, false
	}
	m := f.EntryPattern.FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for i, group := range f.EntryPattern.SubexpNames() {
		if group == "" {
			continue
		}
		out[group] = m[i]
	}
	return out, true
}

// 🗂️ Registry is an ordered list of families; earlier entries win
type Registry struct {
	families []*Family
}

// NewRegistry builds a registry preserving the given order.
func NewRegistry(families ...*Family) (*Registry, error) {
	seen := make(map[string]bool, len(families))
	for _, f := range families {
		if f.Tag == "" {
			return nil, errors.Errorf("family tag is required")
		}
		if seen[f.Tag] {
			return nil, errors.Errorf("duplicate family tag: %s", f.Tag)
		}
		seen[f.Tag] = true
		if f.ArchivePattern == nil {
			return nil, errors.Errorf("family %s: archive pattern is required", f.Tag)
		}
		if f.Kind == KindEntryIndex && (f.EntryPattern == nil || len(f.Fields) == 0) {
			return nil, errors.Errorf("family %s: entry pattern and fields are required", f.Tag)
		}
	}
	return &Registry{families: families}, nil
}

// Classify returns the first family whose archive pattern matches filename.
func (r *Registry) Classify(filename string) (*Family, bool) {
	for _, f := range r.families {
		if f.Match(filename) {
			return f, true
		}
	}
	return nil, false
}

// Families returns the registry in priority order.
func (r *Registry) Families() []*Family {
	out := make([]*Family, len(r.families))
	copy(out, r.families)
	return out
}

// Lookup finds a family by tag.
func (r *Registry) Lookup(tag string) (*Family, bool) {
	for _, f := range r.families {
		if f.Tag == tag {
			return f, true
		}
	}
	return nil, false
}

// prefix compiles pattern so it only matches at the start of the input.
func prefix(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + pattern + `)`)
}
