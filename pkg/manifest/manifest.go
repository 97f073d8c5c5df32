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

package manifest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/family"
	"github.com/walteh/capsend/pkg/index"
	"gitlab.com/tozd/go/errors"
)

const (
	// ElementFile is the top-level element describing one document.
	ElementFile = "file"
	// AttrName carries the document filename.
	AttrName = "name"
	// FieldFormType is the derived column appended to every record.
	FieldFormType = "form_type"
)

var (
	// ErrMissingName is returned when a file element has no name attribute.
	ErrMissingName = errors.Base("manifest entry missing name attribute")
	// ErrNoManifest is returned when an archive holds no manifest entry.
	ErrNoManifest = errors.Base("no manifest found in archive")
)

// DefaultExtensions are the entry suffixes recognized as manifests.
var DefaultExtensions = []string{".xml"}

// 📄 Manifest is the parsed XML index of a freshman batch
type Manifest struct {
	Source  string          // File or archive entry the manifest was read from
	Records []*index.Record // One record per file element, in document order
}

// Files returns the document filenames in record order.
func (m *Manifest) Files() []string {
	out := make([]string, 0, len(m.Records))
	for _, r := range m.Records {
		out = append(out, r.Value(AttrName))
	}
	return out
}

type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

// Parse extracts one record per top-level file element of data.
func Parse(ctx context.Context, data []byte) ([]*index.Record, error) {
	var root element
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return nil, errors.Errorf("parsing manifest XML: %w", err)
	}

	var records []*index.Record
	for i, node := range root.Children {
		if node.XMLName.Local != ElementFile {
			continue
		}
		rec, err := parseNode(node)
		if err != nil {
			return nil, errors.Errorf("file element %d: %w", i, err)
		}
		records = append(records, rec)
	}

	zerolog.Ctx(ctx).Debug().Int("records", len(records)).Msg("parsed manifest")
	return records, nil
}

// parseNode flattens a file element and its first-level children into one record.
func parseNode(node element) (*index.Record, error) {
	rec := index.NewRecord()
	mergeAttributes(rec, node.Attrs)
	for _, child := range node.Children {
		mergeAttributes(rec, child.Attrs)
	}

	name, ok := rec.Get(AttrName)
	if !ok {
		return nil, errors.WithStack(ErrMissingName)
	}
	formType, _ := family.FormType(name)
	rec.Set(FieldFormType, formType)
	return rec, nil
}

// mergeAttributes copies attrs into rec. A key already present is
// overwritten, so attributes merged later win over earlier ones.
func mergeAttributes(rec *index.Record, attrs []xml.Attr) {
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		rec.Set(a.Name.Local, a.Value)
	}
}

// IsManifest reports whether name ends in one of the manifest extensions.
func IsManifest(name string, extensions []string) bool {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// ReadFile loads a manifest from an .xml file or from the first manifest
// entry of a .zip archive.
func ReadFile(ctx context.Context, path string, extensions []string) (*Manifest, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return ReadZip(ctx, path, extensions)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading manifest: %w", err)
	}
	records, err := Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("%s: %w", path, err)
	}
	return &Manifest{Source: path, Records: records}, nil
}

// ReadZip loads the first manifest entry found in the archive at path.
func ReadZip(ctx context.Context, path string, extensions []string) (*Manifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !IsManifest(f.Name, extensions) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Errorf("opening %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", f.Name, err)
		}
		records, err := Parse(ctx, data)
		if err != nil {
			return nil, errors.Errorf("%s!%s: %w", path, f.Name, err)
		}
		return &Manifest{Source: f.Name, Records: records}, nil
	}

	return nil, errors.Errorf("%s: %w", path, ErrNoManifest)
}
