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

package index

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"

	"gitlab.com/tozd/go/errors"
)

// ErrNoRecords is returned when an index would have no header to derive.
var ErrNoRecords = errors.Base("no records to index")

// Write writes a header taken from the first record's keys followed by one
// row per record. Later records lose keys outside the header and get empty
// cells for header keys they lack.
func Write(w io.Writer, records []*Record, delim rune) error {
	if len(records) == 0 {
		return errors.WithStack(ErrNoRecords)
	}
	return WriteFields(w, records[0].Keys(), records, delim)
}

// WriteFields writes records using a fixed header. With no records only the
// header row is written.
func WriteFields(w io.Writer, fields []string, records []*Record, delim rune) error {
	if len(fields) == 0 {
		return errors.Errorf("index header is empty")
	}
	cw := newWriter(w, delim)
	if err := cw.Write(fields); err != nil {
		return errors.Errorf("writing header: %w", err)
	}
	row := make([]string, len(fields))
	for i, rec := range records {
		for j, f := range fields {
			row[j] = rec.Value(f)
		}
		if err := cw.Write(row); err != nil {
			return errors.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Errorf("flushing index: %w", err)
	}
	return nil
}

// Encode renders records with a fixed header into memory.
func Encode(fields []string, records []*Record, delim rune) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteFields(&buf, fields, records, delim); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes an index with a header derived from the first record.
func WriteFile(path string, records []*Record, delim rune) error {
	if len(records) == 0 {
		return errors.WithStack(ErrNoRecords)
	}
	return WriteFieldsFile(path, records[0].Keys(), records, delim)
}

// WriteFieldsFile writes an index with a fixed header to path.
func WriteFieldsFile(path string, fields []string, records []*Record, delim rune) error {
	data, err := Encode(fields, records, delim)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Errorf("writing index %s: %w", path, err)
	}
	return nil
}

// Read parses an index written by Write.
func Read(r io.Reader, delim rune) ([]string, []*Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.WithStack(ErrNoRecords)
	}
	if err != nil {
		return nil, nil, errors.Errorf("reading header: %w", err)
	}

	var records []*Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Errorf("reading row %d: %w", len(records), err)
		}
		rec := NewRecord()
		for i, f := range header {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			rec.Set(f, v)
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// ReadFile parses the index at path.
func ReadFile(path string, delim rune) ([]string, []*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Errorf("opening index: %w", err)
	}
	defer f.Close()
	return Read(f, delim)
}

func newWriter(w io.Writer, delim rune) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	cw.UseCRLF = true
	return cw
}
