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
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func record(kv ...string) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

func TestRecord_KeyOrder(t *testing.T) {
	r := record("name", "a.pdf", "id", "1")
	r.Set("form_type", "APP")
	r.Set("name", "b.pdf")

	assert.Equal(t, []string{"name", "id", "form_type"}, r.Keys(), "overwrite keeps position")
	assert.Equal(t, "b.pdf", r.Value("name"))
	assert.Equal(t, 3, r.Len())

	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name    string
		records []*Record
		delim   rune
		want    string
		wantErr error
	}{
		{
			name:    "tab_header_from_first_record",
			records: []*Record{record("name", "a.pdf", "form_type", "APP"), record("name", "b.pdf", "form_type", "ST")},
			delim:   '\t',
			want:    "name\tform_type\r\na.pdf\tAPP\r\nb.pdf\tST\r\n",
		},
		{
			name:    "comma_missing_and_extra_keys",
			records: []*Record{record("a", "1", "b", "2"), record("b", "3", "c", "4")},
			delim:   ',',
			want:    "a,b\r\n1,2\r\n,3\r\n",
		},
		{
			name:    "quotes_delimiter_in_value",
			records: []*Record{record("name", "x,y")},
			delim:   ',',
			want:    "name\r\n\"x,y\"\r\n",
		},
		{
			name:    "empty",
			records: nil,
			delim:   '\t',
			wantErr: ErrNoRecords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Write(&buf, tt.records, tt.delim)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteFields_FixedOrder(t *testing.T) {
	data, err := Encode(
		[]string{"filename", "commonapp_id"},
		[]*Record{record("commonapp_id", "7", "filename", "TR_7.pdf", "ignored", "x")},
		'\t',
	)
	require.NoError(t, err)
	assert.Equal(t, "filename\tcommonapp_id\r\nTR_7.pdf\t7\r\n", string(data))
}

func TestWriteFields_HeaderOnly(t *testing.T) {
	data, err := Encode([]string{"filename", "commonapp_id"}, nil, '\t')
	require.NoError(t, err)
	assert.Equal(t, "filename\tcommonapp_id\r\n", string(data))

	_, err = Encode(nil, nil, '\t')
	require.Error(t, err)
}

func TestWriteFile_Empty(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "index.txt"), nil, '\t')
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRecords))
}

func TestRoundTrip(t *testing.T) {
	var records []*Record
	for i := 0; i < 25; i++ {
		records = append(records, record(
			"name", strings.Repeat("f", i+1)+".pdf",
			"last_name", "O'Brien, Jr.",
			"note", "tab\tinside",
			"form_type", "",
		))
	}

	for _, delim := range []rune{'\t', ','} {
		path := filepath.Join(t.TempDir(), "index.txt")
		require.NoError(t, WriteFile(path, records, delim))

		header, got, err := ReadFile(path, delim)
		require.NoError(t, err)
		assert.Equal(t, records[0].Keys(), header)
		require.Len(t, got, len(records))
		for i := range records {
			for _, k := range header {
				assert.Equal(t, records[i].Value(k), got[i].Value(k), "row %d key %s", i, k)
			}
		}
	}
}

func TestRead_Empty(t *testing.T) {
	_, _, err := Read(strings.NewReader(""), '\t')
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRecords))
}
