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

package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries ...string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for i := 0; i+1 < len(entries); i += 2 {
		w, err := zw.Create(entries[i])
		require.NoError(t, err)
		_, err = w.Write([]byte(entries[i+1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func readEntry(t *testing.T, path, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(data)
		}
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.zip")
	writeZip(t, path, "a.pdf", "A", "b.pdf", "B")

	require.NoError(t, Append(path, "index.txt", []byte("filename\r\na.pdf\r\n")))

	names, err := List(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf", "index.txt"}, names)
	assert.Equal(t, "A", readEntry(t, path, "a.pdf"), "existing entries are preserved")
	assert.Equal(t, "filename\r\na.pdf\r\n", readEntry(t, path, "index.txt"))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestAppend_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	err := Append(path, "index.txt", nil)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not a zip", string(data), "original untouched on failure")
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.zip")
	writeZip(t, path, "manifest.xml", "<files/>", "docs/a.pdf", "A")

	out := filepath.Join(dir, "out")
	names, err := Extract(path, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"manifest.xml", "docs/a.pdf"}, names)

	data, err := os.ReadFile(filepath.Join(out, "docs", "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "A", string(data))
}

func TestExtract_UnsafePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil.zip")
	writeZip(t, path, "../escape.txt", "x")

	_, err := Extract(path, filepath.Join(dir, "out"))
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "idx"), []byte("I"), 0o644))

	path := filepath.Join(dir, "out.zip")
	require.NoError(t, Create(path, []Member{
		{Name: "a.pdf", Path: filepath.Join(dir, "a.pdf")},
		{Name: "index.xml.txt", Path: filepath.Join(dir, "idx")},
	}))

	names, err := List(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "index.xml.txt"}, names)
	assert.Equal(t, "I", readEntry(t, path, "index.xml.txt"))
}

func TestCreate_MissingMember(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.zip")

	err := Create(path, []Member{{Name: "a.pdf", Path: filepath.Join(dir, "missing.pdf")}})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no partial archive left behind")
}
