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

// Package archive holds the zip operations used by the transforms: listing,
// appending an entry, extracting to a scratch directory and building a new
// archive from files on disk.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrUnsafePath is returned for entries that would escape the extraction directory.
var ErrUnsafePath = errors.Base("archive entry escapes destination")

// List returns the entry names of the archive in stored order, directories excluded.
func List(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

// Append adds an entry to an existing archive. Existing entries are copied
// without recompression and the archive is replaced atomically.
func Append(path, name string, data []byte) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return errors.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	return replace(path, func(zw *zip.Writer) error {
		for _, f := range zr.File {
			if err := zw.Copy(f); err != nil {
				return errors.Errorf("copying %s: %w", f.Name, err)
			}
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return errors.Errorf("creating %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return errors.Errorf("writing %s: %w", name, err)
		}
		return nil
	})
}

// Extract writes every file entry of the archive under dir and returns the
// entry names in stored order.
func Extract(path, dir string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", dir, err)
	}

	var names []string
	for _, f := range zr.File {
		dest := filepath.Join(root, filepath.FromSlash(f.Name))
		if dest != root && !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
			return nil, errors.Errorf("%s: %w", f.Name, ErrUnsafePath)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return nil, errors.Errorf("creating %s: %w", f.Name, err)
			}
			continue
		}
		if err := extractFile(f, dest); err != nil {
			return nil, err
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Errorf("creating parent of %s: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return errors.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Errorf("extracting %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing %s: %w", dest, err)
	}
	return nil
}

// Member is one file placed into a new archive.
type Member struct {
	Name string // Entry name inside the archive
	Path string // Source path on disk
}

// Create writes a new archive at path holding members in order. An existing
// file at path is replaced atomically.
func Create(path string, members []Member) error {
	return replace(path, func(zw *zip.Writer) error {
		for _, m := range members {
			if err := addFile(zw, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func addFile(zw *zip.Writer, m Member) error {
	src, err := os.Open(m.Path)
	if err != nil {
		return errors.Errorf("opening %s: %w", m.Path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.Errorf("stat %s: %w", m.Path, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Errorf("header for %s: %w", m.Path, err)
	}
	hdr.Name = m.Name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return errors.Errorf("creating %s: %w", m.Name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return errors.Errorf("writing %s: %w", m.Name, err)
	}
	return nil
}

// replace builds a new archive next to path and renames it over path once
// fill succeeds. The temp file is removed on failure.
func replace(path string, fill func(zw *zip.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp archive: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	if err = fill(zw); err != nil {
		return err
	}
	if err = zw.Close(); err != nil {
		return errors.Errorf("finalizing archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return errors.Errorf("closing temp archive: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Errorf("setting archive mode: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
