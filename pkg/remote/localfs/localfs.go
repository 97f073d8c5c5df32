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

// Package localfs serves a local directory as both ends of a transfer, for
// dry runs, tests and exports that were fetched by hand.
package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

var (
	_ remote.Source = (*Dir)(nil)
	_ remote.Stater = (*Dir)(nil)
	_ remote.Sink   = (*Dir)(nil)
)

// 📂 Dir is a local directory acting as a remote
type Dir struct {
	root string
}

// New returns a Dir rooted at root.
func New(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) resolve(name string) (string, error) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if name == "" {
		return d.root, nil
	}
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", errors.Errorf("path %q escapes %s", name, d.root)
	}
	return filepath.Join(d.root, filepath.FromSlash(name)), nil
}

// List returns regular files in the root matching pattern, sorted.
func (d *Dir) List(ctx context.Context, pattern string) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", d.root, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ok, err := doublestar.Match(pattern, e.Name())
		if err != nil {
			return nil, errors.Errorf("matching %q: %w", pattern, err)
		}
		if ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Stat returns the size of name.
func (d *Dir) Stat(ctx context.Context, name string) (int64, error) {
	path, err := d.resolve(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.Errorf("%s: %w", name, remote.ErrNotFound)
		}
		return 0, errors.Errorf("stat %s: %w", name, err)
	}
	return info.Size(), nil
}

// Fetch copies name from the root into dir.
func (d *Dir) Fetch(ctx context.Context, name, dir string) (string, error) {
	src, err := d.resolve(name)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(dir, filepath.Base(src))
	if err := copyFile(src, dest); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errors.Errorf("%s: %w", name, remote.ErrNotFound)
		}
		return "", err
	}
	zerolog.Ctx(ctx).Debug().Str("file", name).Str("dest", dest).Msg("fetched from local directory")
	return dest, nil
}

// Upload copies localPath into the destination subdirectory of the root.
func (d *Dir) Upload(ctx context.Context, localPath, destination string) error {
	dir, err := d.resolve(destination)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Errorf("creating %s: %w", dir, err)
	}
	dest := filepath.Join(dir, filepath.Base(localPath))
	if err := copyFile(localPath, dest); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("file", localPath).Str("dest", dest).Msg("uploaded to local directory")
	return nil
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return errors.Errorf("copying %s: %w", src, err)
	}
	if err = tmp.Close(); err != nil {
		return errors.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Errorf("setting mode: %w", err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return errors.Errorf("renaming to %s: %w", dest, err)
	}
	return nil
}
