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

package status

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📊 FileStatus represents where a file is in the pipeline
type FileStatus int

const (
	StatusUnknown     FileStatus = iota
	StatusDownloaded             // Fetched from the source
	StatusTransformed            // Rewritten or produced by a transform
	StatusUntouched              // No family matched
	StatusUploaded               // Delivered to the sink
	StatusFailed                 // Any stage failed
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusTransformed:
		return "transformed"
	case StatusUntouched:
		return "untouched"
	case StatusUploaded:
		return "uploaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📄 FileInfo contains metadata about a file in the workspace
type FileInfo struct {
	Name   string     // File name relative to the workspace
	Status FileStatus // Current status
	Size   int64      // File size in bytes
	Error  error      // Any error associated with this file
}

// 🔧 Manager owns the local working directory of one run and tracks file status
type Manager struct {
	baseDir   string
	formatter FileFormatter

	mu    sync.RWMutex
	files map[string]FileInfo

	total     int
	processed int
}

// 🏭 NewManager creates a status manager rooted at baseDir
func NewManager(baseDir string, formatter FileFormatter) *Manager {
	if formatter == nil {
		formatter = NewDefaultFileFormatter()
	}
	return &Manager{
		baseDir:   filepath.Clean(baseDir),
		formatter: formatter,
		files:     make(map[string]FileInfo),
	}
}

// Dir returns the workspace directory.
func (m *Manager) Dir() string {
	return m.baseDir
}

// Path returns the absolute path of name inside the workspace.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.baseDir, name)
}

// 🧹 Prepare creates the workspace and removes files left by a previous run
func (m *Manager) Prepare(ctx context.Context) error {
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return errors.Errorf("creating workspace: %w", err)
	}
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return errors.Errorf("reading workspace: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(m.Path(e.Name())); err != nil {
			return errors.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	zerolog.Ctx(ctx).Debug().Str("dir", m.baseDir).Int("removed", len(entries)).Msg("prepared workspace")
	return nil
}

// 📂 ListFiles returns the regular files currently in the workspace, sorted by name
func (m *Manager) ListFiles(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, errors.Errorf("reading workspace: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// WriteFileAtomic writes content to path through a temp file in the same directory.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting mode: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// 📌 TrackFile records the status of a workspace file
func (m *Manager) TrackFile(ctx context.Context, name string, info FileInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info.Name = name
	m.files[name] = info

	msg := m.formatter.FormatFileOperation(name, info.Status)
	if info.Error != nil {
		msg = m.formatter.FormatError(info.Error)
	}
	zerolog.Ctx(ctx).Debug().Str("file", name).Str("status", info.Status.String()).Msg(msg)
}

// GetFileInfo returns the tracked status of name.
func (m *Manager) GetFileInfo(ctx context.Context, name string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.files[name]
	if !ok {
		return FileInfo{}, errors.Errorf("file not tracked: %s", name)
	}
	return info, nil
}

// Tracked returns every tracked file, sorted by name.
func (m *Manager) Tracked(ctx context.Context) []FileInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]FileInfo, 0, len(m.files))
	for _, info := range m.files {
		files = append(files, info)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}

// Count returns how many tracked files have status s.
func (m *Manager) Count(s FileStatus) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, info := range m.files {
		if info.Status == s {
			n++
		}
	}
	return n
}

func (m *Manager) StartOperation(ctx context.Context, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = total
	m.processed = 0
	zerolog.Ctx(ctx).Info().Int("total", total).Msg(m.formatter.FormatProgress(0, total))
}

func (m *Manager) UpdateProgress(ctx context.Context, processed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.processed = processed
	zerolog.Ctx(ctx).Debug().
		Int("processed", processed).
		Int("total", m.total).
		Msg(m.formatter.FormatProgress(processed, m.total))
}

func (m *Manager) FinishOperation(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Int("processed", m.processed).
		Int("total", m.total).
		Msg(m.formatter.FormatProgress(m.processed, m.total))
}
