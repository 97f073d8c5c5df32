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

package operation

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/capsend/pkg/config"
	"github.com/walteh/capsend/pkg/family"
	"github.com/walteh/capsend/pkg/remote"
	"github.com/walteh/capsend/pkg/remote/localfs"
	"github.com/walteh/capsend/pkg/state"
	"github.com/walteh/capsend/pkg/status"
	"github.com/walteh/capsend/pkg/transform"
	"gitlab.com/tozd/go/errors"
)

var runDate = time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// seedExports fills dir with the exports of runDate for four of the six
// built-in sources. The forms archive has no manifest and fails to transform.
func seedExports(t *testing.T, dir string) {
	t.Helper()

	var xml strings.Builder
	xml.WriteString(`<?xml version="1.0"?><files>`)
	app := map[string]string{}
	for i := range 150 {
		name := fmt.Sprintf("%d!%d_ST_%d.pdf", 5000+i, i, i)
		fmt.Fprintf(&xml, `<file name="%s" id="%d"/>`, name, i)
		app[name] = "pdf"
	}
	xml.WriteString(`</files>`)
	app["manifest.xml"] = xml.String()
	writeZip(t, filepath.Join(dir, "ugaappl_03072024.zip"), app)

	writeZip(t, filepath.Join(dir, "ugaapplsform_03072024.zip"), map[string]string{"orphan.pdf": "pdf"})
	writeZip(t, filepath.Join(dir, "03_07_2024_TR_Evaluations.zip"), map[string]string{
		"TR_55_Roe_Rich_901_Evaluation_Counselor_x.pdf": "pdf",
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "03_07_2024_TR_Applications.txt"),
		[]byte("id\tcustom_questions_4_major\r\n1\tmath\r\n"), 0o644))
}

type failingSink struct{}

func (failingSink) Upload(ctx context.Context, localPath, destination string) error {
	return errors.New("connection reset")
}

type harness struct {
	exports string
	out     string
	slate   string
	ledger  *state.Ledger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		exports: filepath.Join(root, "exports"),
		out:     filepath.Join(root, "out"),
		slate:   filepath.Join(root, "slate"),
	}
	require.NoError(t, os.MkdirAll(h.exports, 0o755))
	seedExports(t, h.exports)

	l, err := state.Open(setupTestLogger(t), state.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	h.ledger = l
	return h
}

func (h *harness) options(sink remote.Sink) Options {
	return Options{
		Sources:    config.BuiltinSources(),
		Date:       runDate,
		StatusMgr:  status.NewManager(h.out, nil),
		Dispatcher: transform.NewDispatcher(family.Default(100), transform.Options{}),
		Source:     localfs.New(h.exports),
		Sinks:      remote.Sinks{config.TransportSFTP: sink},
		Ledger:     h.ledger,
	}
}

func TestSyncOperation(t *testing.T) {
	ctx := setupTestLogger(t)
	h := newHarness(t)

	// stale file from a previous run is cleared by the download stage
	require.NoError(t, os.MkdirAll(h.out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(h.out, "ugaappl_03062024_000.zip"), []byte("old"), 0o644))

	op := NewSyncOperation(h.options(localfs.New(h.slate)))
	require.NoError(t, op.Execute(ctx))

	report := op.Report()
	assert.Equal(t, 4, report.Fetched)
	assert.Equal(t, 2, report.Missing, "applications zip and transcripts are absent")
	assert.Equal(t, 3, report.Transformed)
	assert.Equal(t, 1, report.TransformFailed)
	assert.Equal(t, 4, report.Uploaded)
	assert.Equal(t, 1, report.Skipped, "failed forms archive is held back")
	assert.Equal(t, 0, report.UploadFailed)
	assert.Len(t, report.Failures, 3)

	freshman := filepath.Join(h.slate, "incoming", "oua", "commonapp")
	transfer := filepath.Join(h.slate, "incoming", "oua", "commonapp_transfer")
	for _, path := range []string{
		filepath.Join(freshman, "ugaappl_03072024_000.zip"),
		filepath.Join(freshman, "ugaappl_03072024_001.zip"),
		filepath.Join(transfer, "03_07_2024_TR_Evaluations.zip"),
		filepath.Join(transfer, "03_07_2024_TR_Applications.txt"),
	} {
		assert.FileExists(t, path)
	}
	assert.NoFileExists(t, filepath.Join(freshman, "ugaapplsform_03072024.zip"))
	assert.NoFileExists(t, filepath.Join(freshman, "ugaappl_03062024_000.zip"))

	data, err := os.ReadFile(filepath.Join(transfer, "03_07_2024_TR_Applications.txt"))
	require.NoError(t, err)
	assert.Equal(t, "id\tmajor_4\r\n1\tmath\r\n", string(data))

	delivered, err := h.ledger.Delivered(ctx, runDate, "cap_applications", "ugaappl_03072024_001.zip")
	require.NoError(t, err)
	assert.True(t, delivered)
}

func TestSyncOperation_Resume(t *testing.T) {
	ctx := setupTestLogger(t)
	h := newHarness(t)

	first := NewSyncOperation(h.options(localfs.New(h.slate)))
	require.NoError(t, first.Execute(ctx))
	require.Equal(t, 4, first.Report().Uploaded)

	opts := h.options(failingSink{})
	opts.Resume = true
	second := NewSyncOperation(opts)
	require.NoError(t, second.Execute(ctx), "nothing is re-sent, so the broken sink is never called")

	report := second.Report()
	assert.Equal(t, 0, report.Uploaded)
	assert.Equal(t, 5, report.Skipped)
	assert.Equal(t, 0, report.UploadFailed)
}

func TestSyncOperation_UploadFailures(t *testing.T) {
	ctx := setupTestLogger(t)
	h := newHarness(t)

	opts := h.options(failingSink{})
	opts.Concurrency = 3
	op := NewSyncOperation(opts)
	err := op.Execute(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUploadFailed))

	report := op.Report()
	assert.Equal(t, 4, report.UploadFailed)
	assert.Equal(t, 0, report.Uploaded)

	delivered, err := h.ledger.Delivered(ctx, runDate, "capx_evaluations", "03_07_2024_TR_Evaluations.zip")
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestSyncOperation_SkipStages(t *testing.T) {
	ctx := setupTestLogger(t)
	h := newHarness(t)

	// transform only, straight out of a prepared workspace
	opts := h.options(nil)
	opts.StatusMgr = status.NewManager(h.exports, nil)
	opts.Source = nil
	opts.Sinks = nil
	op := NewSyncOperation(opts)
	require.NoError(t, op.Execute(ctx))

	report := op.Report()
	assert.Equal(t, 0, report.Fetched)
	assert.Equal(t, 3, report.Transformed)
	assert.Equal(t, 0, report.Uploaded+report.Skipped)
	assert.FileExists(t, filepath.Join(h.exports, "ugaappl_03072024_000.zip"))
	assert.NoDirExists(t, h.slate)
}

func TestStatusOperation(t *testing.T) {
	ctx := setupTestLogger(t)
	h := newHarness(t)

	require.NoError(t, NewSyncOperation(h.options(localfs.New(h.slate))).Execute(ctx))

	var out bytes.Buffer
	op := NewStatusOperation(h.options(nil), &out)
	require.NoError(t, op.Execute(ctx))

	byName := map[string]SourceStatus{}
	for _, st := range op.Result() {
		byName[st.Source] = st
	}
	require.Len(t, byName, 6)
	assert.Equal(t, []string{"ugaappl_03072024_000.zip", "ugaappl_03072024_001.zip"}, byName["cap_applications"].Delivered)
	assert.True(t, byName["capx_evaluations"].Done())
	assert.False(t, byName["cap_forms"].Done())
	assert.False(t, byName["capx_college_transcripts"].Done())
	assert.Contains(t, out.String(), "03_07_2024_TR_College_Transcript.zip")
}

func TestCleanOperation(t *testing.T) {
	ctx := setupTestLogger(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.zip"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "keep"), 0o755))

	op := NewCleanOperation(Options{StatusMgr: status.NewManager(dir, nil)})
	require.NoError(t, NewRunner(nil, false).Run(ctx, op))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep", entries[0].Name())
}

func TestTransformOperation(t *testing.T) {
	ctx := setupTestLogger(t)
	dir := t.TempDir()
	seedExports(t, dir)

	paths := []string{
		filepath.Join(dir, "ugaapplsform_03072024.zip"),
		filepath.Join(dir, "03_07_2024_TR_Evaluations.zip"),
		filepath.Join(dir, "notes.md"),
	}
	op := NewTransformOperation(Options{
		Dispatcher: transform.NewDispatcher(family.Default(100), transform.Options{}),
	}, paths)

	err := op.Execute(ctx)
	require.Error(t, err, "the forms archive has no manifest")
	require.Len(t, op.Results(), 3)
	assert.Error(t, op.Results()[0].Err)
	assert.NoError(t, op.Results()[1].Err)
	assert.Equal(t, paths[2], op.Results()[2].Path)
}

func TestRunner(t *testing.T) {
	tests := []struct {
		name  string
		async bool
	}{
		{name: "sync", async: false},
		{name: "async", async: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupTestLogger(t)
			logger := zerolog.New(zerolog.NewTestWriter(t))
			runner := NewRunner(&logger, tt.async)

			op := NewTransformOperation(Options{
				Dispatcher: transform.NewDispatcher(family.Default(100), transform.Options{}),
			}, []string{filepath.Join(t.TempDir(), "ugaappl_missing.zip")})
			err := runner.Run(ctx, op)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "transform:")

			require.NoError(t, runner.Run(ctx, NewCleanOperation(Options{StatusMgr: status.NewManager(t.TempDir(), nil)})))
		})
	}
}
