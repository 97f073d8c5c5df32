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
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/config"
	"github.com/walteh/capsend/pkg/log"
	"github.com/walteh/capsend/pkg/state"
	"github.com/walteh/capsend/pkg/status"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🔄 SyncOperation is the nightly run: download, transform, upload
type SyncOperation struct {
	BaseOperation

	mu     sync.Mutex
	report Report
	failed map[string]bool // workspace files whose transform failed
}

var _ Operation = (*SyncOperation)(nil)

// NewSyncOperation creates a sync over opts.
func NewSyncOperation(opts Options) *SyncOperation {
	return &SyncOperation{BaseOperation: NewBaseOperation(opts), failed: map[string]bool{}}
}

// Name implements Operation.
func (op *SyncOperation) Name() string {
	return "sync"
}

// Report returns the counts of the last Execute.
func (op *SyncOperation) Report() Report {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.report
}

// 🏃 Execute runs every stage. Missing downloads and failed transforms are
// reported and the run continues; the error is ErrUploadFailed when any
// upload failed.
func (op *SyncOperation) Execute(ctx context.Context) error {
	if op.StatusMgr == nil || op.Dispatcher == nil {
		return errors.Errorf("sync needs a workspace and a dispatcher")
	}
	// a fresh download replaces whatever the last run left behind
	if op.Source != nil {
		if err := op.StatusMgr.Prepare(ctx); err != nil {
			return err
		}
	} else if err := os.MkdirAll(op.StatusMgr.Dir(), 0o755); err != nil {
		return errors.Errorf("creating workspace: %w", err)
	}
	if err := op.startRun(ctx); err != nil {
		return err
	}

	if op.Source != nil {
		op.download(ctx)
	}
	if err := op.transform(ctx); err != nil {
		op.finishRun(ctx, state.StatusFailed)
		return err
	}
	if op.Sinks != nil {
		if err := op.upload(ctx); err != nil {
			op.finishRun(ctx, state.StatusFailed)
			return err
		}
	}

	report := op.Report()
	zerolog.Ctx(ctx).Info().Str("summary", report.String()).Msg("sync finished")

	if report.UploadFailed > 0 {
		op.finishRun(ctx, state.StatusFailed)
		return errors.Errorf("%d of %d: %w", report.UploadFailed, report.UploadFailed+report.Uploaded, ErrUploadFailed)
	}
	op.finishRun(ctx, state.StatusOK)
	return nil
}

// download fetches each source's file for the run date. A failure is
// logged and the next source is tried.
func (op *SyncOperation) download(ctx context.Context) {
	ulog := log.FromContext(ctx)
	ulog.StartStage(ctx, "download")
	defer ulog.EndStage(ctx)

	dateDir := op.Date.Format(state.DateLayout)
	for _, src := range op.Sources {
		name := src.Filename(op.Date)

		path, err := op.Source.Fetch(ctx, name, op.StatusMgr.Dir())
		var size int64
		if err == nil {
			if info, serr := os.Stat(path); serr == nil {
				size = info.Size()
			}
		}
		ulog.LogTransferOperation(ctx, log.TransferOperation{Name: name, Direction: log.Download, Remote: src.Name, Size: size, Err: err})
		op.record(ctx, state.Event{Source: src.Name, File: name, Stage: state.StageFetch, Size: size, Err: err})

		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("source", src.Name).Str("file", name).Msg("download failed, continuing")
			op.StatusMgr.TrackFile(ctx, name, status.FileInfo{Status: status.StatusFailed, Error: err})
			op.mu.Lock()
			op.report.Missing++
			op.report.fail("fetch %s: %v", name, err)
			op.mu.Unlock()
			continue
		}

		op.StatusMgr.TrackFile(ctx, name, status.FileInfo{Status: status.StatusDownloaded, Size: size})
		op.mu.Lock()
		op.report.Fetched++
		op.mu.Unlock()

		if op.Archive != nil {
			aerr := op.Archive.Upload(ctx, path, dateDir)
			if aerr != nil {
				zerolog.Ctx(ctx).Warn().Err(aerr).Str("file", name).Msg("raw archive copy failed")
			}
			op.record(ctx, state.Event{Source: src.Name, File: name, Stage: state.StageArchive, Size: size, Err: aerr})
		}
	}
}

// transform dispatches every file in the workspace.
func (op *SyncOperation) transform(ctx context.Context) error {
	ulog := log.FromContext(ctx)
	ulog.StartStage(ctx, "transform")
	defer ulog.EndStage(ctx)

	names, err := op.StatusMgr.ListFiles(ctx)
	if err != nil {
		return errors.Errorf("listing workspace: %w", err)
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, op.StatusMgr.Path(name))
	}

	for _, res := range op.Dispatcher.DispatchAll(ctx, paths) {
		name := filepath.Base(res.Path)
		ev := state.Event{Source: op.sourceFor(name), File: name, Stage: state.StageTransform, Err: res.Err}

		op.mu.Lock()
		switch res.Outcome {
		case log.OutcomeFailed:
			op.report.TransformFailed++
			op.report.fail("transform %s: %v", name, res.Err)
			op.failed[name] = true
			op.StatusMgr.TrackFile(ctx, name, status.FileInfo{Status: status.StatusFailed, Error: res.Err})
		case log.OutcomeUntouched:
			op.report.Untouched++
			ev.Status = state.StatusSkipped
			op.StatusMgr.TrackFile(ctx, name, status.FileInfo{Status: status.StatusUntouched})
		default:
			op.report.Transformed++
			for _, out := range res.Outputs {
				op.StatusMgr.TrackFile(ctx, filepath.Base(out), status.FileInfo{Status: status.StatusTransformed})
			}
		}
		op.mu.Unlock()

		op.record(ctx, ev)
	}
	return nil
}

type uploadJob struct {
	source config.Source
	name   string
}

// upload sends every workspace file matching a source's glob to that
// source's sink, at most Concurrency at a time.
func (op *SyncOperation) upload(ctx context.Context) error {
	ulog := log.FromContext(ctx)
	ulog.StartStage(ctx, "upload")
	defer ulog.EndStage(ctx)

	fsys := os.DirFS(op.StatusMgr.Dir())
	var jobs []uploadJob
	for _, src := range op.Sources {
		matches, err := doublestar.Glob(fsys, src.Glob(), doublestar.WithFilesOnly())
		if err != nil {
			return errors.Errorf("globbing %s: %w", src.Glob(), err)
		}
		sort.Strings(matches)
		for _, name := range matches {
			jobs = append(jobs, uploadJob{source: src, name: name})
		}
	}

	op.StatusMgr.StartOperation(ctx, len(jobs))
	defer op.StatusMgr.FinishOperation(ctx)

	var (
		g    errgroup.Group
		done int
	)
	g.SetLimit(op.Concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			op.uploadOne(ctx, job)
			op.mu.Lock()
			done++
			op.StatusMgr.UpdateProgress(ctx, done)
			op.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (op *SyncOperation) uploadOne(ctx context.Context, job uploadJob) {
	logger := zerolog.Ctx(ctx).With().Str("source", job.source.Name).Str("file", job.name).Logger()
	path := op.StatusMgr.Path(job.name)

	skip := func(reason string) {
		logger.Info().Msg(reason)
		op.record(ctx, state.Event{Source: job.source.Name, File: job.name, Stage: state.StageUpload, Status: state.StatusSkipped})
		op.mu.Lock()
		op.report.Skipped++
		op.mu.Unlock()
	}

	op.mu.Lock()
	failed := op.failed[job.name]
	op.mu.Unlock()
	if failed {
		skip("transform failed, not uploading")
		return
	}

	if op.Resume && op.Ledger != nil {
		delivered, err := op.Ledger.Delivered(ctx, op.Date, job.source.Name, job.name)
		if err != nil {
			logger.Warn().Err(err).Msg("ledger lookup failed, uploading anyway")
		} else if delivered {
			skip("already delivered for this date")
			return
		}
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	sink, err := op.Sinks.Get(job.source.Transport)
	if err == nil {
		err = sink.Upload(ctx, path, job.source.UploadTarget())
	}

	log.FromContext(ctx).LogTransferOperation(ctx, log.TransferOperation{
		Name:      job.name,
		Direction: log.Upload,
		Remote:    job.source.UploadTarget(),
		Size:      size,
		Err:       err,
	})
	op.record(ctx, state.Event{Source: job.source.Name, File: job.name, Stage: state.StageUpload, Size: size, Err: err})

	op.mu.Lock()
	defer op.mu.Unlock()
	if err != nil {
		logger.Error().Err(err).Msg("upload failed")
		op.report.UploadFailed++
		op.report.fail("upload %s: %v", job.name, err)
		op.StatusMgr.TrackFile(ctx, job.name, status.FileInfo{Status: status.StatusFailed, Size: size, Error: err})
		return
	}
	op.report.Uploaded++
	op.StatusMgr.TrackFile(ctx, job.name, status.FileInfo{Status: status.StatusUploaded, Size: size})
}
