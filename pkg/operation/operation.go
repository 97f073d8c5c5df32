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
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/config"
	"github.com/walteh/capsend/pkg/remote"
	"github.com/walteh/capsend/pkg/state"
	"github.com/walteh/capsend/pkg/status"
	"github.com/walteh/capsend/pkg/transform"
	"gitlab.com/tozd/go/errors"
)

// ErrUploadFailed is returned by a sync in which at least one upload failed.
var ErrUploadFailed = errors.Base("uploads failed")

// 🎯 Operation is one unit of work the runner executes
type Operation interface {
	// Name labels the operation in logs
	Name() string
	// Execute runs the operation
	Execute(ctx context.Context) error
}

// 🔧 Options wire an operation to its collaborators. Nil collaborators
// disable the stage that needs them.
type Options struct {
	Sources     []config.Source       // Sources to process, in order
	Date        time.Time             // Run date the filenames are built from
	StatusMgr   *status.Manager       // Local workspace (out_dir)
	Dispatcher  *transform.Dispatcher // Archive transforms
	Source      remote.Source         // Download endpoint; nil skips download
	Sinks       remote.Sinks          // Upload endpoints by transport; nil skips upload
	Archive     remote.Sink           // Raw copy of each download; optional
	Ledger      *state.Ledger         // Delivery ledger; optional
	Resume      bool                  // Skip uploads the ledger already shows as delivered
	Concurrency int                   // Parallel uploads; 1 is sequential
}

// 🧱 BaseOperation holds what every operation shares
type BaseOperation struct {
	Options
	run *state.Run
}

// NewBaseOperation validates opts and returns the shared base.
func NewBaseOperation(opts Options) BaseOperation {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return BaseOperation{Options: opts}
}

// sourceFor returns the source whose glob matches a workspace file.
func (op *BaseOperation) sourceFor(name string) string {
	for _, src := range op.Sources {
		if ok, _ := doublestar.Match(src.Glob(), name); ok {
			return src.Name
		}
	}
	return ""
}

func (op *BaseOperation) startRun(ctx context.Context) error {
	if op.Ledger == nil {
		return nil
	}
	run, err := op.Ledger.StartRun(ctx, op.Date)
	if err != nil {
		return err
	}
	op.run = run
	zerolog.Ctx(ctx).Info().Str("run", run.ID()).Msg("run started")
	return nil
}

// record writes e to the ledger; a ledger failure is logged, never fatal.
func (op *BaseOperation) record(ctx context.Context, e state.Event) {
	if op.run == nil {
		return
	}
	if err := op.run.Record(ctx, e); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("file", e.File).Msg("ledger write failed")
	}
}

func (op *BaseOperation) finishRun(ctx context.Context, s state.Status) {
	if op.run == nil {
		return
	}
	if err := op.run.Finish(ctx, s); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("ledger write failed")
	}
}

// 📊 Report counts what a run did
type Report struct {
	Fetched         int
	Missing         int
	Transformed     int
	Untouched       int
	TransformFailed int
	Uploaded        int
	Skipped         int
	UploadFailed    int
	Failures        []string // One line per failed file
}

func (r *Report) fail(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// String summarizes the report on one line.
func (r Report) String() string {
	return fmt.Sprintf("fetched %d (missing %d), transformed %d (untouched %d, failed %d), uploaded %d (skipped %d, failed %d)",
		r.Fetched, r.Missing, r.Transformed, r.Untouched, r.TransformFailed, r.Uploaded, r.Skipped, r.UploadFailed)
}
