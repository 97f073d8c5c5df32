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
	"io"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/state"
	"gitlab.com/tozd/go/errors"
)

// 📋 SourceStatus is the delivery state of one source for a run date
type SourceStatus struct {
	Source    string
	File      string
	Delivered []string // Uploaded files attributed to the source
	Failed    []string // Files whose last upload failed
}

// Done reports whether anything was delivered for the source.
func (s SourceStatus) Done() bool {
	return len(s.Delivered) > 0
}

// 📋 StatusOperation reports, per source, what the ledger shows as
// delivered for the run date
type StatusOperation struct {
	BaseOperation
	out    io.Writer
	result []SourceStatus
}

var _ Operation = (*StatusOperation)(nil)

// NewStatusOperation creates a status report written to out.
func NewStatusOperation(opts Options, out io.Writer) *StatusOperation {
	return &StatusOperation{BaseOperation: NewBaseOperation(opts), out: out}
}

func (op *StatusOperation) Name() string {
	return "status"
}

// Result returns the per-source status of the last Execute.
func (op *StatusOperation) Result() []SourceStatus {
	return op.result
}

// 🔍 Execute folds the upload events of the run date by source
func (op *StatusOperation) Execute(ctx context.Context) error {
	if op.Ledger == nil {
		return errors.Errorf("status needs a ledger")
	}
	logger := zerolog.Ctx(ctx)

	entries, err := op.Ledger.Uploads(ctx, op.Date)
	if err != nil {
		return errors.Errorf("reading uploads: %w", err)
	}

	// later events for the same file replace earlier ones; skips carry no outcome
	last := map[string]state.Entry{}
	for _, e := range entries {
		if e.Status == state.StatusSkipped {
			continue
		}
		last[e.File] = e
	}
	logger.Debug().Str("date", op.Date.Format(state.DateLayout)).Int("files", len(last)).Msg("folded upload events")

	op.result = op.result[:0]
	for _, src := range op.Sources {
		st := SourceStatus{Source: src.Name, File: src.Filename(op.Date)}
		for file, e := range last {
			if e.Source != src.Name {
				continue
			}
			switch e.Status {
			case state.StatusOK:
				st.Delivered = append(st.Delivered, file)
			case state.StatusFailed:
				st.Failed = append(st.Failed, file)
			}
		}
		sort.Strings(st.Delivered)
		sort.Strings(st.Failed)
		op.result = append(op.result, st)
	}

	if op.out != nil {
		for _, st := range op.result {
			mark := "pending"
			if st.Done() {
				mark = "delivered"
			}
			fmt.Fprintf(op.out, "%-22s %-40s %-9s %d ok, %d failed\n", st.Source, st.File, mark, len(st.Delivered), len(st.Failed))
		}
	}
	return nil
}
