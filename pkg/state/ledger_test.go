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

package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func openTestLedger(t *testing.T, path string) *Ledger {
	t.Helper()
	l, err := Open(setupTestLogger(t), path)
	require.NoError(t, err, "opening ledger")
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_Delivered(t *testing.T) {
	ctx := setupTestLogger(t)
	l := openTestLedger(t, Memory)
	day := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)

	run, err := l.StartRun(ctx, day)
	require.NoError(t, err)
	_, err = uuid.Parse(run.ID())
	require.NoError(t, err, "run id is a uuid")

	require.NoError(t, run.Record(ctx, Event{Source: "cap_forms", File: "ugaapplsform_03072024.zip", Stage: StageFetch, Size: 10}))
	require.NoError(t, run.Record(ctx, Event{Source: "cap_forms", File: "ugaapplsform_03072024_000.zip", Stage: StageUpload}))
	require.NoError(t, run.Record(ctx, Event{Source: "cap_forms", File: "ugaapplsform_03072024_001.zip", Stage: StageUpload, Err: errors.New("connection reset")}))

	tests := []struct {
		name   string
		date   time.Time
		source string
		file   string
		want   bool
	}{
		{name: "uploaded", date: day, source: "cap_forms", file: "ugaapplsform_03072024_000.zip", want: true},
		{name: "failed_upload", date: day, source: "cap_forms", file: "ugaapplsform_03072024_001.zip", want: false},
		{name: "fetched_only", date: day, source: "cap_forms", file: "ugaapplsform_03072024.zip", want: false},
		{name: "other_date", date: day.AddDate(0, 0, 1), source: "cap_forms", file: "ugaapplsform_03072024_000.zip", want: false},
		{name: "other_source", date: day, source: "cap_applications", file: "ugaapplsform_03072024_000.zip", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Delivered(ctx, tt.date, tt.source, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	require.NoError(t, run.Finish(ctx, StatusOK))
}

func TestLedger_History(t *testing.T) {
	ctx := setupTestLogger(t)
	path := filepath.Join(t.TempDir(), "nested", "capsend.db")
	l := openTestLedger(t, path)
	day := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)

	run, err := l.StartRun(ctx, day)
	require.NoError(t, err)
	for _, stage := range []Stage{StageFetch, StageTransform, StageUpload} {
		require.NoError(t, run.Record(ctx, Event{Source: "capx_evaluations", File: "03_07_2024_TR_Evaluations.zip", Stage: stage, Size: 3}))
	}
	require.NoError(t, run.Record(ctx, Event{Source: "capx_evaluations", File: "x.zip", Stage: StageUpload, Status: StatusSkipped}))
	require.NoError(t, run.Record(ctx, Event{Source: "capx_evaluations", File: "y.zip", Stage: StageUpload, Err: errors.New("boom")}))

	entries, err := l.History(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "y.zip", entries[0].File, "newest first")
	assert.Equal(t, StatusFailed, entries[0].Status)
	assert.Equal(t, "boom", entries[0].Error)
	assert.Equal(t, StatusSkipped, entries[1].Status)
	assert.Equal(t, StageUpload, entries[2].Stage)
	assert.Equal(t, StatusOK, entries[2].Status)
	assert.Equal(t, int64(3), entries[2].Size)
	assert.Equal(t, run.ID(), entries[2].RunID)
	assert.True(t, entries[2].RunDate.Equal(day))
	assert.Contains(t, entries[0].String(), "boom")

	// reopening keeps the rows
	require.NoError(t, l.Close())
	l2 := openTestLedger(t, path)
	all, err := l2.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestLedger_Uploads(t *testing.T) {
	ctx := setupTestLogger(t)
	l := openTestLedger(t, Memory)
	day := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)

	first, err := l.StartRun(ctx, day)
	require.NoError(t, err)
	require.NoError(t, first.Record(ctx, Event{Source: "cap_forms", File: "a.zip", Stage: StageFetch}))
	require.NoError(t, first.Record(ctx, Event{Source: "cap_forms", File: "a.zip", Stage: StageUpload, Err: errors.New("timeout")}))

	second, err := l.StartRun(ctx, day)
	require.NoError(t, err)
	require.NoError(t, second.Record(ctx, Event{Source: "cap_forms", File: "a.zip", Stage: StageUpload}))

	other, err := l.StartRun(ctx, day.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.NoError(t, other.Record(ctx, Event{Source: "cap_forms", File: "b.zip", Stage: StageUpload}))

	uploads, err := l.Uploads(ctx, day)
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, StatusFailed, uploads[0].Status, "oldest first")
	assert.Equal(t, StatusOK, uploads[1].Status)
	assert.Equal(t, second.ID(), uploads[1].RunID)
}
