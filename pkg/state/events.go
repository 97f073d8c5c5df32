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

import "time"

// Stage is the pipeline step an event belongs to.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageArchive   Stage = "archive"
	StageTransform Stage = "transform"
	StageUpload    Stage = "upload"
)

// Status is the outcome of an event or a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Event is written by a run for one file at one stage. A non-nil Err with
// no Status records a failure.
type Event struct {
	Source string
	File   string
	Stage  Stage
	Status Status
	Size   int64
	Err    error
}

// Entry is an event read back from the ledger.
type Entry struct {
	RunID   string
	RunDate time.Time
	Source  string
	File    string
	Stage   Stage
	Status  Status
	Size    int64
	Error   string
	At      time.Time
}
