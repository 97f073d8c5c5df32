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

// Package state keeps the delivery ledger: one row per run and one row per
// file event, in a local SQLite database.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	_ "modernc.org/sqlite"
)

// Memory opens a private in-memory ledger.
const Memory = ":memory:"

// DateLayout is how run dates are stored.
const DateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	run_date    TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL DEFAULT 'running'
);
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	run_date   TEXT NOT NULL,
	source     TEXT NOT NULL,
	file       TEXT NOT NULL,
	stage      TEXT NOT NULL,
	status     TEXT NOT NULL,
	size       INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_lookup ON events(run_date, source, file, stage, status);
`

// 📒 Ledger records what every run fetched, transformed and delivered
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path. Parent directories are created.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Errorf("creating ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Errorf("opening ledger %s: %w", path, err)
	}
	if path == Memory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range append(pragmas, schema) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, errors.Errorf("preparing ledger: %w", err)
		}
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("ledger opened")
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return errors.Errorf("closing ledger: %w", err)
	}
	return nil
}

// 🏃 Run is one pipeline execution
type Run struct {
	ledger *Ledger
	id     string
	date   string
}

// StartRun records a new run for the given run date.
func (l *Ledger) StartRun(ctx context.Context, runDate time.Time) (*Run, error) {
	r := &Run{ledger: l, id: uuid.NewString(), date: runDate.Format(DateLayout)}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, run_date, started_at) VALUES (?, ?, ?)`,
		r.id, r.date, now())
	if err != nil {
		return nil, errors.Errorf("recording run: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("run", r.id).Str("date", r.date).Msg("run started")
	return r, nil
}

// ID returns the run's unique id.
func (r *Run) ID() string {
	return r.id
}

// Record appends one file event to the run.
func (r *Run) Record(ctx context.Context, e Event) error {
	status := e.Status
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
		if status == "" {
			status = StatusFailed
		}
	}
	if status == "" {
		status = StatusOK
	}
	_, err := r.ledger.db.ExecContext(ctx,
		`INSERT INTO events (run_id, run_date, source, file, stage, status, size, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.id, r.date, e.Source, e.File, string(e.Stage), string(status), e.Size, msg, now())
	if err != nil {
		return errors.Errorf("recording %s %s: %w", e.Stage, e.File, err)
	}
	return nil
}

// Finish marks the run complete with an overall status.
func (r *Run) Finish(ctx context.Context, status Status) error {
	_, err := r.ledger.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		now(), string(status), r.id)
	if err != nil {
		return errors.Errorf("finishing run %s: %w", r.id, err)
	}
	return nil
}

// Delivered reports whether file from source was uploaded by any run for runDate.
func (l *Ledger) Delivered(ctx context.Context, runDate time.Time, source, file string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events
		 WHERE run_date = ? AND source = ? AND file = ? AND stage = ? AND status = ?`,
		runDate.Format(DateLayout), source, file, string(StageUpload), string(StatusOK)).Scan(&n)
	if err != nil {
		return false, errors.Errorf("querying deliveries: %w", err)
	}
	return n > 0, nil
}

// History returns the latest n events, newest first.
func (l *Ledger) History(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, run_date, source, file, stage, status, size, error, created_at
		 FROM events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, errors.Errorf("querying history: %w", err)
	}
	return scanEntries(rows)
}

// Uploads returns every upload event recorded for runDate, oldest first.
func (l *Ledger) Uploads(ctx context.Context, runDate time.Time) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, run_date, source, file, stage, status, size, error, created_at
		 FROM events WHERE run_date = ? AND stage = ? ORDER BY id ASC`,
		runDate.Format(DateLayout), string(StageUpload))
	if err != nil {
		return nil, errors.Errorf("querying uploads: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			stage    string
			status   string
			runDate  string
			recorded string
			err      error
		)
		if err := rows.Scan(&e.RunID, &runDate, &e.Source, &e.File, &stage, &status, &e.Size, &e.Error, &recorded); err != nil {
			return nil, errors.Errorf("scanning events: %w", err)
		}
		e.Stage, e.Status = Stage(stage), Status(status)
		if e.RunDate, err = time.Parse(DateLayout, runDate); err != nil {
			return nil, errors.Errorf("parsing run date %q: %w", runDate, err)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, errors.Errorf("parsing timestamp %q: %w", recorded, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("reading events: %w", err)
	}
	return out, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// String renders an entry as one history line.
func (e Entry) String() string {
	s := fmt.Sprintf("%s  %-9s %-7s %-24s %s", e.At.Local().Format("2006-01-02 15:04:05"), e.Stage, e.Status, e.Source, e.File)
	if e.Error != "" {
		s += "  " + e.Error
	}
	return s
}
