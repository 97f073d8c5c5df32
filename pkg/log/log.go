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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent    = 4  // spaces to indent file entries
	nameWidth     = 42 // Base width for filename
	familyWidth   = 20 // Width for family tag
	outcomeWidth  = 12 // Width for outcome text
	transferWidth = 10 // Width for transfer size
)

// 🎯 Outcome of one archive transform
type Outcome string

const (
	OutcomeTransformed Outcome = "transformed"
	OutcomeUntouched   Outcome = "untouched"
	OutcomeFailed      Outcome = "failed"
)

// 📦 ArchiveOperation represents one dispatched archive for logging
type ArchiveOperation struct {
	Path    string   // Archive path
	Family  string   // Family tag, empty when unclassified
	Outcome Outcome  // Terminal outcome
	Outputs []string // Files produced (chunks or the rewritten archive)
	Skipped int      // Entries skipped with a warning
	Err     error    // Failure, when Outcome is failed
}

// 🚚 Direction of a transfer
type Direction string

const (
	Download Direction = "download"
	Upload   Direction = "upload"
)

// 🚚 TransferOperation represents one file moved to or from a remote
type TransferOperation struct {
	Name      string    // Local file name
	Direction Direction // Download or upload
	Remote    string    // Remote path or destination id
	Size      int64     // Bytes transferred
	Err       error     // Failure, if any
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	stage   string
	counts  map[Outcome]int
}

// 🏭 New creates a new logger writing user output to console and mirroring to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
		counts:  map[Outcome]int{},
	}
}

// 🔇 Discard returns a logger that prints nothing
func Discard() *Logger {
	return New(io.Discard, zerolog.Nop())
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context, or a discarding logger when none is set
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		return Discard()
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatArchiveOperation formats an archive operation for display
func (l *Logger) formatArchiveOperation(op ArchiveOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch op.Outcome {
	case OutcomeTransformed:
		symbol = '✓'
		symbolColor = color.FgGreen
	case OutcomeFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	default:
		symbol = '-'
		symbolColor = color.FgYellow
	}

	family := op.Family
	if family == "" {
		family = "unmatched"
	}

	line := fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Path),
		color.New(color.FgCyan).Sprint(fmt.Sprintf("%-*s", familyWidth, family)),
		fmt.Sprintf("%-*s", outcomeWidth, op.Outcome))

	if len(op.Outputs) > 1 {
		line += color.New(color.Faint).Sprintf(" %d archives", len(op.Outputs))
	}
	if op.Skipped > 0 {
		line += color.New(color.FgYellow).Sprintf(" %d skipped", op.Skipped)
	}
	return line
}

// 📝 formatTransferOperation formats a transfer for display
func (l *Logger) formatTransferOperation(op TransferOperation) string {
	symbol := "↓"
	if op.Direction == Upload {
		symbol = "↑"
	}
	symbolColor := color.FgBlue
	if op.Err != nil {
		symbolColor = color.FgRed
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(symbol),
		fmt.Sprintf("%-*s", nameWidth, op.Name),
		fmt.Sprintf("%*s", transferWidth, humanize.Bytes(uint64(op.Size))),
		color.New(color.Faint).Sprint(op.Remote))
}

// 📝 LogArchiveOperation logs an archive transform
func (l *Logger) LogArchiveOperation(ctx context.Context, op ArchiveOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[op.Outcome]++
	fmt.Fprintln(l.console, l.formatArchiveOperation(op))

	var evt *zerolog.Event
	switch op.Outcome {
	case OutcomeFailed:
		evt = l.zlog.Error().Err(op.Err)
	default:
		evt = l.zlog.Info()
	}
	evt.Str("archive", op.Path).
		Str("family", op.Family).
		Str("outcome", string(op.Outcome)).
		Strs("outputs", op.Outputs).
		Int("skipped", op.Skipped).
		Msg("archive operation")
}

// 📝 LogTransferOperation logs a download or upload
func (l *Logger) LogTransferOperation(ctx context.Context, op TransferOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatTransferOperation(op))
	if op.Err != nil {
		fmt.Fprintf(l.console, "%*s%s\n", fileIndent+2, "", color.New(color.FgRed).Sprint(op.Err.Error()))
	}

	evt := l.zlog.Info()
	if op.Err != nil {
		evt = l.zlog.Error().Err(op.Err)
	}
	evt.Str("file", op.Name).
		Str("direction", string(op.Direction)).
		Str("remote", op.Remote).
		Int64("size", op.Size).
		Msg("transfer operation")
}

// 📝 StartStage prints a stage header and resets the stage counters
func (l *Logger) StartStage(ctx context.Context, stage string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stage = stage
	l.counts = map[Outcome]int{}

	fmt.Fprintf(l.console, "%s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(stage))

	l.zlog.Info().Str("stage", stage).Msg("starting stage")
}

// 📝 EndStage logs a summary of the current stage
func (l *Logger) EndStage(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stage == "" {
		return
	}

	l.zlog.Info().
		Str("stage", l.stage).
		Int("transformed", l.counts[OutcomeTransformed]).
		Int("untouched", l.counts[OutcomeUntouched]).
		Int("failed", l.counts[OutcomeFailed]).
		Msg("stage complete")

	l.stage = ""
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("capsend")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
