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
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
)

// 📶 TransferProgress renders a byte progress bar for one transfer.
// It is an io.Writer so it can sit behind an io.TeeReader.
type TransferProgress struct {
	bar     *pterm.ProgressbarPrinter
	written int64
}

// NewTransferProgress starts a progress bar titled with the file name and its size.
// A nil writer disables rendering while still counting bytes.
func NewTransferProgress(w io.Writer, verb, name string, total int64) *TransferProgress {
	p := &TransferProgress{}
	if w == nil || total <= 0 {
		return p
	}
	title := fmt.Sprintf("%s %s (%s)", verb, name, humanize.Bytes(uint64(total)))
	bar, err := pterm.DefaultProgressbar.
		WithTotal(int(total)).
		WithTitle(title).
		WithShowCount(false).
		WithRemoveWhenDone(true).
		WithWriter(w).
		Start()
	if err == nil {
		p.bar = bar
	}
	return p
}

// Write counts n bytes against the bar.
func (p *TransferProgress) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.bar != nil {
		p.bar.Add(len(b))
	}
	return len(b), nil
}

// Written returns the bytes counted so far.
func (p *TransferProgress) Written() int64 {
	return p.written
}

// Stop removes the bar.
func (p *TransferProgress) Stop() {
	if p.bar != nil {
		_, _ = p.bar.Stop()
	}
}
