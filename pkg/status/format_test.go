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
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/tozd/go/errors"
)

// 🧪 TestDefaultFileFormatter tests the default file formatter implementation
func TestDefaultFileFormatter(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		status FileStatus
		want   string
	}{
		{name: "downloaded", file: "a.zip", status: StatusDownloaded, want: "📥 Downloaded a.zip"},
		{name: "transformed", file: "a.zip", status: StatusTransformed, want: "🔄 Transformed a.zip"},
		{name: "untouched", file: "x.csv", status: StatusUntouched, want: "👍 Untouched x.csv"},
		{name: "uploaded", file: "a_000.zip", status: StatusUploaded, want: "📤 Uploaded a_000.zip"},
		{name: "failed", file: "a.zip", status: StatusFailed, want: "❌ Failed a.zip"},
		{name: "unknown", file: "a.zip", status: StatusUnknown, want: "❔ a.zip"},
	}

	f := NewDefaultFileFormatter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.FormatFileOperation(tt.file, tt.status))
		})
	}
}

func TestDefaultFileFormatter_Progress(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    string
	}{
		{name: "start", current: 0, total: 4, want: "⏳ Progress: 0/4 (0%)"},
		{name: "half", current: 2, total: 4, want: "⏳ Progress: 2/4 (50%)"},
		{name: "done", current: 4, total: 4, want: "✅ Progress: 4/4 (100%)"},
		{name: "empty", current: 0, total: 0, want: "✅ Progress: 0/0 (0%)"},
	}

	f := NewDefaultFileFormatter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.FormatProgress(tt.current, tt.total))
		})
	}
}

func TestDefaultFileFormatter_Error(t *testing.T) {
	f := NewDefaultFileFormatter()
	assert.Equal(t, "", f.FormatError(nil))
	assert.Equal(t, "❌ Error: boom", f.FormatError(errors.New("boom")))
}
