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

package transform

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/walteh/capsend/pkg/index"
	"github.com/walteh/capsend/pkg/manifest"
)

// 🧩 Chunk is one contiguous slice of manifest records and the files they name
type Chunk struct {
	Index   int             // Zero-based position, used in the chunk archive name
	Records []*index.Record // Rows of the index shard
	Files   []string        // Archive entry names, one per record, in record order
}

// Partition splits records into groups of at most size, preserving order.
// Each group's files are read from the records' name attribute.
func Partition(records []*index.Record, size int) []Chunk {
	if size <= 0 {
		size = len(records)
	}
	var chunks []Chunk
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		group := records[start:end]
		files := make([]string, 0, len(group))
		for _, r := range group {
			files = append(files, r.Value(manifest.AttrName))
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Records: group, Files: files})
	}
	return chunks
}

// ChunkName returns <stem>_<nnn><ext> next to the archive at path.
func ChunkName(path string, n int) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%03d%s", stem, n, ext))
}
