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

package remote

import (
	"context"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrNotFound is returned when a remote file does not exist.
var ErrNotFound = errors.Base("remote file not found")

// Source is a remote location exports are downloaded from (e.g. the CommonApp SFTP drop)
type Source interface {
	// List returns the names in the remote directory matching the glob pattern
	List(ctx context.Context, pattern string) ([]string, error)
	// Fetch downloads name into dir and returns the local path
	Fetch(ctx context.Context, name, dir string) (string, error)
}

// Stater is implemented by sources that can size a file before fetching it
type Stater interface {
	Stat(ctx context.Context, name string) (int64, error)
}

// Sink is a remote location normalized files are delivered to
type Sink interface {
	// Upload sends the local file to destination; what destination means is up to the sink
	// (a remote directory for SFTP, an import format for HTTP, a key prefix for object storage)
	Upload(ctx context.Context, localPath, destination string) error
}

// Sinks routes uploads by transport name
type Sinks map[string]Sink

// Get returns the sink registered for transport.
func (s Sinks) Get(transport string) (Sink, error) {
	sink, ok := s[transport]
	if !ok || sink == nil {
		options := []string{}
		for k := range s {
			options = append(options, k)
		}
		sort.Strings(options)
		return nil, errors.Errorf("transport %s not configured, options: %s", transport, strings.Join(options, ", "))
	}
	return sink, nil
}
