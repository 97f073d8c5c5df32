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

// Package slate posts files to the Slate import service.
package slate

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

var _ remote.Sink = (*Client)(nil)

// ImportPath is the import service endpoint under the Slate base URL.
const ImportPath = "/manage/service/import"

// ErrStatus is returned when the import service answers with a non-2xx status.
var ErrStatus = errors.Base("slate import failed")

const maxErrorBody = 512

// 🔧 Options configure the import client
type Options struct {
	URL        string // Base URL, e.g. https://apply.example.edu
	Username   string
	Password   string
	HTTPClient *http.Client
}

// 🎓 Client uploads payloads to one Slate instance
type Client struct {
	opts Options
	http *http.Client
}

// New returns a client for opts.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Client{opts: opts, http: hc}
}

// ImportURL returns the load URL for an import format.
func (c *Client) ImportURL(format string) (string, error) {
	if c.opts.URL == "" {
		return "", errors.Errorf("slate url is not configured")
	}
	u, err := url.Parse(c.opts.URL + ImportPath)
	if err != nil {
		return "", errors.Errorf("parsing slate url: %w", err)
	}
	q := u.Query()
	q.Set("cmd", "load")
	q.Set("format", format)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Upload posts the file at localPath using destination as the import format.
func (c *Client) Upload(ctx context.Context, localPath, destination string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Errorf("stat %s: %w", localPath, err)
	}
	return c.post(ctx, f, info.Size(), destination, filepath.Base(localPath))
}

// UploadBytes posts an in-memory payload using format as the import format.
func (c *Client) UploadBytes(ctx context.Context, data []byte, format string) error {
	return c.post(ctx, bytes.NewReader(data), int64(len(data)), format, "payload")
}

func (c *Client) post(ctx context.Context, body io.Reader, size int64, format, label string) error {
	target, err := c.ImportURL(format)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return errors.Errorf("building request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	req.SetBasicAuth(c.opts.Username, c.opts.Password)

	zerolog.Ctx(ctx).Debug().Str("file", label).Str("format", format).Str("size", humanize.Bytes(uint64(size))).Msg("posting to slate import")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Errorf("posting %s: %w", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Errorf("%s: status %d: %s: %w", label, resp.StatusCode, bytes.TrimSpace(msg), ErrStatus)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
