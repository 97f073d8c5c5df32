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

// Package webadmit downloads the payments export from the WebAdMIT API.
package webadmit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"
)

// StatusAvailable marks an export file that is ready to download.
const StatusAvailable = "Available"

var (
	// ErrNotReady is returned when the export is still pending after every poll attempt.
	ErrNotReady = errors.Base("export not available")
	// ErrStatus is returned for unexpected HTTP statuses.
	ErrStatus = errors.Base("unexpected webadmit response")
)

// 🔧 Options configure the client
type Options struct {
	URL          string // API base, e.g. https://api.webadmit.org
	APIKey       string
	UserID       string
	PollInterval time.Duration
	MaxAttempts  int
	HTTPClient   *http.Client
}

// ExportFile is one entry of an export's file list.
type ExportFile struct {
	Status string `json:"status"`
	Href   string `json:"href"`
}

type exportFilesResponse struct {
	ExportFiles []ExportFile `json:"export_files"`
}

type exportFileResponse struct {
	ExportFile struct {
		DownloadURL string `json:"download_url"`
	} `json:"export_files"`
}

// 💳 Client talks to the WebAdMIT exports API
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
}

// New returns a client; polling is paced at one request per PollInterval.
func New(opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 200
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		opts:    opts,
		http:    hc,
		limiter: rate.NewLimiter(rate.Every(opts.PollInterval), 1),
	}
}

func (c *Client) exportFilesURL(exportID string) string {
	return c.opts.URL + "/api/v1/user_identities/" + url.PathEscape(c.opts.UserID) +
		"/exports/" + url.PathEscape(exportID) + "/export_files"
}

func (c *Client) do(ctx context.Context, method, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, errors.Errorf("building request: %w", err)
	}
	req.Header.Set("x-api-key", c.opts.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s %s: status %d: %w", method, req.URL.Path, resp.StatusCode, ErrStatus)
	}
	return body, nil
}

// Trigger asks WebAdMIT to build a new file for the export.
func (c *Client) Trigger(ctx context.Context, exportID string) error {
	if _, err := c.do(ctx, http.MethodPost, c.exportFilesURL(exportID)); err != nil {
		return errors.Errorf("triggering export %s: %w", exportID, err)
	}
	zerolog.Ctx(ctx).Info().Str("export", exportID).Msg("export triggered")
	return nil
}

// Await polls the export until its newest file is available and returns it.
func (c *Client) Await(ctx context.Context, exportID string) (*ExportFile, error) {
	logger := zerolog.Ctx(ctx)
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Errorf("waiting to poll: %w", err)
		}
		body, err := c.do(ctx, http.MethodGet, c.exportFilesURL(exportID))
		if err != nil {
			return nil, errors.Errorf("polling export %s: %w", exportID, err)
		}
		var files exportFilesResponse
		if err := json.Unmarshal(body, &files); err != nil {
			return nil, errors.Errorf("decoding export files: %w", err)
		}
		if len(files.ExportFiles) > 0 && files.ExportFiles[0].Status == StatusAvailable {
			return &files.ExportFiles[0], nil
		}
		logger.Debug().Int("attempt", attempt).Msg("export not ready")
	}
	return nil, errors.Errorf("export %s after %d attempts: %w", exportID, c.opts.MaxAttempts, ErrNotReady)
}

// Download resolves the file's download URL and fetches its content.
func (c *Client) Download(ctx context.Context, file *ExportFile) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, c.opts.URL+file.Href)
	if err != nil {
		return nil, errors.Errorf("fetching export file: %w", err)
	}
	var meta exportFileResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, errors.Errorf("decoding export file: %w", err)
	}
	if meta.ExportFile.DownloadURL == "" {
		return nil, errors.Errorf("export file has no download url")
	}

	data, err := c.do(ctx, http.MethodGet, meta.ExportFile.DownloadURL)
	if err != nil {
		return nil, errors.Errorf("downloading export: %w", err)
	}
	return data, nil
}

// 🎯 Export triggers exportID, waits for it and returns the file content.
func (c *Client) Export(ctx context.Context, exportID string) ([]byte, error) {
	if err := c.Trigger(ctx, exportID); err != nil {
		return nil, err
	}
	file, err := c.Await(ctx, exportID)
	if err != nil {
		return nil, err
	}
	return c.Download(ctx, file)
}
