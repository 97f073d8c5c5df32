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

package webadmit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

// fakeAPI serves the export flow; the file becomes available after readyAfter polls.
func fakeAPI(t *testing.T, readyAfter int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/api/v1/user_identities/42/exports/99/export_files", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			status := "Pending"
			if polls.Add(1) >= readyAfter {
				status = "Available"
			}
			_, _ = w.Write([]byte(`{"export_files":[{"status":"` + status + `","href":"/api/v1/export_files/7"}]}`))
		}
	})
	mux.HandleFunc("/api/v1/export_files/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"export_files":{"download_url":"` + srv.URL + `/download/payments.csv"}}`))
	})
	mux.HandleFunc("/download/payments.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("id,amount\r\n1,75.00\r\n"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &polls
}

func TestClient_Export(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	srv, polls := fakeAPI(t, 3)

	c := New(Options{URL: srv.URL, APIKey: "secret", UserID: "42", PollInterval: time.Millisecond, MaxAttempts: 10})
	data, err := c.Export(ctx, "99")
	require.NoError(t, err)
	assert.Equal(t, "id,amount\r\n1,75.00\r\n", string(data))
	assert.Equal(t, int32(3), polls.Load())
}

func TestClient_AwaitGivesUp(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	srv, polls := fakeAPI(t, 100)

	c := New(Options{URL: srv.URL, APIKey: "secret", UserID: "42", PollInterval: time.Millisecond, MaxAttempts: 2})
	_, err := c.Await(ctx, "99")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.Equal(t, int32(2), polls.Load())
}

func TestClient_BadKey(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	srv, _ := fakeAPI(t, 1)

	_, err := New(Options{URL: srv.URL, APIKey: "wrong", UserID: "42"}).Export(ctx, "99")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))
	assert.Contains(t, err.Error(), "status 401")
}
