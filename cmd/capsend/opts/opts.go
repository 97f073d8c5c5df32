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

package opts

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/config"
	"github.com/walteh/capsend/pkg/log"
	"github.com/walteh/capsend/pkg/remote"
	"github.com/walteh/capsend/pkg/remote/s3archive"
	"github.com/walteh/capsend/pkg/remote/sftp"
	"github.com/walteh/capsend/pkg/remote/slate"
	"github.com/walteh/capsend/pkg/state"
	"github.com/walteh/capsend/pkg/status"
	"github.com/walteh/capsend/pkg/transform"
	"github.com/walteh/capsend/pkg/webadmit"
	"gitlab.com/tozd/go/errors"
)

// DateLayout is the --date flag format.
const DateLayout = "20060102"

// RootOpts contains shared options used by all commands. It is filled
// in by the root command once flags are parsed.
type RootOpts struct {
	Config     *config.Config
	Logger     zerolog.Logger
	UserLogger *log.Logger
	Out        io.Writer // Command output (tables, history)
	Now        func() time.Time
}

// RunDate parses a YYYYMMDD flag value in data.timezone; empty means today.
func (o *RootOpts) RunDate(value string) (time.Time, error) {
	loc, err := o.Config.TimeLocation()
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		now := time.Now
		if o.Now != nil {
			now = o.Now
		}
		t := now().In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
	}
	d, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q, want YYYYMMDD: %w", value, err)
	}
	return d, nil
}

// Workspace returns the status manager over data.out_dir.
func (o *RootOpts) Workspace() *status.Manager {
	return status.NewManager(o.Config.Data.OutDir, status.NewDefaultFileFormatter())
}

// Dispatcher builds the archive transforms from the configuration.
func (o *RootOpts) Dispatcher() *transform.Dispatcher {
	return transform.NewDispatcher(o.Config.FamilyRegistry(), transform.Options{
		InPlace:            !o.Config.Chunking(),
		ManifestExtensions: o.Config.Data.ManifestExtensions,
	})
}

// OpenLedger opens the delivery ledger at ledger.path.
func (o *RootOpts) OpenLedger(ctx context.Context) (*state.Ledger, error) {
	return state.Open(ctx, o.Config.Ledger.Path)
}

// CommonApp returns the SFTP source exports are downloaded from.
func (o *RootOpts) CommonApp(progress io.Writer) *sftp.Client {
	c := o.Config.CommonApp
	return sftp.New(sftp.Options{
		Host:       c.Host,
		Port:       c.Port,
		Username:   c.Username,
		Password:   c.Password,
		KnownHosts: c.KnownHosts,
		Dir:        c.Dir,
		Progress:   progress,
	})
}

// Slate returns the SFTP drop and the HTTP import client of the Slate
// instance. Either is nil when its section is not configured.
func (o *RootOpts) Slate(progress io.Writer) (*sftp.Client, *slate.Client) {
	s := o.Config.Slate
	var drop *sftp.Client
	if s.Hostname != "" {
		drop = sftp.New(sftp.Options{
			Host:       s.Hostname,
			Port:       s.Port,
			Username:   s.Username,
			Password:   s.Password,
			KnownHosts: s.KnownHosts,
			Progress:   progress,
		})
	}
	var api *slate.Client
	if s.URL != "" {
		api = slate.New(slate.Options{URL: s.URL, Username: s.Username, Password: s.Password})
	}
	return drop, api
}

// Sinks routes uploads to the configured Slate transports.
func Sinks(drop *sftp.Client, api *slate.Client) remote.Sinks {
	sinks := remote.Sinks{}
	if drop != nil {
		sinks[config.TransportSFTP] = drop
	}
	if api != nil {
		sinks[config.TransportHTTP] = api
	}
	return sinks
}

// Archive returns the raw copy sink, or nil when archive.bucket is unset.
func (o *RootOpts) Archive() (remote.Sink, error) {
	a := o.Config.Archive
	if !a.Enabled() {
		return nil, nil
	}
	c, err := s3archive.New(s3archive.Options{
		Endpoint:  a.Endpoint,
		Bucket:    a.Bucket,
		Prefix:    a.Prefix,
		Region:    a.Region,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		UseSSL:    a.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// WebAdmit returns the payments export client.
func (o *RootOpts) WebAdmit() *webadmit.Client {
	w := o.Config.WebAdmit
	return webadmit.New(webadmit.Options{
		URL:          w.URL,
		APIKey:       w.APIKey,
		UserID:       w.UserID,
		PollInterval: o.Config.PollInterval(),
		MaxAttempts:  w.MaxAttempts,
	})
}
