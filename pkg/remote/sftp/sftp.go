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

// Package sftp moves exports over SFTP: downloads from the CommonApp drop
// and uploads into the Slate intake directories.
package sftp

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/remote"
	"github.com/walteh/capsend/pkg/status"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

var (
	_ remote.Source = (*Client)(nil)
	_ remote.Stater = (*Client)(nil)
	_ remote.Sink   = (*Client)(nil)
)

const defaultDialTimeout = 30 * time.Second

// 🔧 Options describe one SFTP endpoint
type Options struct {
	Host       string
	Port       int
	Username   string
	Password   string
	KnownHosts string        // known_hosts file; empty accepts any host key
	Dir        string        // Remote directory List and Fetch resolve names against
	Timeout    time.Duration // Dial timeout
	Progress   io.Writer     // Progress bar output; nil disables it
}

func (o Options) addr() string {
	port := o.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(o.Host, strconv.Itoa(port))
}

// 📡 Client is an SFTP session opened on first use
type Client struct {
	opts Options

	mu   sync.Mutex
	conn *ssh.Client
	sftp *sftp.Client
}

// New returns a client for opts. No connection is made until a transfer needs one.
func New(opts Options) *Client {
	return &Client{opts: opts}
}

// hostKeyCallback checks keys against known_hosts when configured and
// otherwise accepts any key, warning once per connection.
func (c *Client) hostKeyCallback(ctx context.Context) (ssh.HostKeyCallback, error) {
	if c.opts.KnownHosts != "" {
		cb, err := knownhosts.New(c.opts.KnownHosts)
		if err != nil {
			return nil, errors.Errorf("loading known hosts %s: %w", c.opts.KnownHosts, err)
		}
		return cb, nil
	}
	zerolog.Ctx(ctx).Warn().Str("host", c.opts.Host).Msg("no known_hosts configured, accepting any host key")
	return ssh.InsecureIgnoreHostKey(), nil
}

func (c *Client) session(ctx context.Context) (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sftp != nil {
		return c.sftp, nil
	}

	cb, err := c.hostKeyCallback(ctx)
	if err != nil {
		return nil, err
	}

	timeout := c.opts.Timeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	cfg := &ssh.ClientConfig{
		User:            c.opts.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(c.opts.Password)},
		HostKeyCallback: cb,
		Timeout:         timeout,
	}

	addr := c.opts.addr()
	zerolog.Ctx(ctx).Debug().Str("addr", addr).Str("user", c.opts.Username).Msg("connecting")

	dialer := &net.Dialer{Timeout: timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Errorf("dialing %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, errors.Errorf("ssh handshake with %s: %w", addr, err)
	}
	conn := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, errors.Errorf("starting sftp on %s: %w", addr, err)
	}

	c.conn = conn
	c.sftp = client
	return client, nil
}

// Close ends the session if one was opened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sftp == nil {
		return nil
	}
	err := c.sftp.Close()
	if c.conn != nil {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
	}
	c.sftp, c.conn = nil, nil
	if err != nil {
		return errors.Errorf("closing sftp session: %w", err)
	}
	return nil
}

func (c *Client) remotePath(name string) string {
	if c.opts.Dir == "" {
		return name
	}
	return path.Join(c.opts.Dir, name)
}

// List returns regular files in the remote directory matching pattern, sorted.
func (c *Client) List(ctx context.Context, pattern string) ([]string, error) {
	client, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	dir := c.opts.Dir
	if dir == "" {
		dir = "."
	}
	infos, err := client.ReadDir(dir)
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", dir, err)
	}
	var names []string
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		ok, err := doublestar.Match(pattern, info.Name())
		if err != nil {
			return nil, errors.Errorf("matching %q: %w", pattern, err)
		}
		if ok {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Stat returns the remote size of name.
func (c *Client) Stat(ctx context.Context, name string) (int64, error) {
	client, err := c.session(ctx)
	if err != nil {
		return 0, err
	}
	info, err := client.Lstat(c.remotePath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, errors.Errorf("%s: %w", name, remote.ErrNotFound)
		}
		return 0, errors.Errorf("stat %s: %w", name, err)
	}
	return info.Size(), nil
}

// Fetch downloads name into dir. A partial download is removed.
func (c *Client) Fetch(ctx context.Context, name, dir string) (_ string, err error) {
	client, err := c.session(ctx)
	if err != nil {
		return "", err
	}

	src, err := client.Open(c.remotePath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errors.Errorf("%s: %w", name, remote.ErrNotFound)
		}
		return "", errors.Errorf("opening %s: %w", name, err)
	}
	defer src.Close()

	var size int64
	if info, serr := src.Stat(); serr == nil {
		size = info.Size()
	}

	dest := filepath.Join(dir, path.Base(name))
	out, err := os.Create(dest)
	if err != nil {
		return "", errors.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dest)
		}
	}()

	progress := status.NewTransferProgress(c.opts.Progress, "Downloading", name, size)
	defer progress.Stop()

	if _, err = io.Copy(io.MultiWriter(out, progress), src); err != nil {
		return "", errors.Errorf("downloading %s: %w", name, err)
	}
	if err = out.Close(); err != nil {
		return "", errors.Errorf("closing %s: %w", dest, err)
	}

	zerolog.Ctx(ctx).Debug().Str("file", name).Int64("bytes", progress.Written()).Msg("downloaded")
	return dest, nil
}

// Upload writes localPath into the remote destination directory.
func (c *Client) Upload(ctx context.Context, localPath, destination string) error {
	client, err := c.session(ctx)
	if err != nil {
		return err
	}

	in, err := os.Open(localPath)
	if err != nil {
		return errors.Errorf("opening %s: %w", localPath, err)
	}
	defer in.Close()

	var size int64
	if info, serr := in.Stat(); serr == nil {
		size = info.Size()
	}

	target := path.Join(destination, filepath.Base(localPath))
	out, err := client.Create(target)
	if err != nil {
		return errors.Errorf("creating remote %s: %w", target, err)
	}

	progress := status.NewTransferProgress(c.opts.Progress, "Sending", filepath.Base(localPath), size)
	defer progress.Stop()

	if _, err := io.Copy(out, io.TeeReader(in, progress)); err != nil {
		out.Close()
		return errors.Errorf("uploading %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing remote %s: %w", target, err)
	}

	zerolog.Ctx(ctx).Debug().Str("file", localPath).Str("remote", target).Int64("bytes", progress.Written()).Msg("uploaded")
	return nil
}
