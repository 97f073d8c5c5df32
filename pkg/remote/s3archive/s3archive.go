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

// Package s3archive keeps a raw copy of every downloaded export in object storage.
package s3archive

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

var _ remote.Sink = (*Client)(nil)

// 🔧 Options locate the bucket
type Options struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// objectPutter is the part of *minio.Client the archive needs.
type objectPutter interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// 🗄️ Client copies files into a bucket under <prefix>/<destination>/<name>
type Client struct {
	api    objectPutter
	bucket string
	prefix string
}

// New creates a client; no request is made until the first upload.
func New(opts Options) (*Client, error) {
	if opts.Bucket == "" {
		return nil, errors.Errorf("bucket is required")
	}
	api, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, errors.Errorf("creating s3 client for %s: %w", opts.Endpoint, err)
	}
	return &Client{api: api, bucket: opts.Bucket, prefix: strings.Trim(opts.Prefix, "/")}, nil
}

// Key returns the object name for a file archived under destination.
func (c *Client) Key(localPath, destination string) string {
	return path.Join(c.prefix, strings.Trim(destination, "/"), filepath.Base(localPath))
}

// Upload stores the file at localPath as-is. destination is the run date folder.
func (c *Client) Upload(ctx context.Context, localPath, destination string) error {
	key := c.Key(localPath, destination)
	info, err := c.api.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return errors.Errorf("archiving %s to s3://%s/%s: %w", filepath.Base(localPath), c.bucket, key, err)
	}
	zerolog.Ctx(ctx).Debug().Str("bucket", c.bucket).Str("key", key).Int64("size", info.Size).Msg("archived raw export")
	return nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return "application/zip"
	case ".txt":
		return "text/plain"
	case ".xml":
		return "application/xml"
	}
	return "application/octet-stream"
}
