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

package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // data.timezone must resolve on hosts without zoneinfo

	"github.com/rs/zerolog"
	"github.com/walteh/capsend/pkg/family"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate.
const (
	DefaultTimezone          = "America/Detroit"
	DefaultOutDir            = "data/out_dir"
	DefaultLedgerPath        = "data/capsend.db"
	DefaultCommonAppHost     = "ftp.commonapp.org"
	DefaultWebAdmitURL       = "https://api.webadmit.org"
	DefaultPort              = 22
	DefaultUploadConcurrency = 1
	DefaultPollInterval      = 3 * time.Second
	DefaultMaxPollAttempts   = 200
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔑 CommonAppArgs is the SFTP endpoint exports are downloaded from
type CommonAppArgs struct {
	Host       string `json:"host,omitempty" yaml:"host,omitempty" hcl:"host,optional"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty" hcl:"port,optional"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty" hcl:"username,optional"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty" hcl:"password,optional"`
	KnownHosts string `json:"known_hosts,omitempty" yaml:"known_hosts,omitempty" hcl:"known_hosts,optional"`
	Dir        string `json:"dir,omitempty" yaml:"dir,omitempty" hcl:"dir,optional"` // Remote directory holding the exports
}

// 🎓 SlateArgs covers both the SFTP drop and the HTTP import service
type SlateArgs struct {
	Hostname   string `json:"hostname,omitempty" yaml:"hostname,omitempty" hcl:"hostname,optional"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty" hcl:"port,optional"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty" hcl:"username,optional"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty" hcl:"password,optional"`
	KnownHosts string `json:"known_hosts,omitempty" yaml:"known_hosts,omitempty" hcl:"known_hosts,optional"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty" hcl:"url,optional"` // Base URL of the import service
}

// 💳 WebAdmitArgs configures the payments export
type WebAdmitArgs struct {
	URL           string `json:"url,omitempty" yaml:"url,omitempty" hcl:"url,optional"`
	APIKey        string `json:"api_key,omitempty" yaml:"api_key,omitempty" hcl:"api_key,optional"`
	UserID        string `json:"user_id,omitempty" yaml:"user_id,omitempty" hcl:"user_id,optional"`
	PaymentExport string `json:"payment_export,omitempty" yaml:"payment_export,omitempty" hcl:"payment_export,optional"`
	PaymentSource string `json:"payment_source,omitempty" yaml:"payment_source,omitempty" hcl:"payment_source,optional"` // Slate import format for the payload
	PollInterval  string `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty" hcl:"poll_interval,optional"`
	MaxAttempts   int    `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" hcl:"max_attempts,optional"`
}

// 📁 DataArgs controls the local workspace and the transforms
type DataArgs struct {
	Timezone           string   `json:"timezone,omitempty" yaml:"timezone,omitempty" hcl:"timezone,optional"`
	OutDir             string   `json:"out_dir,omitempty" yaml:"out_dir,omitempty" hcl:"out_dir,optional"`
	ChunkSize          int      `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty" hcl:"chunk_size,optional"`
	Chunking           *bool    `json:"chunking,omitempty" yaml:"chunking,omitempty" hcl:"chunking,optional"` // false rewrites manifest archives in place
	ManifestExtensions []string `json:"manifest_extensions,omitempty" yaml:"manifest_extensions,omitempty" hcl:"manifest_extensions,optional"`
	UploadConcurrency  int      `json:"upload_concurrency,omitempty" yaml:"upload_concurrency,omitempty" hcl:"upload_concurrency,optional"`
}

// 🗄️ ArchiveArgs configures the optional raw copy to object storage
type ArchiveArgs struct {
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" hcl:"endpoint,optional"`
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty" hcl:"bucket,optional"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty" hcl:"prefix,optional"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty" hcl:"region,optional"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty" hcl:"access_key,optional"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty" hcl:"secret_key,optional"`
	UseSSL    bool   `json:"use_ssl,omitempty" yaml:"use_ssl,omitempty" hcl:"use_ssl,optional"`
}

// Enabled reports whether a bucket is configured.
func (a ArchiveArgs) Enabled() bool {
	return a.Bucket != ""
}

// 📒 LedgerArgs locates the delivery ledger
type LedgerArgs struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty" hcl:"path,optional"`
}

// 📚 Config represents the complete configuration
type Config struct {
	CommonApp CommonAppArgs `json:"commonapp" yaml:"commonapp"`
	Slate     SlateArgs     `json:"slate" yaml:"slate"`
	WebAdmit  WebAdmitArgs  `json:"webadmit" yaml:"webadmit"`
	Data      DataArgs      `json:"data" yaml:"data"`
	Archive   ArchiveArgs   `json:"archive" yaml:"archive"`
	Ledger    LedgerArgs    `json:"ledger" yaml:"ledger"`
	Sources   []Source      `json:"sources,omitempty" yaml:"sources,omitempty"`

	location string
}

// 🎯 Load loads the configuration from a file, applies CAPSEND_* environment
// overrides and validates the result
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path

	return finish(ctx, cfg)
}

// 🌱 FromEnv builds a configuration from defaults and environment overrides only
func FromEnv(ctx context.Context) (*Config, error) {
	return finish(ctx, &Config{})
}

func finish(ctx context.Context, cfg *Config) (*Config, error) {
	if err := cfg.applyEnv(ctx, os.LookupEnv); err != nil {
		return nil, errors.Errorf("applying environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Location returns the file the configuration was loaded from, if any.
func (cfg *Config) Location() string {
	return cfg.location
}

// 🔍 Validate fills defaults and checks the configuration
func (cfg *Config) Validate() error {
	d := &cfg.Data
	if d.Timezone == "" {
		d.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		return errors.Errorf("data.timezone: %w", err)
	}
	if d.OutDir == "" {
		d.OutDir = DefaultOutDir
	}
	d.OutDir = filepath.Clean(d.OutDir)
	if d.ChunkSize < 0 {
		return errors.Errorf("data.chunk_size must be positive, got %d", d.ChunkSize)
	}
	if d.ChunkSize == 0 {
		d.ChunkSize = family.DefaultChunkSize
	}
	if d.Chunking == nil {
		chunking := true
		d.Chunking = &chunking
	}
	if len(d.ManifestExtensions) == 0 {
		d.ManifestExtensions = []string{".xml"}
	}
	for i, ext := range d.ManifestExtensions {
		if !strings.HasPrefix(ext, ".") {
			d.ManifestExtensions[i] = "." + ext
		}
	}
	if d.UploadConcurrency <= 0 {
		d.UploadConcurrency = DefaultUploadConcurrency
	}

	if cfg.CommonApp.Host == "" {
		cfg.CommonApp.Host = DefaultCommonAppHost
	}
	if cfg.CommonApp.Port == 0 {
		cfg.CommonApp.Port = DefaultPort
	}
	if cfg.Slate.Port == 0 {
		cfg.Slate.Port = DefaultPort
	}
	cfg.Slate.URL = strings.TrimSuffix(cfg.Slate.URL, "/")

	w := &cfg.WebAdmit
	if w.URL == "" {
		w.URL = DefaultWebAdmitURL
	}
	w.URL = strings.TrimSuffix(w.URL, "/")
	if w.PollInterval != "" {
		if _, err := time.ParseDuration(w.PollInterval); err != nil {
			return errors.Errorf("webadmit.poll_interval: %w", err)
		}
	}
	if w.MaxAttempts <= 0 {
		w.MaxAttempts = DefaultMaxPollAttempts
	}

	if cfg.Archive.Enabled() && cfg.Archive.Endpoint == "" {
		return errors.Errorf("archive.endpoint is required when archive.bucket is set")
	}

	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = BuiltinSources()
	}
	seen := make(map[string]bool, len(cfg.Sources))
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if err := src.validate(); err != nil {
			return errors.Errorf("sources[%d]: %w", i, err)
		}
		if seen[src.Name] {
			return errors.Errorf("duplicate source name: %s", src.Name)
		}
		seen[src.Name] = true
	}

	return nil
}

// Chunking reports whether manifest archives are split into chunks.
func (cfg *Config) Chunking() bool {
	return cfg.Data.Chunking == nil || *cfg.Data.Chunking
}

// TimeLocation resolves data.timezone.
func (cfg *Config) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Data.Timezone)
	if err != nil {
		return nil, errors.Errorf("loading timezone %q: %w", cfg.Data.Timezone, err)
	}
	return loc, nil
}

// PollInterval returns webadmit.poll_interval or its default.
func (cfg *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(cfg.WebAdmit.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// 🧭 FamilyRegistry resolves the archive families with the configured chunk size
func (cfg *Config) FamilyRegistry() *family.Registry {
	return family.Default(cfg.Data.ChunkSize)
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}
