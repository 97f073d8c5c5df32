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
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// EnvPrefix starts every environment override, as in CAPSEND_SLATE_PASSWORD.
const EnvPrefix = "CAPSEND"

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// bindings maps section and key to the field holding the value.
// Values are *string, *int, *bool or **bool.
func (cfg *Config) bindings() map[string]map[string]any {
	return map[string]map[string]any{
		"commonapp": {
			"host":        &cfg.CommonApp.Host,
			"port":        &cfg.CommonApp.Port,
			"username":    &cfg.CommonApp.Username,
			"password":    &cfg.CommonApp.Password,
			"known_hosts": &cfg.CommonApp.KnownHosts,
			"dir":         &cfg.CommonApp.Dir,
		},
		"slate": {
			"hostname":    &cfg.Slate.Hostname,
			"port":        &cfg.Slate.Port,
			"username":    &cfg.Slate.Username,
			"password":    &cfg.Slate.Password,
			"known_hosts": &cfg.Slate.KnownHosts,
			"url":         &cfg.Slate.URL,
		},
		"webadmit": {
			"url":            &cfg.WebAdmit.URL,
			"api_key":        &cfg.WebAdmit.APIKey,
			"user_id":        &cfg.WebAdmit.UserID,
			"payment_export": &cfg.WebAdmit.PaymentExport,
			"payment_source": &cfg.WebAdmit.PaymentSource,
			"poll_interval":  &cfg.WebAdmit.PollInterval,
			"max_attempts":   &cfg.WebAdmit.MaxAttempts,
		},
		"data": {
			"timezone":           &cfg.Data.Timezone,
			"out_dir":            &cfg.Data.OutDir,
			"chunk_size":         &cfg.Data.ChunkSize,
			"chunking":           &cfg.Data.Chunking,
			"upload_concurrency": &cfg.Data.UploadConcurrency,
		},
		"archive": {
			"endpoint":   &cfg.Archive.Endpoint,
			"bucket":     &cfg.Archive.Bucket,
			"prefix":     &cfg.Archive.Prefix,
			"region":     &cfg.Archive.Region,
			"access_key": &cfg.Archive.AccessKey,
			"secret_key": &cfg.Archive.SecretKey,
			"use_ssl":    &cfg.Archive.UseSSL,
		},
		"ledger": {
			"path": &cfg.Ledger.Path,
		},
	}
}

// EnvKey returns the environment variable overriding section.key.
func EnvKey(section, key string) string {
	return strings.ToUpper(EnvPrefix + "_" + section + "_" + key)
}

// applyEnv overwrites fields with their CAPSEND_<SECTION>_<KEY> variables.
func (cfg *Config) applyEnv(ctx context.Context, lookup LookupFunc) error {
	for section, keys := range cfg.bindings() {
		for key, field := range keys {
			name := EnvKey(section, key)
			raw, ok := lookup(name)
			if !ok {
				continue
			}
			if err := set(field, raw); err != nil {
				return errors.Errorf("%s: %w", name, err)
			}
			zerolog.Ctx(ctx).Debug().Str("env", name).Msg("config value overridden from environment")
		}
	}
	return nil
}

func set(field any, raw string) error {
	switch f := field.(type) {
	case *string:
		*f = raw
	case *int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Errorf("parsing integer: %w", err)
		}
		*f = n
	case *bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.Errorf("parsing boolean: %w", err)
		}
		*f = b
	case **bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.Errorf("parsing boolean: %w", err)
		}
		*f = &b
	default:
		return errors.Errorf("unsupported field type %T", field)
	}
	return nil
}

func get(field any) string {
	switch f := field.(type) {
	case *string:
		return *f
	case *int:
		if *f == 0 {
			return ""
		}
		return strconv.Itoa(*f)
	case *bool:
		return strconv.FormatBool(*f)
	case **bool:
		if *f == nil {
			return ""
		}
		return strconv.FormatBool(**f)
	}
	return fmt.Sprint(field)
}

// 🔎 GetOrElse returns section.key, preferring its environment override,
// and falls back to def when the value is unset or empty. Section and key
// are case-insensitive, so GetOrElse("slate", "URL", "") works.
func (cfg *Config) GetOrElse(section, key, def string) string {
	section, key = strings.ToLower(section), strings.ToLower(key)
	if v, ok := os.LookupEnv(EnvKey(section, key)); ok && v != "" {
		return v
	}
	field, ok := cfg.bindings()[section][key]
	if !ok {
		return def
	}
	if v := get(field); v != "" {
		return v
	}
	return def
}
