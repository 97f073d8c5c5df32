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
	"slices"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

// Transports a source can be uploaded with.
const (
	TransportSFTP = "sftp"
	TransportHTTP = "http"
)

const datePlaceholder = "{}"

// 📦 Source is one nightly export: where it comes from and where it goes
type Source struct {
	Name        string `json:"name" yaml:"name" hcl:"name,label"`
	Pattern     string `json:"pattern" yaml:"pattern" hcl:"pattern"`             // Filename with {} where the date goes
	DateFormat  string `json:"date_format" yaml:"date_format" hcl:"date_format"` // Go time layout for the date
	Format      string `json:"format,omitempty" yaml:"format,omitempty" hcl:"format,optional"`
	Order       int    `json:"order,omitempty" yaml:"order,omitempty" hcl:"order,optional"`
	Destination string `json:"destination" yaml:"destination" hcl:"destination"`
	Transport   string `json:"transport,omitempty" yaml:"transport,omitempty" hcl:"transport,optional"`
}

// Filename returns the export name for the given run date.
func (s Source) Filename(date time.Time) string {
	return strings.Replace(s.Pattern, datePlaceholder, date.Format(s.DateFormat), 1)
}

// Glob matches the export and any chunk archives derived from it, so
// ugaappl_*.zip also selects ugaappl_01022006_000.zip.
func (s Source) Glob() string {
	return strings.Replace(s.Pattern, datePlaceholder, "*", 1)
}

// UploadTarget is what the sink receives as destination: the remote
// directory for SFTP, the import format for HTTP.
func (s Source) UploadTarget() string {
	if s.Transport == TransportHTTP {
		return s.Format
	}
	return s.Destination
}

func (s *Source) validate() error {
	if s.Name == "" {
		return errors.Errorf("name is required")
	}
	if !strings.Contains(s.Pattern, datePlaceholder) {
		return errors.Errorf("source %s: pattern %q has no %s placeholder", s.Name, s.Pattern, datePlaceholder)
	}
	if s.DateFormat == "" {
		return errors.Errorf("source %s: date_format is required", s.Name)
	}
	if s.Destination == "" {
		return errors.Errorf("source %s: destination is required", s.Name)
	}
	switch s.Transport {
	case "":
		s.Transport = TransportSFTP
	case TransportSFTP:
	case TransportHTTP:
		if s.Format == "" {
			s.Format = s.Destination
		}
	default:
		return errors.Errorf("source %s: unknown transport %q", s.Name, s.Transport)
	}
	return nil
}

// 🏗️ BuiltinSources returns the six nightly exports of the production deployment
func BuiltinSources() []Source {
	return []Source{
		{
			Name:        "cap_applications",
			Pattern:     "ugaappl_{}.zip",
			DateFormat:  "01022006",
			Format:      "60abb9fc-d53f-4ec7-82d1-78f8857c4d45",
			Order:       10,
			Destination: "/incoming/oua/commonapp",
			Transport:   TransportSFTP,
		},
		{
			Name:        "cap_forms",
			Pattern:     "ugaapplsform_{}.zip",
			DateFormat:  "01022006",
			Format:      "4061d4df-3425-4ce9-a497-e6786d5692d5",
			Order:       20,
			Destination: "/incoming/oua/commonapp",
			Transport:   TransportSFTP,
		},
		{
			Name:        "capx_application_data",
			Pattern:     "{}_TR_Applications.txt",
			DateFormat:  "01_02_2006",
			Format:      "59c95237-6fa0-4761-993e-102a0200b03a",
			Order:       30,
			Destination: "/incoming/oua/commonapp_transfer",
			Transport:   TransportSFTP,
		},
		{
			Name:        "capx_applications",
			Pattern:     "{}_TR_Applications.zip",
			DateFormat:  "01_02_2006",
			Format:      "ab6535f5-5e77-4a91-b810-f34373f82c5e",
			Order:       40,
			Destination: "/incoming/oua/commonapp_transfer",
			Transport:   TransportSFTP,
		},
		{
			Name:        "capx_college_transcripts",
			Pattern:     "{}_TR_College_Transcript.zip",
			DateFormat:  "01_02_2006",
			Format:      "7577f6b6-03d3-49eb-afa7-f01b3a4e0629",
			Order:       50,
			Destination: "/incoming/oua/commonapp_transfer",
			Transport:   TransportSFTP,
		},
		{
			Name:        "capx_evaluations",
			Pattern:     "{}_TR_Evaluations.zip",
			DateFormat:  "01_02_2006",
			Format:      "f595fce2-eab6-4e0a-aab3-84a6ee4f9784",
			Order:       60,
			Destination: "/incoming/oua/commonapp_transfer",
			Transport:   TransportSFTP,
		},
	}
}

// 🎯 SelectSources returns the named sources (all when names is empty)
// sorted by order. Unknown names are an error.
func (cfg *Config) SelectSources(names []string) ([]Source, error) {
	var out []Source
	if len(names) == 0 {
		out = slices.Clone(cfg.Sources)
	} else {
		for _, name := range names {
			idx := slices.IndexFunc(cfg.Sources, func(s Source) bool { return s.Name == name })
			if idx < 0 {
				return nil, errors.Errorf("unknown source: %s", name)
			}
			out = append(out, cfg.Sources[idx])
		}
	}
	slices.SortStableFunc(out, func(a, b Source) int { return a.Order - b.Order })
	return out, nil
}
