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

package family

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
		wantOK   bool
	}{
		{name: "application_long_prefix", filename: "123125125_123125!1231245212.pdf", want: "APP", wantOK: true},
		{name: "application_short_prefix", filename: "21342341_134124!81724726.pdf", want: "APP", wantOK: true},
		{name: "application_bare", filename: "123125!1231245212.pdf", want: "APP", wantOK: true},
		{name: "school_report", filename: "123125125_123125!123124_ST_23415212.pdf", want: "ST", wantOK: true},
		{name: "te_form", filename: "123125125_123125!123124_TE_23415212.pdf", want: "TE", wantOK: true},
		{name: "no_bang", filename: "123124_TE_23415212.pdf", wantOK: false},
		{name: "not_pdf", filename: "123125!1231245212.txt", wantOK: false},
		{name: "empty", filename: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormType(tt.filename)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultRegistry_Classify(t *testing.T) {
	reg := Default(0)

	tests := []struct {
		name     string
		filename string
		wantTag  string
		wantKind Kind
	}{
		{name: "freshman_app", filename: "ugaappl_10182026.zip", wantTag: TagFreshmanApp, wantKind: KindManifestIndex},
		{name: "freshman_forms", filename: "ugaapplsform_10182026.zip", wantTag: TagFreshmanForms, wantKind: KindManifestIndex},
		{name: "transfer_app_zip", filename: "10_18_2026_TR_Applications.zip", wantTag: TagTransferApp, wantKind: KindEntryIndex},
		{name: "transfer_app_data", filename: "10_18_2026_TR_Applications.txt", wantTag: TagTransferAppData, wantKind: KindRawText},
		{name: "transfer_eval", filename: "10_18_2026_TR_Evaluations.zip", wantTag: TagTransferEval, wantKind: KindEntryIndex},
		{name: "transfer_transcript", filename: "10_18_2026_TR_College_Transcript.zip", wantTag: TagTransferTranscript, wantKind: KindEntryIndex},
		{name: "chunk_output_matches_loosely", filename: "ugaappl_10182026_000.zip", wantTag: TagFreshmanApp, wantKind: KindManifestIndex},
		{name: "unknown", filename: "payments.csv"},
		{name: "not_anchored_at_end_only", filename: "x_ugaappl_10182026.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fam, ok := reg.Classify(tt.filename)
			if tt.wantTag == "" {
				assert.False(t, ok)
				assert.Nil(t, fam)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantTag, fam.Tag)
			assert.Equal(t, tt.wantKind, fam.Kind)
		})
	}
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	broad := &Family{Tag: "broad", Kind: KindRawText, ArchivePattern: prefix(`.+\.zip`)}
	narrow := &Family{Tag: "narrow", Kind: KindRawText, ArchivePattern: prefix(`ugaappl_.+\.zip`)}

	reg, err := NewRegistry(broad, narrow)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		fam, ok := reg.Classify("ugaappl_01012026.zip")
		require.True(t, ok)
		assert.Equal(t, "broad", fam.Tag, "registry order decides ties")
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name      string
		families  []*Family
		wantError string
	}{
		{
			name:      "missing_tag",
			families:  []*Family{{ArchivePattern: prefix(`x`)}},
			wantError: "tag is required",
		},
		{
			name: "duplicate_tag",
			families: []*Family{
				{Tag: "a", ArchivePattern: prefix(`x`)},
				{Tag: "a", ArchivePattern: prefix(`y`)},
			},
			wantError: "duplicate family tag",
		},
		{
			name:      "entry_index_without_fields",
			families:  []*Family{{Tag: "a", Kind: KindEntryIndex, ArchivePattern: prefix(`x`)}},
			wantError: "entry pattern and fields are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.families...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestFamily_Capture(t *testing.T) {
	reg := Default(0)

	tests := []struct {
		name   string
		tag    string
		entry  string
		want   map[string]string
		wantOK bool
	}{
		{
			name:  "transfer_application",
			tag:   TagTransferApp,
			entry: "TR_12345_Smith_Jane_Application.pdf",
			want: map[string]string{
				"filename":     "TR_12345_Smith_Jane_Application.pdf",
				"commonapp_id": "12345",
				"last_name":    "Smith",
				"first_name":   "Jane",
			},
			wantOK: true,
		},
		{
			name:  "transfer_evaluation",
			tag:   TagTransferEval,
			entry: "TR_777_Doe_John_42_Evaluation_Prof Brown_2026.pdf",
			want: map[string]string{
				"filename":     "TR_777_Doe_John_42_Evaluation_Prof Brown_2026.pdf",
				"commonapp_id": "777",
				"last_name":    "Doe",
				"first_name":   "John",
				"doc_id":       "42",
				"recommender":  "Prof Brown",
			},
			wantOK: true,
		},
		{
			name:  "transfer_transcript",
			tag:   TagTransferTranscript,
			entry: "TR_9_Lee_Ann_3_Transcript_C001_State College_20261018.pdf",
			want: map[string]string{
				"filename":     "TR_9_Lee_Ann_3_Transcript_C001_State College_20261018.pdf",
				"commonapp_id": "9",
				"last_name":    "Lee",
				"first_name":   "Ann",
				"doc_id":       "3",
				"doc_type":     "Transcript",
				"college_code": "C001",
				"college_name": "State College",
				"submit_dt":    "20261018",
			},
			wantOK: true,
		},
		{
			name:   "miss",
			tag:    TagTransferApp,
			entry:  "readme.txt",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fam, ok := reg.Lookup(tt.tag)
			require.True(t, ok)
			got, ok := fam.Capture(tt.entry)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	re := prefix(`a|b`)
	assert.Equal(t, `^(?:a|b)`, re.String())
	assert.True(t, re.MatchString("bcd"))
	assert.False(t, re.MatchString("cb"))
	assert.IsType(t, &regexp.Regexp{}, re)
}
