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

// Family tags of the default registry.
const (
	TagFreshmanApp        = "freshman_app"
	TagFreshmanForms      = "freshman_forms"
	TagTransferApp        = "transfer_app"
	TagTransferAppData    = "transfer_app_data"
	TagTransferEval       = "transfer_eval"
	TagTransferTranscript = "transfer_transcript"
)

// 🎯 Default returns the built-in registry. The order is significant:
// freshman checks precede transfer checks, and the application zip
// precedes the application data export.
func Default(chunkSize int) *Registry {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	r, err := NewRegistry(
		&Family{
			Tag:            TagFreshmanApp,
			Kind:           KindManifestIndex,
			ArchivePattern: prefix(`ugaappl_.+\.zip`),
			Delimiter:      Tab,
			ChunkSize:      chunkSize,
		},
		&Family{
			Tag:            TagFreshmanForms,
			Kind:           KindManifestIndex,
			ArchivePattern: prefix(`ugaapplsform_.+\.zip`),
			Delimiter:      Tab,
			ChunkSize:      chunkSize,
		},
		&Family{
			Tag:            TagTransferApp,
			Kind:           KindEntryIndex,
			ArchivePattern: prefix(`\d+_\d+_\d+_TR_Applications\.zip`),
			EntryPattern:   prefix(`(?P<filename>TR_(?P<commonapp_id>\d+)_(?P<last_name>.+?)_(?P<first_name>.+?)_.+)`),
			Fields:         []string{"filename", "commonapp_id", "last_name", "first_name"},
			Delimiter:      Tab,
		},
		&Family{
			Tag:            TagTransferAppData,
			Kind:           KindRawText,
			ArchivePattern: prefix(`\d+_\d+_\d+_TR_Applications\.txt`),
			Delimiter:      Tab,
		},
		&Family{
			Tag:            TagTransferEval,
			Kind:           KindEntryIndex,
			ArchivePattern: prefix(`\d+_\d+_\d+_TR_Evaluations\.zip`),
			EntryPattern:   prefix(`(?P<filename>TR_(?P<commonapp_id>\d+)_(?P<last_name>.+?)_(?P<first_name>.+?)_(?P<doc_id>\d+)_Evaluation_(?P<recommender>.+?)_.+)`),
			Fields:         []string{"filename", "commonapp_id", "last_name", "first_name", "doc_id", "recommender"},
			Delimiter:      Tab,
		},
		&Family{
			Tag:            TagTransferTranscript,
			Kind:           KindEntryIndex,
			ArchivePattern: prefix(`\d+_\d+_\d+_TR_College_Transcript\.zip`),
			EntryPattern:   prefix(`(?P<filename>TR_(?P<commonapp_id>\d+)_(?P<last_name>.+?)_(?P<first_name>.+?)_(?P<doc_id>\d+)_(?P<doc_type>Transcript)_(?P<college_code>.+?)_(?P<college_name>.+?)_(?P<submit_dt>.+?)\.pdf)`),
			Fields: []string{"filename", "commonapp_id", "last_name", "first_name",
				"doc_id", "doc_type", "college_code", "college_name", "submit_dt"},
			Delimiter: Tab,
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}
