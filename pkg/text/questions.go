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

package text

import "regexp"

// CustomQuestionRule moves the numeric position of a custom question column
// from prefix to suffix: custom_questions_12_favorite_color becomes
// favorite_color_12. The name runs up to the next tab, CR or LF, which is
// kept; a name at the very end of the content is left alone.
var CustomQuestionRule = ReplacementRule{
	Pattern:        regexp.MustCompile(`custom_questions_(\d+)_([^\n][^\t\r\n]*)([\t\r\n])`),
	Replacement:    "${2}_${1}${3}",
	FileFilterGlob: "*_TR_Applications.txt",
}
