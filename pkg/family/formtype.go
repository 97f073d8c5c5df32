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

const (
	// FormTypeApp tags the application document of a freshman batch.
	FormTypeApp = "APP"
)

var (
	appDocument  = prefix(`.+!\d+\.pdf`)
	formDocument = prefix(`.+!\d+_(?P<form_type>\w+)_\d+\.pdf`)
)

// FormType derives the document class from a manifest filename.
// The application shape is checked before the form shape.
func FormType(filename string) (string, bool) {
	if appDocument.MatchString(filename) {
		return FormTypeApp, true
	}
	m := formDocument.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[formDocument.SubexpIndex("form_type")], true
}
