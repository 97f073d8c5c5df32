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

package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/capsend/cmd/capsend/opts"
	"github.com/walteh/capsend/pkg/family"
	"gitlab.com/tozd/go/errors"
)

// NewFamiliesCmd creates a command that prints the resolved registry in classification order
func NewFamiliesCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the archive families in classification order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := pterm.TableData{{"#", "tag", "kind", "pattern", "fields", "chunk"}}
			for i, f := range o.Config.FamilyRegistry().Families() {
				chunk := ""
				if f.Kind == family.KindManifestIndex {
					chunk = strconv.Itoa(f.ChunkSize)
				}
				data = append(data, []string{
					strconv.Itoa(i + 1),
					f.Tag,
					string(f.Kind),
					f.ArchivePattern.String(),
					strings.Join(f.Fields, ","),
					chunk,
				})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return errors.Errorf("rendering table: %w", err)
			}
			fmt.Fprintln(o.Out, table)
			return nil
		},
	}
}
