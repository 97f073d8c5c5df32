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
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/capsend/cmd/capsend/opts"
	"github.com/walteh/capsend/pkg/family"
	"github.com/walteh/capsend/pkg/index"
	"github.com/walteh/capsend/pkg/manifest"
	"gitlab.com/tozd/go/errors"
)

// NewInspectCmd creates a command that prints manifest records or an index
func NewInspectCmd(o *opts.RootOpts) *cobra.Command {
	var (
		comma bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the records of a manifest (.xml, .zip) or an index file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			var (
				header  []string
				records []*index.Record
			)
			switch strings.ToLower(filepath.Ext(path)) {
			case ".xml", ".zip":
				m, err := manifest.ReadFile(ctx, path, o.Config.Data.ManifestExtensions)
				if err != nil {
					return err
				}
				records = m.Records
				if len(records) > 0 {
					header = records[0].Keys()
				}
			default:
				delim := family.Tab
				if comma {
					delim = family.Comma
				}
				var err error
				header, records, err = index.ReadFile(path, delim)
				if err != nil {
					return err
				}
			}

			if len(header) == 0 {
				return errors.Errorf("%s: %w", path, index.ErrNoRecords)
			}

			data := pterm.TableData{header}
			for i, r := range records {
				if limit > 0 && i >= limit {
					break
				}
				row := make([]string, len(header))
				for j, k := range header {
					row[j] = r.Value(k)
				}
				data = append(data, row)
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return errors.Errorf("rendering table: %w", err)
			}
			fmt.Fprintln(o.Out, table)
			fmt.Fprintf(o.Out, "%d records\n", len(records))
			return nil
		},
	}

	cmd.Flags().BoolVar(&comma, "comma", false, "index file is comma delimited")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most n rows")
	return cmd
}
