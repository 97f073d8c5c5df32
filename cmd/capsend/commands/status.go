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
	"github.com/spf13/cobra"
	"github.com/walteh/capsend/cmd/capsend/opts"
	"github.com/walteh/capsend/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// NewStatusCmd creates a command that reports which sources were delivered for a date
func NewStatusCmd(o *opts.RootOpts) *cobra.Command {
	var (
		sources []string
		date    string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check which sources have been delivered for a run date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			selected, err := o.Config.SelectSources(sources)
			if err != nil {
				return err
			}
			runDate, err := o.RunDate(date)
			if err != nil {
				return err
			}
			ledger, err := o.OpenLedger(ctx)
			if err != nil {
				return errors.Errorf("opening ledger: %w", err)
			}
			defer ledger.Close()

			op := operation.NewStatusOperation(operation.Options{
				Sources: selected,
				Date:    runDate,
				Ledger:  ledger,
			}, o.Out)
			return operation.NewRunner(&o.Logger, false).Run(ctx, op)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "sources", nil, "sources to report (default all)")
	cmd.Flags().StringVar(&date, "date", "", "run date as YYYYMMDD (default today in data.timezone)")
	return cmd
}
