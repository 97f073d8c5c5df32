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

	"github.com/spf13/cobra"
	"github.com/walteh/capsend/cmd/capsend/opts"
	"gitlab.com/tozd/go/errors"
)

// NewHistoryCmd creates a command that prints recent ledger events
func NewHistoryCmd(o *opts.RootOpts) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfer events from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ledger, err := o.OpenLedger(ctx)
			if err != nil {
				return errors.Errorf("opening ledger: %w", err)
			}
			defer ledger.Close()

			entries, err := ledger.History(ctx, n)
			if err != nil {
				return err
			}
			// oldest at the top, like a log
			for i := len(entries) - 1; i >= 0; i-- {
				fmt.Fprintln(o.Out, entries[i].String())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "limit", "n", 50, "number of events")
	return cmd
}
