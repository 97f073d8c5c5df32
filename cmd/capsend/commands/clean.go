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
)

// NewCleanCmd creates a command that empties the workspace
func NewCleanCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the files left in data.out_dir by the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			op := operation.NewCleanOperation(operation.Options{StatusMgr: o.Workspace()})
			return operation.NewRunner(&o.Logger, false).Run(cmd.Context(), op)
		},
	}
}
