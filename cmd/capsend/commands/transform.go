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

// NewTransformCmd creates a command that normalizes local archives only
func NewTransformCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform FILE...",
		Short: "Normalize local archives without any network access",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := operation.NewTransformOperation(operation.Options{Dispatcher: o.Dispatcher()}, args)
			return operation.NewRunner(&o.Logger, false).Run(cmd.Context(), op)
		},
	}
	return cmd
}
