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

package operation

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🧹 NewCleanOperation creates an operation that empties the workspace
func NewCleanOperation(opts Options) Operation {
	return &cleanOperation{
		BaseOperation: NewBaseOperation(opts),
	}
}

// 🧹 cleanOperation implements the clean operation
type cleanOperation struct {
	BaseOperation
}

func (op *cleanOperation) Name() string {
	return "clean"
}

// 🏃 Execute removes every file left in the workspace by the last run
func (op *cleanOperation) Execute(ctx context.Context) error {
	if op.StatusMgr == nil {
		return errors.Errorf("clean needs a workspace")
	}
	if err := op.StatusMgr.Prepare(ctx); err != nil {
		return errors.Errorf("cleaning workspace: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("dir", op.StatusMgr.Dir()).Msg("workspace cleaned")
	return nil
}
