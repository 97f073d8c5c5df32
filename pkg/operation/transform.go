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

	"github.com/walteh/capsend/pkg/log"
	"github.com/walteh/capsend/pkg/transform"
	"gitlab.com/tozd/go/errors"
)

// 🔧 TransformOperation dispatches local files without touching any remote
type TransformOperation struct {
	BaseOperation
	paths   []string
	results []*transform.Result
}

var _ Operation = (*TransformOperation)(nil)

// NewTransformOperation creates a transform over paths.
func NewTransformOperation(opts Options, paths []string) *TransformOperation {
	return &TransformOperation{BaseOperation: NewBaseOperation(opts), paths: paths}
}

func (op *TransformOperation) Name() string {
	return "transform"
}

// Results returns one result per path from the last Execute.
func (op *TransformOperation) Results() []*transform.Result {
	return op.results
}

// Execute transforms every path; it fails when any archive failed.
func (op *TransformOperation) Execute(ctx context.Context) error {
	if op.Dispatcher == nil {
		return errors.Errorf("transform needs a dispatcher")
	}
	ulog := log.FromContext(ctx)
	ulog.StartStage(ctx, "transform")
	op.results = op.Dispatcher.DispatchAll(ctx, op.paths)
	ulog.EndStage(ctx)

	failed := 0
	for _, res := range op.results {
		if res.Outcome == log.OutcomeFailed {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d archives failed to transform", failed, len(op.results))
	}
	return nil
}
