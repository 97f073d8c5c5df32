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
	"github.com/walteh/capsend/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// NewPaymentsCmd creates a command that forwards the WebAdMIT payments export to Slate
func NewPaymentsCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "payments",
		Short: "Export payments from WebAdMIT and import them into Slate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := o.Config.WebAdmit
			if w.APIKey == "" || w.UserID == "" || w.PaymentExport == "" {
				return errors.Errorf("webadmit.api_key, webadmit.user_id and webadmit.payment_export are required")
			}
			if w.PaymentSource == "" {
				return errors.Errorf("webadmit.payment_source is required")
			}
			_, api := o.Slate(nil)
			if api == nil {
				return errors.Errorf("slate.url is required")
			}

			ulog := log.FromContext(ctx)
			ulog.StartStage(ctx, "payments")
			defer ulog.EndStage(ctx)

			data, err := o.WebAdmit().Export(ctx, w.PaymentExport)
			ulog.LogTransferOperation(ctx, log.TransferOperation{
				Name: "payments", Direction: log.Download, Remote: "webadmit", Size: int64(len(data)), Err: err,
			})
			if err != nil {
				return err
			}

			err = api.UploadBytes(ctx, data, w.PaymentSource)
			ulog.LogTransferOperation(ctx, log.TransferOperation{
				Name: "payments", Direction: log.Upload, Remote: w.PaymentSource, Size: int64(len(data)), Err: err,
			})
			return err
		},
	}
}
