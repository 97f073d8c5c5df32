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
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/walteh/capsend/cmd/capsend/opts"
	"github.com/walteh/capsend/pkg/operation"
	"github.com/walteh/capsend/pkg/remote"
	"github.com/walteh/capsend/pkg/remote/localfs"
	"gitlab.com/tozd/go/errors"
)

// NewSyncCmd creates the nightly transfer command
func NewSyncCmd(o *opts.RootOpts) *cobra.Command {
	var (
		sources      []string
		date         string
		skipDownload bool
		skipUpload   bool
		resume       bool
		sourceDir    string
		progress     bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download, normalize and upload the exports of one day",
		Long: `Sync runs the nightly transfer for the selected sources:
1. Download each source's export for the run date from CommonApp
2. Copy the raw downloads to the archive bucket, when configured
3. Normalize every archive in the workspace
4. Upload the results to Slate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := o.Config

			selected, err := cfg.SelectSources(sources)
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

			var bar io.Writer
			if progress {
				bar = os.Stdout
			}

			var source remote.Source
			if !skipDownload {
				if sourceDir != "" {
					source = localfs.New(sourceDir)
				} else {
					commonapp := o.CommonApp(bar)
					defer commonapp.Close()
					source = commonapp
				}
			}

			var sinks remote.Sinks
			if !skipUpload {
				drop, api := o.Slate(bar)
				if drop != nil {
					defer drop.Close()
				}
				sinks = opts.Sinks(drop, api)
			}

			archive, err := o.Archive()
			if err != nil {
				return errors.Errorf("creating archive sink: %w", err)
			}

			o.UserLogger.Header("sync " + runDate.Format("2006-01-02"))
			op := operation.NewSyncOperation(operation.Options{
				Sources:     selected,
				Date:        runDate,
				StatusMgr:   o.Workspace(),
				Dispatcher:  o.Dispatcher(),
				Source:      source,
				Sinks:       sinks,
				Archive:     archive,
				Ledger:      ledger,
				Resume:      resume,
				Concurrency: cfg.Data.UploadConcurrency,
			})
			runErr := operation.NewRunner(&o.Logger, false).Run(ctx, op)

			report := op.Report()
			for _, f := range report.Failures {
				o.UserLogger.Warning(f)
			}
			if runErr != nil {
				return runErr
			}
			o.UserLogger.Success(report.String())
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sources, "sources", nil, "sources to process (default all)")
	cmd.Flags().StringVar(&date, "date", "", "run date as YYYYMMDD (default today in data.timezone)")
	cmd.Flags().BoolVar(&skipDownload, "skip-download", false, "use the files already in the workspace")
	cmd.Flags().BoolVar(&skipUpload, "skip-upload", false, "stop after transforming")
	cmd.Flags().BoolVar(&resume, "resume", false, "skip files the ledger shows as delivered for the run date")
	cmd.Flags().StringVar(&sourceDir, "source-dir", "", "download from a local directory instead of CommonApp")
	cmd.Flags().BoolVar(&progress, "progress", false, "show transfer progress bars")

	return cmd
}
