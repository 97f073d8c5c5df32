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

package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/capsend/cmd/capsend/commands"
	"github.com/walteh/capsend/cmd/capsend/opts"
	"github.com/walteh/capsend/pkg/config"
	"github.com/walteh/capsend/pkg/log"
	"gitlab.com/tozd/go/errors"
)

const defaultConfigFile = "capsend.yaml"

// newRootCmd builds the command tree. Configuration is loaded once flags are parsed.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		configFile string
		debug      bool
	)
	o := &opts.RootOpts{Out: stdout}

	rootCmd := &cobra.Command{
		Use:   "capsend",
		Short: "Move CommonApp exports into Slate",
		Long: `capsend downloads the nightly CommonApp exports, normalizes their
archives into the layout Slate's intake expects and uploads the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(stderr, debug)
			ctx := logger.WithContext(cmd.Context())

			cfg, err := loadConfig(ctx, configFile)
			if err != nil {
				return err
			}

			o.Config = cfg
			o.Logger = logger
			o.UserLogger = log.New(stdout, logger)
			cmd.SetContext(log.NewContext(ctx, o.UserLogger))
			return nil
		},
	}

	addRootFlags(rootCmd, &configFile, &debug)

	rootCmd.AddCommand(
		commands.NewSyncCmd(o),
		commands.NewTransformCmd(o),
		commands.NewInspectCmd(o),
		commands.NewFamiliesCmd(o),
		commands.NewPaymentsCmd(o),
		commands.NewHistoryCmd(o),
		commands.NewStatusCmd(o),
		commands.NewCleanCmd(o),
		newVersionCmd(stdout),
	)
	return rootCmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, configFile *string, debug *bool) {
	cmd.PersistentFlags().StringVarP(configFile, "config", "c", defaultConfigFile, "config file path (.yaml, .json or .hcl)")
	cmd.PersistentFlags().BoolVarP(debug, "debug", "d", false, "enable debug logging")
}

// setupLogging builds the zerolog logger every package reads from the context
func setupLogging(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// loadConfig reads path; a missing default file falls back to environment only.
func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	cfg, err := config.Load(ctx, path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigFile && errors.Is(err, os.ErrNotExist) {
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("no config file, using environment")
		return config.FromEnv(ctx)
	}
	return nil, errors.Errorf("loading config: %w", err)
}
