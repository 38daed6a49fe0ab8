// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/OpenPSG/eeghdf"
	"github.com/OpenPSG/eeghdf/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// session is shared by every subcommand of one invocation.
type session struct {
	cfg *config.Config
	log *zap.Logger
}

type sessionKey struct{}

// openRecord is replaced in tests.
var openRecord = func(path string, opts ...eeghdf.Option) (*eeghdf.Record, error) {
	return eeghdf.Open(path, opts...)
}

// Execute runs the eeghdf command line tool.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "eeghdf",
		Short: "Inspect EEG recordings stored in eeghdf files",
		Long: `eeghdf reads EEG recordings stored in the eeghdf HDF5 layout and prints
their metadata, annotations and signals in physical units.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, &session{cfg: cfg, log: log}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if s, ok := cmd.Context().Value(sessionKey{}).(*session); ok {
				_ = s.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: table, yaml or json")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Int("precision", 0, "Decimal places for physical values")

	rootCmd.AddCommand(newInfoCmd(), newAnnotationsCmd(), newSignalsCmd())

	return rootCmd
}

// loadConfig reads the configuration file, if any, and applies flag
// overrides on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output, _ = flags.GetString("output")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("precision") {
		cfg.Precision, _ = flags.GetInt("precision")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}

func sessionFrom(cmd *cobra.Command) (*session, error) {
	s, ok := cmd.Context().Value(sessionKey{}).(*session)
	if !ok {
		return nil, fmt.Errorf("session not found in context")
	}
	return s, nil
}

// withRecord opens the file named by the first argument for the duration of fn.
func withRecord(cmd *cobra.Command, path string, fn func(s *session, r *eeghdf.Record) error) error {
	s, err := sessionFrom(cmd)
	if err != nil {
		return err
	}

	r, err := openRecord(path, eeghdf.WithLogger(s.log.With(zap.String("file", path))))
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			s.log.Warn("Failed to close file", zap.String("file", path), zap.Error(err))
		}
	}()

	return fn(s, r)
}
