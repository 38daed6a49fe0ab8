// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/eeghdf/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, config.OutputTable, cfg.Output)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Precision)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("Full", func(t *testing.T) {
		path := writeConfig(t, "output: json\nlog_level: debug\nprecision: 6\n")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, &config.Config{Output: "json", LogLevel: "debug", Precision: 6}, cfg)
	})

	t.Run("Partial", func(t *testing.T) {
		path := writeConfig(t, "output: yaml\n")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, config.OutputYAML, cfg.Output)
		assert.Equal(t, config.Default().LogLevel, cfg.LogLevel)
		assert.Equal(t, config.Default().Precision, cfg.Precision)
	})

	t.Run("Round Trip", func(t *testing.T) {
		want := &config.Config{Output: "table", LogLevel: "error", Precision: 0}
		data, err := yaml.Marshal(want)
		require.NoError(t, err)

		cfg, err := config.Load(writeConfig(t, string(data)))
		require.NoError(t, err)
		assert.Equal(t, want, cfg)
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Bad YAML", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "output: [json\n"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		msg  string
	}{
		{"Output", config.Config{Output: "csv", LogLevel: "info", Precision: 3}, "Output"},
		{"Log Level", config.Config{Output: "json", LogLevel: "trace", Precision: 3}, "LogLevel"},
		{"Precision", config.Config{Output: "json", LogLevel: "info", Precision: 13}, "Precision"},
		{"Negative Precision", config.Config{Output: "json", LogLevel: "info", Precision: -1}, "Precision"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "eeghdf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
