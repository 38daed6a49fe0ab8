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
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/eeghdf"
	"github.com/OpenPSG/eeghdf/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// useRecording makes every command read an in-memory recording.
func useRecording(t *testing.T) {
	orig := openRecord
	openRecord = func(path string, opts ...eeghdf.Option) (*eeghdf.Record, error) {
		return eeghdf.New(testRecording(), opts...)
	}
	t.Cleanup(func() {
		openRecord = orig
	})
}

func testRecording() *container.Memory {
	root := container.NewMemory()
	root.CreateGroup("patient").
		SetAttr("patient_name", "Doe, Jane").
		SetAttr("patient_sex", []byte("F"))

	rec := root.CreateGroup("record-0").
		SetAttr("patient_age_days", int64(3650)).
		SetAttr("start_isodatetime", "2009-01-01T10:11:12").
		SetAttr("end_isodatetime", "2009-01-01T10:11:14").
		SetAttr("number_channels", int64(2)).
		SetAttr("number_samples_per_channel", int64(4)).
		SetAttr("sample_frequency", 2.0).
		PutSignals("signals", [][]int32{{500, 510, 520, 530}, {0, 10, 20, 30}}).
		PutDataset("signal_labels", []string{"EEG Fp1-REF", "EEG Fp2-REF"}).
		PutDataset("physical_dimensions", []string{"uV", "mV"}).
		PutDataset("signal_physical_mins", []float64{-50, 0}).
		PutDataset("signal_physical_maxs", []float64{50, 250}).
		PutDataset("signal_digital_mins", []int16{0, -250}).
		PutDataset("signal_digital_maxs", []int16{1000, 1000})

	rec.CreateGroup("edf_annotations").
		PutDataset("texts", []string{"Seizure onset", "eye blink", "SEIZURE end"}).
		PutDataset("starts_100ns", []int64{0, 10_000_000, 15_000_000})

	return root
}

func run(t *testing.T, args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	useRecording(t)

	t.Run("Table", func(t *testing.T) {
		out, err := run(t, "info", "study.eeg.h5", "--precision", "1")
		require.NoError(t, err)

		assert.Contains(t, out, "study.eeg.h5")
		assert.Contains(t, out, "10.0 years")
		assert.Contains(t, out, "2.0 s")
		assert.Contains(t, out, "offset (max |offset| 500)")
		assert.Contains(t, out, "Patient patient sex:")
		assert.Contains(t, out, "EEG Fp2-REF")
		assert.Contains(t, out, "mV")
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := run(t, "info", "study.eeg.h5", "-o", "json")
		require.NoError(t, err)

		var report infoReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 2, report.Channels)
		assert.Equal(t, 4, report.SamplesPerChannel)
		assert.Equal(t, 3, report.Annotations)
		assert.Equal(t, "F", report.Patient["patient_sex"])
		require.Len(t, report.ChannelInfo, 2)
		assert.Equal(t, channelInfo{
			Label:       "EEG Fp2-REF",
			Unit:        "mV",
			PhysicalMin: 0,
			PhysicalMax: 250,
			DigitalMin:  -250,
			DigitalMax:  1000,
		}, report.ChannelInfo[1])
	})
}

func TestAnnotations(t *testing.T) {
	useRecording(t)

	out, err := run(t, "annotations", "study.eeg.h5", "--grep", "seizure", "-o", "json")
	require.NoError(t, err)

	var rows []annotationRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []annotationRow{
		{Start: 0, Start100ns: 0, Text: "Seizure onset"},
		{Start: 1.5, Start100ns: 15_000_000, Text: "SEIZURE end"},
	}, rows)

	out, err = run(t, "annotations", "study.eeg.h5", "--grep", "seizure", "--case-sensitive")
	require.NoError(t, err)
	assert.Contains(t, out, "No annotations found")

	out, err = run(t, "annotations", "study.eeg.h5")
	require.NoError(t, err)
	assert.Contains(t, out, "START (100NS)")
	assert.Contains(t, out, "eye blink")
	assert.Contains(t, out, "15000000")

	_, err = run(t, "annotations", "study.eeg.h5", "--grep", "(")
	require.Error(t, err)
}

func TestSignals(t *testing.T) {
	useRecording(t)

	t.Run("Physical", func(t *testing.T) {
		out, err := run(t, "signals", "study.eeg.h5", "--select", ":, 1:3", "-o", "yaml")
		require.NoError(t, err)

		var report struct {
			Shape []int       `yaml:"shape"`
			Data  [][]float64 `yaml:"data"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(out), &report))
		assert.Equal(t, []int{2, 2}, report.Shape)
		require.Len(t, report.Data, 2)
		assert.InDeltaSlice(t, []float64{1, 2}, report.Data[0], 1e-9)
		assert.InDeltaSlice(t, []float64{52, 54}, report.Data[1], 1e-9)
	})

	t.Run("Table", func(t *testing.T) {
		out, err := run(t, "signals", "study.eeg.h5", "--select", "1", "--precision", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "# shape [4]")
		assert.Contains(t, out, "50.0")
		assert.Contains(t, out, "56.0")
	})

	t.Run("Raw Scalar", func(t *testing.T) {
		out, err := run(t, "signals", "study.eeg.h5", "--select", "0, -1", "--raw", "-o", "json")
		require.NoError(t, err)

		var report signalsReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Empty(t, report.Shape)
		assert.Equal(t, float64(530), report.Data)
	})

	t.Run("Bad Selector", func(t *testing.T) {
		_, err := run(t, "signals", "study.eeg.h5", "--select", "0:4:2")
		require.ErrorIs(t, err, eeghdf.ErrUnsupportedSelector)
	})

	t.Run("Out Of Range", func(t *testing.T) {
		_, err := run(t, "signals", "study.eeg.h5", "--select", "5")
		require.ErrorIs(t, err, eeghdf.ErrIndexOutOfRange)
	})
}

func TestConfigOverrides(t *testing.T) {
	useRecording(t)

	path := filepath.Join(t.TempDir(), "eeghdf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: json\nprecision: 2\n"), 0o600))

	out, err := run(t, "annotations", "study.eeg.h5", "--config", path)
	require.NoError(t, err)
	var rows []annotationRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 3)

	out, err = run(t, "annotations", "study.eeg.h5", "--config", path, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "1.50")

	_, err = run(t, "info", "study.eeg.h5", "-o", "csv")
	require.Error(t, err)

	_, err = run(t, "info", "study.eeg.h5", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
