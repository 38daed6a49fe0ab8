// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package eeghdf_test

import (
	"github.com/OpenPSG/eeghdf/container"
)

// calibrationSet holds per-channel extrema for a fixture.
type calibrationSet struct {
	pmin, pmax, dmin, dmax []float64
}

// offsetCalibration gives scale 0.1 and offset -500 on channel 0, scale 0.2
// and offset 250 on channel 1 and scale 1 and offset 0 on channel 2.
var offsetCalibration = calibrationSet{
	pmin: []float64{-50, 0, -100},
	pmax: []float64{50, 250, 100},
	dmin: []float64{0, -250, -100},
	dmax: []float64{1000, 1000, 100},
}

// zeroCalibration is the common 16-bit eeghdf calibration, whose offset of
// 0.5 raw units is treated as zero.
var zeroCalibration = calibrationSet{
	pmin: []float64{-3200, -3200, -3200},
	pmax: []float64{3200, 3200, 3200},
	dmin: []float64{-32768, -32768, -32768},
	dmax: []float64{32767, 32767, 32767},
}

// testSignals returns a 3 × 8 raw buffer with distinct values.
func testSignals() [][]int32 {
	rows := make([][]int32, 3)
	for c := range rows {
		rows[c] = make([]int32, 8)
		for s := range rows[c] {
			rows[c][s] = int32(100*c + 10*s - 30)
		}
	}
	return rows
}

// newRecording builds an in-memory eeghdf tree.
func newRecording(rows [][]int32, cal calibrationSet) *container.Memory {
	root := container.NewMemory()
	root.CreateGroup("patient").
		SetAttr("patient_name", "Doe, Jane").
		SetAttr("gestational_age_at_birth_days", int64(280)).
		SetAttr("born_premature", "false")

	samples := 0
	if len(rows) > 0 {
		samples = len(rows[0])
	}

	rec := root.CreateGroup("record-0").
		SetAttr("patient_age_days", int64(730)).
		SetAttr("start_isodatetime", "2009-01-01T10:11:12").
		SetAttr("end_isodatetime", "2009-01-01T10:41:12").
		SetAttr("number_channels", int64(len(rows))).
		SetAttr("number_samples_per_channel", int64(samples)).
		SetAttr("sample_frequency", 256.0).
		PutSignals("signals", rows).
		PutDataset("signal_labels", labelsFor(len(rows))).
		PutDataset("physical_dimensions", unitsFor(len(rows))).
		PutDataset("signal_physical_mins", cal.pmin).
		PutDataset("signal_physical_maxs", cal.pmax).
		PutDataset("signal_digital_mins", cal.dmin).
		PutDataset("signal_digital_maxs", cal.dmax)

	rec.CreateGroup("edf_annotations").
		PutDataset("texts", [][]byte{
			[]byte("Seizure onset"),
			[]byte("eye blink"),
			[]byte("SEIZURE end"),
		}).
		PutDataset("starts_100ns", []int64{0, 10_000_000, 25_000_000})

	return root
}

func labelsFor(n int) [][]byte {
	all := []string{"EEG Fp1-REF", "EEG Fp2-REF", "EEG C3-REF", "EEG C4-REF"}
	labels := make([][]byte, n)
	for i := range labels {
		labels[i] = []byte(all[i%len(all)])
	}
	return labels
}

func unitsFor(n int) []string {
	units := make([]string, n)
	for i := range units {
		units[i] = "uV"
	}
	return units
}

// blockRead is one ReadBlock call.
type blockRead struct {
	r0, r1, c0, c1 int
}

// countingSource records the blocks read through it.
type countingSource struct {
	container.Dataset
	reads []blockRead
}

func (s *countingSource) ReadBlock(r0, r1, c0, c1 int) ([]int32, error) {
	s.reads = append(s.reads, blockRead{r0, r1, c0, c1})
	return s.Dataset.ReadBlock(r0, r1, c0, c1)
}

func newCountingSource(rows [][]int32) *countingSource {
	ds, err := container.NewMemory().PutSignals("signals", rows).Dataset("signals")
	if err != nil {
		panic(err)
	}
	return &countingSource{Dataset: ds}
}
