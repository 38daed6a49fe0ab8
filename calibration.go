// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package eeghdf

import (
	"fmt"
	"math"
)

// Calibration is the per-channel affine transform from raw samples to
// physical units:
//
//	physical = Scale[c] * (raw + Offset[c])
type Calibration struct {
	PhysicalMin []float64
	PhysicalMax []float64
	DigitalMin  []float64
	DigitalMax  []float64

	Scale  []float64 // Physical units per raw unit
	Offset []float64 // Raw units added before scaling
}

// NewCalibration derives scale and offset from the stored extrema.
func NewCalibration(physicalMin, physicalMax, digitalMin, digitalMax []float64) (*Calibration, error) {
	n := len(physicalMin)
	if len(physicalMax) != n || len(digitalMin) != n || len(digitalMax) != n {
		return nil, fmt.Errorf("%w: calibration vectors have lengths %d, %d, %d, %d",
			ErrMalformedRecord, len(physicalMin), len(physicalMax), len(digitalMin), len(digitalMax))
	}

	cal := &Calibration{
		PhysicalMin: append([]float64(nil), physicalMin...),
		PhysicalMax: append([]float64(nil), physicalMax...),
		DigitalMin:  append([]float64(nil), digitalMin...),
		DigitalMax:  append([]float64(nil), digitalMax...),
		Scale:       make([]float64, n),
		Offset:      make([]float64, n),
	}

	for c := 0; c < n; c++ {
		if digitalMax[c] == digitalMin[c] {
			return nil, &CalibrationError{Channel: c, Reason: fmt.Sprintf("digital min equals digital max (%v)", digitalMax[c])}
		}

		scale := (physicalMax[c] - physicalMin[c]) / (digitalMax[c] - digitalMin[c])
		if scale == 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
			return nil, &CalibrationError{Channel: c, Reason: fmt.Sprintf("scale is %v", scale)}
		}

		offset := physicalMax[c]/scale - digitalMax[c]
		if math.IsInf(offset, 0) || math.IsNaN(offset) {
			return nil, &CalibrationError{Channel: c, Reason: fmt.Sprintf("offset is %v", offset)}
		}

		cal.Scale[c] = scale
		cal.Offset[c] = offset
	}

	return cal, nil
}

// Channels returns the number of calibrated channels.
func (cal *Calibration) Channels() int {
	return len(cal.Scale)
}

// ScaleMatrix returns the diagonal matrix with Scale on its diagonal.
func (cal *Calibration) ScaleMatrix() [][]float64 {
	m := make([][]float64, len(cal.Scale))
	for i := range m {
		m[i] = make([]float64, len(cal.Scale))
		m[i][i] = cal.Scale[i]
	}
	return m
}

// MaxAbsOffset returns the largest offset magnitude across channels.
func (cal *Calibration) MaxAbsOffset() float64 {
	var m float64
	for _, off := range cal.Offset {
		m = math.Max(m, math.Abs(off))
	}
	return m
}

// IsZeroOffset reports whether every offset is below ZeroOffsetThreshold, in
// which case the offset addition is skipped.
func (cal *Calibration) IsZeroOffset() bool {
	for _, off := range cal.Offset {
		if !(math.Abs(off) < ZeroOffsetThreshold) {
			return false
		}
	}
	return true
}

// Physical converts a single raw sample of channel c.
func (cal *Calibration) Physical(c int, raw int32) float64 {
	return cal.Scale[c] * (float64(raw) + cal.Offset[c])
}
