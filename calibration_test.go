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
	"testing"

	"github.com/OpenPSG/eeghdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCalibration(t *testing.T) {
	cal := newCalibration(t, offsetCalibration)

	require.Equal(t, 3, cal.Channels())
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 1}, cal.Scale, 1e-12)
	assert.InDeltaSlice(t, []float64{-500, 250, 0}, cal.Offset, 1e-9)
	assert.InDelta(t, 500.0, cal.MaxAbsOffset(), 1e-9)
	assert.False(t, cal.IsZeroOffset())

	// The extrema are kept for reporting.
	assert.Equal(t, offsetCalibration.pmax, cal.PhysicalMax)
	assert.Equal(t, offsetCalibration.dmin, cal.DigitalMin)
}

func TestCalibrationZeroOffset(t *testing.T) {
	cal := newCalibration(t, zeroCalibration)

	for c := 0; c < cal.Channels(); c++ {
		assert.InDelta(t, 6400.0/65535.0, cal.Scale[c], 1e-12)
		assert.InDelta(t, 0.5, cal.Offset[c], 1e-6)
	}
	assert.True(t, cal.IsZeroOffset())
}

func TestCalibrationThreshold(t *testing.T) {
	cal, err := eeghdf.NewCalibration([]float64{0}, []float64{101}, []float64{0}, []float64{100})
	require.NoError(t, err)
	require.InDelta(t, 1.01, cal.Scale[0], 1e-12)
	require.InDelta(t, 0.0, cal.Offset[0], 1e-9)
	require.True(t, cal.IsZeroOffset())

	// An offset of exactly one raw unit is kept.
	cal, err = eeghdf.NewCalibration([]float64{1}, []float64{11}, []float64{0}, []float64{10})
	require.NoError(t, err)
	require.InDelta(t, 1.0, cal.Offset[0], 1e-12)
	assert.False(t, cal.IsZeroOffset())
}

func TestCalibrationDegenerate(t *testing.T) {
	set := calibrationSet{
		pmin: []float64{-50, 0, -100},
		pmax: []float64{50, 250, 100},
		dmin: []float64{0, 7, -100},
		dmax: []float64{1000, 7, 100},
	}

	_, err := eeghdf.NewCalibration(set.pmin, set.pmax, set.dmin, set.dmax)
	require.ErrorIs(t, err, eeghdf.ErrDegenerateCalibration)

	var calErr *eeghdf.CalibrationError
	require.ErrorAs(t, err, &calErr)
	assert.Equal(t, 1, calErr.Channel)

	// Equal physical extrema give a zero scale.
	_, err = eeghdf.NewCalibration([]float64{5}, []float64{5}, []float64{0}, []float64{10})
	require.ErrorIs(t, err, eeghdf.ErrDegenerateCalibration)
}

func TestCalibrationLengthMismatch(t *testing.T) {
	_, err := eeghdf.NewCalibration([]float64{0, 0}, []float64{1}, []float64{0}, []float64{1})
	require.ErrorIs(t, err, eeghdf.ErrMalformedRecord)
}

func TestCalibrationScaleMatrix(t *testing.T) {
	cal := newCalibration(t, offsetCalibration)

	m := cal.ScaleMatrix()
	require.Len(t, m, 3)
	for i := range m {
		require.Len(t, m[i], 3)
		for j := range m[i] {
			if i == j {
				assert.InDelta(t, cal.Scale[i], m[i][j], 0)
			} else {
				assert.Zero(t, m[i][j])
			}
		}
	}
}

func TestCalibrationPhysical(t *testing.T) {
	cal := newCalibration(t, offsetCalibration)

	assert.InDelta(t, 0.1*(20-500), cal.Physical(0, 20), 1e-9)
	assert.InDelta(t, 0.2*(-10+250), cal.Physical(1, -10), 1e-9)
	assert.InDelta(t, 42.0, cal.Physical(2, 42), 1e-9)
}
