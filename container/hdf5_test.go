// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package container_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/OpenPSG/eeghdf/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../testdata/record.eeg.h5"

func openFixture(t *testing.T) *container.HDF5File {
	f, err := container.OpenHDF5(fixture)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})
	return f
}

func TestOpenHDF5(t *testing.T) {
	f := openFixture(t)

	assert.Equal(t, []string{"EEGHDFversion"}, f.AttrNames())
	v, err := f.Attr("EEGHDFversion")
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)

	_, err = container.OpenHDF5("testdata/missing.h5")
	require.Error(t, err)
}

func TestHDF5GroupAttributes(t *testing.T) {
	f := openFixture(t)

	rec, err := f.Group("record-0")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"patient_age_days",
		"start_isodatetime",
		"end_isodatetime",
		"number_channels",
		"number_samples_per_channel",
		"sample_frequency",
	}, rec.AttrNames())

	v, err := rec.Attr("number_channels")
	require.NoError(t, err)
	n, err := container.Int64(v)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	v, err = rec.Attr("end_isodatetime")
	require.NoError(t, err)
	b, err := container.Bytes(v)
	require.NoError(t, err)
	assert.Equal(t, "2009-01-01T10:41:12", string(b))

	// Root attributes do not leak into subgroups.
	_, err = rec.Attr("EEGHDFversion")
	require.ErrorIs(t, err, container.ErrNotFound)

	patient, err := f.Group("patient")
	require.NoError(t, err)
	v, err = patient.Attr("patient_name")
	require.NoError(t, err)
	assert.Equal(t, "Doe, Jane", v)
	assert.Len(t, patient.AttrNames(), 4)
}

func TestHDF5Datasets(t *testing.T) {
	f := openFixture(t)
	rec, err := f.Group("record-0")
	require.NoError(t, err)

	labels, err := rec.Dataset("signal_labels")
	require.NoError(t, err)
	assert.Equal(t, []int{4}, labels.Shape())
	b, err := labels.ReadBytes()
	require.NoError(t, err)
	require.Len(t, b, 4)
	assert.Equal(t, "EEG C3-REF", string(b[2]))
	_, err = labels.ReadFloat64()
	require.ErrorIs(t, err, container.ErrType)

	dmin, err := rec.Dataset("signal_digital_mins")
	require.NoError(t, err)
	widened, err := dmin.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{-32768, -32768, -32768, -1000}, widened)

	annotations, err := rec.Group("edf_annotations")
	require.NoError(t, err)
	starts, err := annotations.Dataset("starts_100ns")
	require.NoError(t, err)
	ticks, err := starts.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 10_000_000, 25_000_000}, ticks)
}

func TestHDF5ReadBlock(t *testing.T) {
	f := openFixture(t)
	rec, err := f.Group("record-0")
	require.NoError(t, err)

	ds, err := rec.Dataset("signals")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 16}, ds.Shape())

	block, err := ds.ReadBlock(2, 4, 7, 10)
	require.NoError(t, err)
	assert.Equal(t, []int32{240, 250, 260, 340, 350, 360}, block)

	_, err = ds.ReadBlock(0, 5, 0, 1)
	require.ErrorIs(t, err, container.ErrShape)

	empty, err := ds.ReadBlock(1, 1, 0, 16)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHDF5LookupErrors(t *testing.T) {
	f := openFixture(t)

	_, err := f.Group("record-1")
	require.ErrorIs(t, err, container.ErrNotFound)

	rec, err := f.Group("record-0")
	require.NoError(t, err)

	_, err = rec.Dataset("signal_units")
	require.ErrorIs(t, err, container.ErrNotFound)

	_, err = rec.Group("signals")
	require.ErrorIs(t, err, container.ErrType)
}

func TestHDF5Close(t *testing.T) {
	f, err := container.OpenHDF5(fixture)
	require.NoError(t, err)

	rec, err := f.Group("record-0")
	require.NoError(t, err)
	ds, err := rec.Dataset("signals")
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Attr("EEGHDFversion")
	require.ErrorIs(t, err, container.ErrClosed)
	_, err = rec.Group("edf_annotations")
	require.ErrorIs(t, err, container.ErrClosed)
	_, err = ds.ReadBlock(0, 1, 0, 1)
	require.ErrorIs(t, err, container.ErrClosed)
	assert.Nil(t, rec.AttrNames())
}

func TestNewHDF5(t *testing.T) {
	b, err := os.ReadFile(fixture)
	require.NoError(t, err)

	f, err := container.NewHDF5(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	_, err = f.Group("patient")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = container.NewHDF5(bytes.NewReader([]byte("nope")), 4)
	require.Error(t, err)
}
