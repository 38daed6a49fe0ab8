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

var (
	annotationTexts = [][]byte{
		[]byte("Seizure onset"),
		[]byte("eye blink"),
		[]byte("SEIZURE end"),
	}
	annotationStarts = []int64{0, 10_000_000, 25_000_000}
)

func TestDecodeAnnotations(t *testing.T) {
	annotations, err := eeghdf.DecodeAnnotations(annotationTexts, annotationStarts)
	require.NoError(t, err)
	require.Len(t, annotations, 3)

	assert.Equal(t, []string{"Seizure onset", "eye blink", "SEIZURE end"}, annotations.Texts())
	assert.Equal(t, int64(25_000_000), annotations[2].Start100ns)

	var seconds []float64
	for _, an := range annotations {
		seconds = append(seconds, an.StartSeconds)
	}
	assert.Equal(t, []float64{0, 1, 2.5}, seconds)
}

func TestDecodeAnnotationLists(t *testing.T) {
	texts, starts, err := eeghdf.DecodeAnnotationLists(annotationTexts, annotationStarts)
	require.NoError(t, err)

	assert.Equal(t, []string{"Seizure onset", "eye blink", "SEIZURE end"}, texts)
	assert.Equal(t, annotationStarts, starts)
}

func TestDecodeAnnotationItems(t *testing.T) {
	items, err := eeghdf.DecodeAnnotationItems(annotationTexts, annotationStarts)
	require.NoError(t, err)

	assert.Equal(t, []eeghdf.AnnotationItem{
		{Text: "Seizure onset", StartSeconds: 0},
		{Text: "eye blink", StartSeconds: 1},
		{Text: "SEIZURE end", StartSeconds: 2.5},
	}, items)
}

func TestDecodeAnnotationsEmpty(t *testing.T) {
	annotations, err := eeghdf.DecodeAnnotations(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, annotations)

	matches, err := annotations.Containing("anything", false)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestDecodeAnnotationsErrors(t *testing.T) {
	t.Run("Length Mismatch", func(t *testing.T) {
		_, err := eeghdf.DecodeAnnotations(annotationTexts, annotationStarts[:2])
		require.ErrorIs(t, err, eeghdf.ErrMalformedRecord)
	})

	t.Run("Invalid UTF-8", func(t *testing.T) {
		texts := [][]byte{[]byte("ok"), {0xff, 0xfe}}
		_, err := eeghdf.DecodeAnnotations(texts, []int64{0, 1})
		require.ErrorIs(t, err, eeghdf.ErrInvalidText)

		var decodeErr *eeghdf.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, 1, decodeErr.Index)
	})
}

func TestAnnotationsContaining(t *testing.T) {
	annotations, err := eeghdf.DecodeAnnotations(annotationTexts, annotationStarts)
	require.NoError(t, err)

	matches, err := annotations.Containing("seizure", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Seizure onset", "SEIZURE end"}, matches.Texts())
	assert.Equal(t, []float64{0, 2.5}, []float64{matches[0].StartSeconds, matches[1].StartSeconds})

	matches, err = annotations.Containing("Seizure", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Seizure onset"}, matches.Texts())

	matches, err = annotations.Containing("end$", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"SEIZURE end"}, matches.Texts())

	matches, err = annotations.Containing("spike", false)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = annotations.Containing("(", false)
	require.Error(t, err)
}
