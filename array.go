// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package eeghdf

// Array is a row-major result of zero, one or two dimensions.
type Array struct {
	shape []int
	data  []float64
}

// RawArray is the integer counterpart of Array for raw sample reads.
type RawArray struct {
	shape []int
	data  []int32
}

// Shape returns the dimensions; an empty shape is a scalar.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Ndim returns the number of dimensions.
func (a *Array) Ndim() int { return len(a.shape) }

// Data returns the values in row-major order.
func (a *Array) Data() []float64 { return a.data }

// Scalar returns the single value of a zero-dimensional array.
func (a *Array) Scalar() float64 { return a.data[0] }

// At returns the element at the given indices.
func (a *Array) At(idx ...int) float64 { return a.data[offsetOf(a.shape, idx)] }

// Row returns row i of a two-dimensional array, or the whole array when it
// is one-dimensional and i is 0.
func (a *Array) Row(i int) []float64 {
	w := rowWidth(a.shape)
	return a.data[i*w : (i+1)*w]
}

// Rows returns a two-dimensional array as a slice of rows.
func (a *Array) Rows() [][]float64 {
	n := 1
	if len(a.shape) == 2 {
		n = a.shape[0]
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = a.Row(i)
	}
	return rows
}

func (a *RawArray) Shape() []int { return append([]int(nil), a.shape...) }

func (a *RawArray) Ndim() int { return len(a.shape) }

func (a *RawArray) Data() []int32 { return a.data }

func (a *RawArray) Scalar() int32 { return a.data[0] }

func (a *RawArray) At(idx ...int) int32 { return a.data[offsetOf(a.shape, idx)] }

func (a *RawArray) Row(i int) []int32 {
	w := rowWidth(a.shape)
	return a.data[i*w : (i+1)*w]
}

func rowWidth(shape []int) int {
	switch len(shape) {
	case 0:
		return 1
	case 1:
		return shape[0]
	default:
		return shape[1]
	}
}

func offsetOf(shape, idx []int) int {
	if len(idx) != len(shape) {
		panic("eeghdf: wrong number of indices")
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= shape[d] {
			panic("eeghdf: index out of range")
		}
		off = off*shape[d] + i
	}
	return off
}
