// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package container describes the hierarchical storage that eeghdf recordings
// live in: groups holding typed attribute scalars and named n-dimensional
// datasets. It ships an in-memory tree and an HDF5 file backend.
package container

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrType     = errors.New("unexpected value type")
	ErrShape    = errors.New("unexpected dataset shape")
	ErrClosed   = errors.New("container is closed")
)

// Group is a node in the container hierarchy.
type Group interface {
	// Attr returns the named attribute, or an error wrapping ErrNotFound.
	Attr(name string) (any, error)
	// AttrNames lists the attribute names in storage order.
	AttrNames() []string
	// Group opens a child group by name.
	Group(name string) (Group, error)
	// Dataset opens a child dataset by name.
	Dataset(name string) (Dataset, error)
}

// Dataset is a named n-dimensional array.
type Dataset interface {
	Shape() []int
	// ReadBytes reads a 1-D dataset of byte strings.
	ReadBytes() ([][]byte, error)
	// ReadFloat64 reads a 1-D numeric dataset, widening to float64.
	ReadFloat64() ([]float64, error)
	// ReadInt64 reads a 1-D integer dataset.
	ReadInt64() ([]int64, error)
	// ReadBlock reads rows [r0, r1) and columns [c0, c1) of a 2-D integer
	// dataset, row-major. Only the requested block is materialized.
	ReadBlock(r0, r1, c0, c1 int) ([]int32, error)
}

// checkBlock validates a block request against a 2-D shape.
func checkBlock(shape []int, r0, r1, c0, c1 int) error {
	if len(shape) != 2 {
		return fmt.Errorf("%w: block read on %d-d dataset", ErrShape, len(shape))
	}
	if r0 < 0 || r1 < r0 || r1 > shape[0] || c0 < 0 || c1 < c0 || c1 > shape[1] {
		return fmt.Errorf("%w: block [%d:%d, %d:%d] outside %dx%d", ErrShape, r0, r1, c0, c1, shape[0], shape[1])
	}
	return nil
}
