// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package container

import (
	"fmt"
	"math"
)

// Int64 converts a scalar attribute value to int64. Single-element slices are
// unwrapped, since HDF5 writers often store scalars as length-1 arrays.
func Int64(v any) (int64, error) {
	switch x := v.(type) {
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrType, x)
		}
		return int64(x), nil
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	}
	if e, ok := single(v); ok {
		return Int64(e)
	}
	return 0, fmt.Errorf("%w: %T is not an integer", ErrType, v)
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %v is not integral", ErrType, f)
	}
	return int64(f), nil
}

// Float64 converts a scalar numeric attribute value to float64.
func Float64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	if e, ok := single(v); ok {
		return Float64(e)
	}
	i, err := Int64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %T is not numeric", ErrType, v)
	}
	return float64(i), nil
}

// Bytes converts a scalar string attribute value to its raw bytes. Decoding
// is left to the caller so that invalid text surfaces where it is interpreted.
func Bytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case []string:
		if len(x) == 1 {
			return []byte(x[0]), nil
		}
	case [][]byte:
		if len(x) == 1 {
			return x[0], nil
		}
	}
	return nil, fmt.Errorf("%w: %T is not a string", ErrType, v)
}

// Float64s widens any numeric slice to []float64.
func Float64s(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return append([]float64(nil), x...), nil
	case []float32:
		return widen(x), nil
	case []int8:
		return widen(x), nil
	case []int16:
		return widen(x), nil
	case []int32:
		return widen(x), nil
	case []int64:
		return widen(x), nil
	case []uint8:
		return widen(x), nil
	case []uint16:
		return widen(x), nil
	case []uint32:
		return widen(x), nil
	case []uint64:
		return widen(x), nil
	}
	return nil, fmt.Errorf("%w: %T is not a numeric array", ErrType, v)
}

// Int64s converts any integer slice to []int64.
func Int64s(v any) ([]int64, error) {
	switch x := v.(type) {
	case []int64:
		return append([]int64(nil), x...), nil
	case []int8:
		return ints(x), nil
	case []int16:
		return ints(x), nil
	case []int32:
		return ints(x), nil
	case []uint8:
		return ints(x), nil
	case []uint16:
		return ints(x), nil
	case []uint32:
		return ints(x), nil
	case []uint64:
		out := make([]int64, len(x))
		for i, e := range x {
			if e > math.MaxInt64 {
				return nil, fmt.Errorf("%w: element %d overflows int64", ErrType, i)
			}
			out[i] = int64(e)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T is not an integer array", ErrType, v)
}

// ByteStrings converts a string array to raw byte strings.
func ByteStrings(v any) ([][]byte, error) {
	switch x := v.(type) {
	case [][]byte:
		return x, nil
	case []string:
		out := make([][]byte, len(x))
		for i, s := range x {
			out[i] = []byte(s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T is not a string array", ErrType, v)
}

// Int32s converts a flat array of 32-bit or narrower integers to []int32.
func Int32s(v any) ([]int32, error) {
	switch x := v.(type) {
	case []int32:
		return x, nil
	case []int8:
		return narrow(x), nil
	case []int16:
		return narrow(x), nil
	case []uint8:
		return narrow(x), nil
	case []uint16:
		return narrow(x), nil
	}
	return nil, fmt.Errorf("%w: %T is not an array of 32-bit or narrower integers", ErrType, v)
}

// Rows crops columns [c0, c1) out of every row of a 2-D integer array and
// flattens them into a row-major int32 slice.
func Rows(v any, c0, c1 int) ([]int32, error) {
	switch x := v.(type) {
	case [][]int8:
		return crop(x, c0, c1)
	case [][]int16:
		return crop(x, c0, c1)
	case [][]int32:
		return crop(x, c0, c1)
	case [][]uint8:
		return crop(x, c0, c1)
	case [][]uint16:
		return crop(x, c0, c1)
	}
	return nil, fmt.Errorf("%w: %T is not a 2-d array of 32-bit or narrower integers", ErrType, v)
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

type narrowInt interface {
	~int8 | ~int16 | ~int32 | ~uint8 | ~uint16
}

func widen[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, e := range in {
		out[i] = float64(e)
	}
	return out
}

func ints[T ~int8 | ~int16 | ~int32 | ~uint8 | ~uint16 | ~uint32](in []T) []int64 {
	out := make([]int64, len(in))
	for i, e := range in {
		out[i] = int64(e)
	}
	return out
}

func narrow[T narrowInt](in []T) []int32 {
	out := make([]int32, len(in))
	for i, e := range in {
		out[i] = int32(e)
	}
	return out
}

func crop[T narrowInt](rows [][]T, c0, c1 int) ([]int32, error) {
	width := c1 - c0
	out := make([]int32, 0, len(rows)*width)
	for i, row := range rows {
		if c0 < 0 || c1 > len(row) || c1 < c0 {
			return nil, fmt.Errorf("%w: columns [%d:%d] outside row %d of length %d", ErrShape, c0, c1, i, len(row))
		}
		for _, e := range row[c0:c1] {
			out = append(out, int32(e))
		}
	}
	return out, nil
}

// single unwraps a length-1 slice.
func single(v any) (any, bool) {
	switch x := v.(type) {
	case []int8:
		if len(x) == 1 {
			return x[0], true
		}
	case []int16:
		if len(x) == 1 {
			return x[0], true
		}
	case []int32:
		if len(x) == 1 {
			return x[0], true
		}
	case []int64:
		if len(x) == 1 {
			return x[0], true
		}
	case []uint8:
		if len(x) == 1 {
			return x[0], true
		}
	case []uint16:
		if len(x) == 1 {
			return x[0], true
		}
	case []uint32:
		if len(x) == 1 {
			return x[0], true
		}
	case []uint64:
		if len(x) == 1 {
			return x[0], true
		}
	case []float32:
		if len(x) == 1 {
			return x[0], true
		}
	case []float64:
		if len(x) == 1 {
			return x[0], true
		}
	}
	return nil, false
}
