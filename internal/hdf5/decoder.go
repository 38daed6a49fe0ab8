// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package hdf5

import (
	"encoding/binary"
	"fmt"
)

// undefined is the all-ones address HDF5 uses for "not allocated".
const undefined = ^uint64(0)

// decoder walks a little-endian byte slice. The first out-of-range read sets
// err and every later read returns zero, so callers check err once at the end
// of a structure.
type decoder struct {
	b          []byte
	off        int
	offsetSize int
	lengthSize int
	err        error
}

func (f *File) decoder(b []byte) *decoder {
	return &decoder{b: b, offsetSize: f.offsetSize, lengthSize: f.lengthSize}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.b) {
		d.err = fmt.Errorf("%w: read of %d bytes at %d overruns %d byte structure", ErrCorrupt, n, d.off, len(d.b))
		return nil
	}
	b := d.b[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) u64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// uint reads an n byte unsigned integer. All-ones values map to undefined so
// that short addresses compare the same as eight byte ones.
func (d *decoder) uint(n int) uint64 {
	b := d.take(n)
	if b == nil {
		return 0
	}
	var v uint64
	ones := true
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
		ones = ones && b[i] == 0xff
	}
	if ones && n > 0 && n < 8 {
		return undefined
	}
	return v
}

func (d *decoder) addr() uint64 { return d.uint(d.offsetSize) }

func (d *decoder) length() uint64 { return d.uint(d.lengthSize) }

func (d *decoder) bytes(n int) []byte { return d.take(n) }

func (d *decoder) skip(n int) { d.take(n) }

// align skips to the next multiple of n from the start of the slice.
func (d *decoder) align(n int) {
	if r := d.off % n; r != 0 {
		d.skip(n - r)
	}
}

func (d *decoder) remaining() int {
	if d.err != nil {
		return 0
	}
	return len(d.b) - d.off
}

// pad8 rounds n up to a multiple of eight.
func pad8(n int) int {
	return (n + 7) &^ 7
}
