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
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Datatype classes.
const (
	classFixed  = 0
	classFloat  = 1
	classString = 3
	classVlen   = 9
)

type datatype struct {
	class     uint8
	size      int
	bigEndian bool
	signed    bool
	// fixed-length strings: 0 null terminated, 1 null padded, 2 space padded
	padding uint8
	// variable-length sequences of characters rather than of base elements
	vlenString bool
}

func parseDatatype(b []byte) (datatype, error) {
	if len(b) < 8 {
		return datatype{}, fmt.Errorf("%w: datatype message of %d bytes", ErrCorrupt, len(b))
	}
	dt := datatype{
		class: b[0] & 0x0f,
		size:  int(binary.LittleEndian.Uint32(b[4:8])),
	}
	bits := b[1]
	switch dt.class {
	case classFixed:
		dt.bigEndian = bits&0x01 != 0
		dt.signed = bits&0x08 != 0
		switch dt.size {
		case 1, 2, 4, 8:
		default:
			return dt, fmt.Errorf("%w: %d byte integer", ErrUnsupported, dt.size)
		}
	case classFloat:
		dt.bigEndian = bits&0x01 != 0
		if bits&0x40 != 0 {
			return dt, fmt.Errorf("%w: VAX float byte order", ErrUnsupported)
		}
		if dt.size != 4 && dt.size != 8 {
			return dt, fmt.Errorf("%w: %d byte float", ErrUnsupported, dt.size)
		}
	case classString:
		dt.padding = bits & 0x0f
	case classVlen:
		dt.vlenString = bits&0x0f == 1
		if !dt.vlenString {
			return dt, fmt.Errorf("%w: variable-length sequence", ErrUnsupported)
		}
	default:
		return dt, fmt.Errorf("%w: datatype class %d", ErrUnsupported, dt.class)
	}
	return dt, nil
}

func (dt datatype) order() binary.ByteOrder {
	if dt.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Dataspace kinds.
const (
	spaceScalar = 0
	spaceSimple = 1
	spaceNull   = 2
)

type dataspace struct {
	kind uint8
	dims []uint64
}

func (f *File) parseDataspace(b []byte) (dataspace, error) {
	d := f.decoder(b)
	version := d.u8()
	rank := int(d.u8())
	flags := d.u8()
	ds := dataspace{kind: spaceSimple}
	switch version {
	case 1:
		d.skip(5)
		if rank == 0 {
			ds.kind = spaceScalar
		}
	case 2:
		ds.kind = d.u8()
	default:
		return ds, fmt.Errorf("%w: dataspace version %d", ErrUnsupported, version)
	}
	ds.dims = make([]uint64, rank)
	for i := range ds.dims {
		ds.dims[i] = d.length()
	}
	if flags&0x01 != 0 {
		for range ds.dims {
			d.length() // maximum dimensions
		}
	}
	if d.err != nil {
		return ds, fmt.Errorf("error reading dataspace: %w", d.err)
	}
	return ds, nil
}

func (ds dataspace) count() int {
	switch ds.kind {
	case spaceNull:
		return 0
	case spaceScalar:
		return 1
	}
	n := 1
	for _, dim := range ds.dims {
		n *= int(dim)
	}
	return n
}

func (ds dataspace) shape() []int {
	shape := make([]int, len(ds.dims))
	for i, dim := range ds.dims {
		shape[i] = int(dim)
	}
	return shape
}

// decode converts n packed elements to a typed slice: []int8 through []uint64
// for integers, []float32 or []float64 for floats and [][]byte for strings.
func (f *File) decode(dt datatype, raw []byte, n int) (any, error) {
	if len(raw) < n*dt.size {
		return nil, fmt.Errorf("%w: %d bytes for %d elements of %d bytes", ErrCorrupt, len(raw), n, dt.size)
	}
	order := dt.order()
	switch dt.class {
	case classFixed:
		return decodeInt(dt, order, raw, n), nil
	case classFloat:
		if dt.size == 4 {
			out := make([]float32, n)
			for i := range out {
				out[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
			}
			return out, nil
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
		return out, nil
	case classString:
		out := make([][]byte, n)
		for i := range out {
			out[i] = trimString(raw[i*dt.size:(i+1)*dt.size], dt.padding)
		}
		return out, nil
	case classVlen:
		out := make([][]byte, n)
		for i := range out {
			s, err := f.vlenString(raw[i*dt.size : (i+1)*dt.size])
			if err != nil {
				return nil, fmt.Errorf("error reading string %d: %w", i, err)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: datatype class %d", ErrUnsupported, dt.class)
}

func decodeInt(dt datatype, order binary.ByteOrder, raw []byte, n int) any {
	switch {
	case dt.size == 1 && dt.signed:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(raw[i])
		}
		return out
	case dt.size == 1:
		return append([]uint8(nil), raw[:n]...)
	case dt.size == 2 && dt.signed:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(order.Uint16(raw[i*2:]))
		}
		return out
	case dt.size == 2:
		out := make([]uint16, n)
		for i := range out {
			out[i] = order.Uint16(raw[i*2:])
		}
		return out
	case dt.size == 4 && dt.signed:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(order.Uint32(raw[i*4:]))
		}
		return out
	case dt.size == 4:
		out := make([]uint32, n)
		for i := range out {
			out[i] = order.Uint32(raw[i*4:])
		}
		return out
	case dt.signed:
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(order.Uint64(raw[i*8:]))
		}
		return out
	default:
		out := make([]uint64, n)
		for i := range out {
			out[i] = order.Uint64(raw[i*8:])
		}
		return out
	}
}

func trimString(b []byte, padding uint8) []byte {
	if padding == 2 {
		b = bytes.TrimRight(b, " ")
	} else if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return append([]byte(nil), b...)
}

// vlenString resolves a variable-length string reference: its length, the
// global heap collection holding it, and the object index.
func (f *File) vlenString(ref []byte) ([]byte, error) {
	d := f.decoder(ref)
	n := d.u32()
	addr := d.addr()
	index := d.u32()
	if d.err != nil {
		return nil, d.err
	}
	if n == 0 || addr == 0 || addr == undefined {
		return []byte{}, nil
	}
	if index > math.MaxUint16 {
		return nil, fmt.Errorf("%w: global heap index %d", ErrCorrupt, index)
	}
	obj, err := f.globalHeapObject(addr, uint16(index))
	if err != nil {
		return nil, err
	}
	if int(n) > len(obj) {
		return nil, fmt.Errorf("%w: string of %d bytes in %d byte heap object", ErrCorrupt, n, len(obj))
	}
	return append([]byte(nil), obj[:n]...), nil
}
