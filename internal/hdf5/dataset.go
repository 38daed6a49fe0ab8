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
	"fmt"
	"sync"
)

// Storage layout classes.
const (
	layoutCompact    = 0
	layoutContiguous = 1
	layoutChunked    = 2
)

type layout struct {
	class uint8
	// contiguous data or chunk B-tree address
	addr uint64
	// compact data
	data []byte
	// chunk dimensions in elements, without the trailing element size
	chunk []uint64
}

// Dataset is an open HDF5 dataset. Reads fetch only the bytes and chunks that
// overlap the requested hyperslab.
type Dataset struct {
	f       *File
	name    string
	dtype   datatype
	space   dataspace
	layout  layout
	filters []filter

	chunksOnce sync.Once
	chunks     []chunkRef
	chunksErr  error
}

func (f *File) openDataset(name string, addr uint64) (*Dataset, error) {
	msgs, err := f.readObject(addr)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{f: f, name: name}
	var haveType, haveSpace, haveLayout bool
	for _, m := range msgs {
		switch m.typ {
		case msgDatatype:
			if ds.dtype, err = parseDatatype(m.data); err != nil {
				return nil, fmt.Errorf("error reading type of %s: %w", name, err)
			}
			haveType = true
		case msgDataspace:
			if ds.space, err = f.parseDataspace(m.data); err != nil {
				return nil, fmt.Errorf("error reading dataspace of %s: %w", name, err)
			}
			haveSpace = true
		case msgLayout:
			if ds.layout, err = f.parseLayout(m.data); err != nil {
				return nil, fmt.Errorf("error reading layout of %s: %w", name, err)
			}
			haveLayout = true
		case msgFilters:
			if ds.filters, err = parseFilters(m.data); err != nil {
				return nil, fmt.Errorf("error reading filters of %s: %w", name, err)
			}
		}
	}
	if !haveLayout {
		return nil, fmt.Errorf("%s: %w", name, ErrNotDataset)
	}
	if !haveType || !haveSpace {
		return nil, fmt.Errorf("%w: dataset %s lacks a datatype or dataspace", ErrCorrupt, name)
	}
	if ds.layout.class == layoutChunked && len(ds.layout.chunk) != len(ds.space.dims) {
		return nil, fmt.Errorf("%w: %d-d chunks in %d-d dataset %s", ErrCorrupt, len(ds.layout.chunk), len(ds.space.dims), name)
	}
	return ds, nil
}

func (f *File) parseLayout(b []byte) (layout, error) {
	d := f.decoder(b)
	version := d.u8()
	var l layout
	switch version {
	case 1, 2:
		rank := int(d.u8())
		l.class = d.u8()
		d.skip(5)
		if l.class != layoutCompact {
			l.addr = d.addr()
		}
		dims := make([]uint64, rank)
		for i := range dims {
			dims[i] = uint64(d.u32())
		}
		switch l.class {
		case layoutChunked:
			d.u32() // element size
			if rank > 0 {
				l.chunk = dims[:rank-1]
			}
		case layoutCompact:
			l.data = d.bytes(int(d.u32()))
		}
	case 3, 4:
		l.class = d.u8()
		switch l.class {
		case layoutCompact:
			l.data = d.bytes(int(d.u16()))
		case layoutContiguous:
			l.addr = d.addr()
			d.length() // size
		case layoutChunked:
			if version == 4 {
				return l, fmt.Errorf("%w: version 4 chunk indexes", ErrUnsupported)
			}
			rank := int(d.u8())
			l.addr = d.addr()
			for i := 0; i < rank; i++ {
				l.chunk = append(l.chunk, uint64(d.u32()))
			}
			if rank > 0 {
				l.chunk = l.chunk[:rank-1]
			}
		default:
			return l, fmt.Errorf("%w: layout class %d", ErrUnsupported, l.class)
		}
	default:
		return l, fmt.Errorf("%w: layout version %d", ErrUnsupported, version)
	}
	if d.err != nil {
		return l, d.err
	}
	for _, n := range l.chunk {
		if n == 0 {
			return l, fmt.Errorf("%w: zero chunk dimension", ErrCorrupt)
		}
	}
	return l, nil
}

// Name returns the path the dataset was opened by.
func (ds *Dataset) Name() string { return ds.name }

// Shape returns the dataset dimensions; scalars have none.
func (ds *Dataset) Shape() []int {
	return ds.space.shape()
}

// Read reads and decodes every element.
func (ds *Dataset) Read() (any, error) {
	if ds.space.kind != spaceSimple || len(ds.space.dims) == 0 {
		raw, err := ds.readAll()
		if err != nil {
			return nil, err
		}
		return ds.f.decode(ds.dtype, raw, ds.space.count())
	}
	start := make([]int, len(ds.space.dims))
	return ds.ReadSlab(start, ds.Shape())
}

// ReadSlab reads the hyperslab starting at start with count elements along
// each dimension, decoded row-major.
func (ds *Dataset) ReadSlab(start, count []int) (any, error) {
	dims := ds.space.dims
	if len(start) != len(dims) || len(count) != len(dims) {
		return nil, fmt.Errorf("%w: %d-d selection on %d-d dataset %s", ErrCorrupt, len(start), len(dims), ds.name)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: hyperslab of scalar dataset %s", ErrUnsupported, ds.name)
	}
	s := make([]uint64, len(dims))
	c := make([]uint64, len(dims))
	n := 1
	for i := range dims {
		if start[i] < 0 || count[i] < 0 || uint64(start[i]+count[i]) > dims[i] {
			return nil, fmt.Errorf("selection [%d:%d] outside dimension %d of %s with size %d", start[i], start[i]+count[i], i, ds.name, dims[i])
		}
		s[i], c[i] = uint64(start[i]), uint64(count[i])
		n *= count[i]
	}
	raw := make([]byte, n*ds.dtype.size)
	if n > 0 {
		var err error
		switch ds.layout.class {
		case layoutCompact:
			err = ds.copyRegion(raw, s, c, dims, make([]uint64, len(dims)), ds.layout.data)
		case layoutContiguous:
			err = ds.readContiguous(raw, s, c)
		case layoutChunked:
			err = ds.readChunked(raw, s, c)
		default:
			err = fmt.Errorf("%w: layout class %d", ErrUnsupported, ds.layout.class)
		}
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", ds.name, err)
		}
	}
	return ds.f.decode(ds.dtype, raw, n)
}

// readAll returns the packed bytes of a scalar dataset.
func (ds *Dataset) readAll() ([]byte, error) {
	size := ds.space.count() * ds.dtype.size
	switch ds.layout.class {
	case layoutCompact:
		if len(ds.layout.data) < size {
			return nil, fmt.Errorf("%w: short compact data in %s", ErrCorrupt, ds.name)
		}
		return ds.layout.data[:size], nil
	case layoutContiguous:
		if ds.layout.addr == undefined {
			return make([]byte, size), nil
		}
		return ds.f.readAt(ds.layout.addr, size)
	}
	return nil, fmt.Errorf("%w: chunked scalar %s", ErrUnsupported, ds.name)
}

// readContiguous reads each run of the innermost dimension straight from the
// file, so only the selected bytes are fetched.
func (ds *Dataset) readContiguous(out []byte, start, count []uint64) error {
	if ds.layout.addr == undefined {
		return nil // never written, all fill
	}
	dims := ds.space.dims
	esize := uint64(ds.dtype.size)
	last := len(dims) - 1
	run := int(count[last] * esize)
	return forEachRun(start, count, func(idx []uint64) error {
		b, err := ds.f.readAt(ds.layout.addr+linear(dims, idx)*esize, run)
		if err != nil {
			return err
		}
		copy(out[offset(start, count, idx)*esize:], b)
		return nil
	})
}

// copyRegion copies the overlap of a block of data at origin with extent
// shape into the hyperslab buffer out.
func (ds *Dataset) copyRegion(out []byte, start, count, shape, origin []uint64, data []byte) error {
	rank := len(start)
	lo := make([]uint64, rank)
	n := make([]uint64, rank)
	for i := 0; i < rank; i++ {
		lo[i] = max(start[i], origin[i])
		hi := min(start[i]+count[i], origin[i]+shape[i])
		if hi <= lo[i] {
			return nil
		}
		n[i] = hi - lo[i]
	}
	esize := uint64(ds.dtype.size)
	run := n[rank-1] * esize
	local := make([]uint64, rank)
	return forEachRun(lo, n, func(idx []uint64) error {
		for i := range idx {
			local[i] = idx[i] - origin[i]
		}
		from := linear(shape, local) * esize
		if from+run > uint64(len(data)) {
			return fmt.Errorf("%w: block of %d bytes too short", ErrCorrupt, len(data))
		}
		copy(out[offset(start, count, idx)*esize:], data[from:from+run])
		return nil
	})
}

// forEachRun calls fn with the first index of every innermost-dimension run
// of the box at start with extent count. The index slice is reused.
func forEachRun(start, count []uint64, fn func(idx []uint64) error) error {
	rank := len(start)
	if rank == 0 {
		return fn(nil)
	}
	idx := append([]uint64(nil), start...)
	for {
		if err := fn(idx); err != nil {
			return err
		}
		i := rank - 2
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < start[i]+count[i] {
				break
			}
			idx[i] = start[i]
		}
		if i < 0 {
			return nil
		}
	}
}

// linear is the row-major element offset of idx within dims.
func linear(dims, idx []uint64) uint64 {
	var n uint64
	for i := range dims {
		n = n*dims[i] + idx[i]
	}
	return n
}

// offset is the row-major element offset of idx within the hyperslab.
func offset(start, count, idx []uint64) uint64 {
	var n uint64
	for i := range start {
		n = n*count[i] + idx[i] - start[i]
	}
	return n
}
