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
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
)

// Filter identifiers.
const (
	filterDeflate    = 1
	filterShuffle    = 2
	filterFletcher32 = 3
)

type filter struct {
	id       uint16
	optional bool
}

// parseFilters reads a filter pipeline message. Unknown filters are kept so
// that reads through them fail rather than return encoded bytes.
func parseFilters(b []byte) ([]filter, error) {
	d := &decoder{b: b}
	version := d.u8()
	n := int(d.u8())
	switch version {
	case 1:
		d.skip(6)
	case 2:
	default:
		return nil, fmt.Errorf("%w: filter pipeline version %d", ErrUnsupported, version)
	}
	filters := make([]filter, 0, n)
	for i := 0; i < n; i++ {
		var f filter
		f.id = d.u16()
		nameLen := 0
		if version == 1 || f.id >= 256 {
			nameLen = int(d.u16())
		}
		flags := d.u16()
		f.optional = flags&0x01 != 0
		values := int(d.u16())
		if version == 1 {
			d.skip(pad8(nameLen))
		} else {
			d.skip(nameLen)
		}
		d.skip(4 * values)
		if version == 1 && values%2 == 1 {
			d.skip(4)
		}
		filters = append(filters, f)
	}
	if d.err != nil {
		return nil, d.err
	}
	return filters, nil
}

// unfilter reverses the pipeline on a stored chunk. Bit i of mask set means
// filter i was skipped when the chunk was written.
func (ds *Dataset) unfilter(b []byte, mask uint32) ([]byte, error) {
	for i := len(ds.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		switch ds.filters[i].id {
		case filterDeflate:
			b, err = inflate(b)
		case filterShuffle:
			b = unshuffle(b, ds.dtype.size)
		case filterFletcher32:
			if len(b) < 4 {
				err = fmt.Errorf("%w: chunk too short for checksum", ErrCorrupt)
			} else {
				b = b[:len(b)-4]
			}
		default:
			err = fmt.Errorf("%w: filter %d", ErrUnsupported, ds.filters[i].id)
		}
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("error inflating chunk: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("error inflating chunk: %w", err)
	}
	return out, nil
}

// unshuffle regroups byte planes back into elements.
func unshuffle(b []byte, size int) []byte {
	n := len(b) / size
	if size <= 1 || n == 0 {
		return b
	}
	out := make([]byte, len(b))
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			out[i*size+j] = b[j*n+i]
		}
	}
	// trailing bytes that do not fill an element are stored unshuffled
	copy(out[n*size:], b[n*size:])
	return out
}

// chunkRef locates one stored chunk.
type chunkRef struct {
	origin []uint64
	size   uint32
	mask   uint32
	addr   uint64
}

// readChunked fetches and decodes only the chunks overlapping the hyperslab.
// Chunks that were never written read as zero.
func (ds *Dataset) readChunked(out []byte, start, count []uint64) error {
	chunks, err := ds.chunkIndex()
	if err != nil {
		return err
	}
	shape := ds.layout.chunk
	want := ds.dtype.size
	for _, n := range shape {
		want *= int(n)
	}
	for _, c := range chunks {
		if !overlaps(start, count, c.origin, shape) {
			continue
		}
		b, err := ds.f.readAt(c.addr, int(c.size))
		if err != nil {
			return err
		}
		if b, err = ds.unfilter(b, c.mask); err != nil {
			return err
		}
		if len(b) < want {
			return fmt.Errorf("%w: chunk at %#x holds %d of %d bytes", ErrCorrupt, c.addr, len(b), want)
		}
		if err := ds.copyRegion(out, start, count, shape, c.origin, b); err != nil {
			return err
		}
	}
	return nil
}

func overlaps(start, count, origin, shape []uint64) bool {
	for i := range start {
		if origin[i] >= start[i]+count[i] || origin[i]+shape[i] <= start[i] {
			return false
		}
	}
	return true
}

// chunkIndex walks the chunk B-tree once and caches the result.
func (ds *Dataset) chunkIndex() ([]chunkRef, error) {
	ds.chunksOnce.Do(func() {
		if ds.layout.addr == undefined {
			return
		}
		ds.chunksErr = ds.readChunkNode(ds.layout.addr, 0)
	})
	return ds.chunks, ds.chunksErr
}

func (ds *Dataset) readChunkNode(addr uint64, depth int) error {
	f := ds.f
	if depth > maxTreeDepth {
		return fmt.Errorf("%w: chunk B-tree deeper than %d", ErrCorrupt, maxTreeDepth)
	}
	head, err := f.readAt(addr, 8+2*f.offsetSize)
	if err != nil {
		return fmt.Errorf("error reading chunk B-tree node: %w", err)
	}
	if string(head[:4]) != "TREE" {
		return fmt.Errorf("%w: bad B-tree signature at %#x", ErrCorrupt, addr)
	}
	if head[4] != 1 {
		return fmt.Errorf("%w: B-tree node type %d in a chunk index", ErrCorrupt, head[4])
	}
	level := head[5]
	entries := int(binary.LittleEndian.Uint16(head[6:8]))

	rank := len(ds.layout.chunk)
	keySize := 8 + 8*(rank+1)
	body, err := f.readAt(addr+uint64(len(head)), entries*(keySize+f.offsetSize)+keySize)
	if err != nil {
		return fmt.Errorf("error reading chunk B-tree node: %w", err)
	}
	d := f.decoder(body)
	for i := 0; i < entries; i++ {
		c := chunkRef{size: d.u32(), mask: d.u32(), origin: make([]uint64, rank)}
		for j := range c.origin {
			c.origin[j] = d.u64()
		}
		d.u64() // element offset, always zero
		c.addr = d.addr()
		if d.err != nil {
			return d.err
		}
		if level > 0 {
			if err := ds.readChunkNode(c.addr, depth+1); err != nil {
				return err
			}
			continue
		}
		if c.addr != undefined && c.size > 0 {
			ds.chunks = append(ds.chunks, c)
		}
	}
	return nil
}
