// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package hdf5 is a small read-only HDF5 reader. It understands the object
// layouts that libhdf5 writes by default: symbol table and compact link
// groups, compact attributes, and contiguous, compact or B-tree chunked
// datasets with the deflate, shuffle and fletcher32 filters.
package hdf5

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	ErrNotHDF5     = errors.New("not an HDF5 file")
	ErrCorrupt     = errors.New("corrupt HDF5 structure")
	ErrUnsupported = errors.New("unsupported HDF5 feature")
	ErrNotFound    = errors.New("object not found")
	ErrNotGroup    = errors.New("object is not a group")
	ErrNotDataset  = errors.New("object is not a dataset")
)

var signature = []byte("\x89HDF\r\n\x1a\n")

// File is an HDF5 file opened for reading. It is safe for concurrent use.
type File struct {
	r          io.ReaderAt
	closer     io.Closer
	size       int64
	base       uint64
	offsetSize int
	lengthSize int
	root       uint64

	mu    sync.Mutex
	heaps map[uint64]map[uint16][]byte
}

// Open opens the named file.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := fh.Stat()
	if err != nil {
		_ = fh.Close()
		return nil, err
	}
	f, err := NewFile(fh, fi.Size())
	if err != nil {
		_ = fh.Close()
		return nil, err
	}
	f.closer = fh
	return f, nil
}

// NewFile reads an HDF5 file of the given size from r.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	f := &File{r: r, size: size, heaps: make(map[uint64]map[uint16][]byte)}
	if err := f.readSuperblock(); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases the underlying file, if Open created it.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Root opens the root group.
func (f *File) Root() (*Group, error) {
	return f.openGroup("/", f.root)
}

func (f *File) readSuperblock() error {
	at := int64(-1)
	sig := make([]byte, len(signature))
	for off := int64(0); off+int64(len(signature)) <= f.size; off = nextSignatureOffset(off) {
		if _, err := f.r.ReadAt(sig, off); err != nil {
			return fmt.Errorf("error reading signature: %w", err)
		}
		if bytes.Equal(sig, signature) {
			at = off
			break
		}
	}
	if at < 0 {
		return ErrNotHDF5
	}

	n := int64(128)
	if at+n > f.size {
		n = f.size - at
	}
	b := make([]byte, n)
	if _, err := f.r.ReadAt(b, at); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error reading superblock: %w", err)
	}

	d := &decoder{b: b, off: len(signature)}
	version := d.u8()
	switch version {
	case 0, 1:
		d.skip(4) // free space, root symbol table, reserved, shared header versions
		f.offsetSize = int(d.u8())
		f.lengthSize = int(d.u8())
		d.skip(1)
		d.skip(4) // group leaf and internal node K
		d.skip(4) // consistency flags
		if version == 1 {
			d.skip(4) // indexed storage K and reserved
		}
		if err := f.checkSizes(); err != nil {
			return err
		}
		d.offsetSize, d.lengthSize = f.offsetSize, f.lengthSize
		d.addr() // base address
		d.addr() // free space
		d.addr() // end of file
		d.addr() // driver information
		// root symbol table entry
		d.length() // link name offset
		f.root = d.addr()
	case 2, 3:
		f.offsetSize = int(d.u8())
		f.lengthSize = int(d.u8())
		d.skip(1) // consistency flags
		if err := f.checkSizes(); err != nil {
			return err
		}
		d.offsetSize, d.lengthSize = f.offsetSize, f.lengthSize
		d.addr() // base address
		d.addr() // superblock extension
		d.addr() // end of file
		f.root = d.addr()
	default:
		return fmt.Errorf("%w: superblock version %d", ErrUnsupported, version)
	}
	if d.err != nil {
		return fmt.Errorf("error reading superblock: %w", d.err)
	}
	// Addresses are relative to the superblock, which libhdf5 also assumes
	// when a user block shifts it away from the stored base address.
	f.base = uint64(at)
	if f.root == undefined {
		return fmt.Errorf("%w: missing root group", ErrCorrupt)
	}
	return nil
}

func (f *File) checkSizes() error {
	for _, n := range []int{f.offsetSize, f.lengthSize} {
		switch n {
		case 2, 4, 8:
		default:
			return fmt.Errorf("%w: field size %d", ErrUnsupported, n)
		}
	}
	return nil
}

// The superblock may follow a user block at 0, 512, 1024, 2048 and so on.
func nextSignatureOffset(off int64) int64 {
	if off == 0 {
		return 512
	}
	return off * 2
}

// readAt reads n bytes at a file address.
func (f *File) readAt(addr uint64, n int) ([]byte, error) {
	if addr == undefined {
		return nil, fmt.Errorf("%w: read from undefined address", ErrCorrupt)
	}
	pos := int64(f.base + addr)
	if n < 0 || pos < 0 || pos+int64(n) > f.size {
		return nil, fmt.Errorf("%w: %d bytes at %#x lie outside the file", ErrCorrupt, n, addr)
	}
	b := make([]byte, n)
	if _, err := f.r.ReadAt(b, pos); err != nil && !(errors.Is(err, io.EOF) && pos+int64(n) == f.size) {
		return nil, err
	}
	return b, nil
}

// readUpTo reads at most n bytes at addr, stopping at the end of the file.
func (f *File) readUpTo(addr uint64, n int) ([]byte, error) {
	if addr != undefined {
		if rest := f.size - int64(f.base+addr); rest >= 0 && int64(n) > rest {
			n = int(rest)
		}
	}
	return f.readAt(addr, n)
}

// globalHeapObject returns an object from a global heap collection. Parsed
// collections are cached since variable-length strings point into a handful
// of them.
func (f *File) globalHeapObject(addr uint64, index uint16) ([]byte, error) {
	f.mu.Lock()
	objects, ok := f.heaps[addr]
	f.mu.Unlock()
	if !ok {
		var err error
		if objects, err = f.readGlobalHeap(addr); err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.heaps[addr] = objects
		f.mu.Unlock()
	}
	obj, ok := objects[index]
	if !ok {
		return nil, fmt.Errorf("%w: global heap object %d at %#x", ErrCorrupt, index, addr)
	}
	return obj, nil
}

func (f *File) readGlobalHeap(addr uint64) (map[uint16][]byte, error) {
	head, err := f.readAt(addr, 8+f.lengthSize)
	if err != nil {
		return nil, fmt.Errorf("error reading global heap: %w", err)
	}
	d := f.decoder(head)
	if string(d.bytes(4)) != "GCOL" {
		return nil, fmt.Errorf("%w: bad global heap signature at %#x", ErrCorrupt, addr)
	}
	if v := d.u8(); v != 1 {
		return nil, fmt.Errorf("%w: global heap version %d", ErrUnsupported, v)
	}
	d.skip(3)
	size := d.length()
	if d.err != nil {
		return nil, d.err
	}

	b, err := f.readUpTo(addr, int(size))
	if err != nil {
		return nil, fmt.Errorf("error reading global heap: %w", err)
	}
	d = f.decoder(b)
	d.skip(8 + f.lengthSize)
	objects := make(map[uint16][]byte)
	for d.remaining() >= 8+f.lengthSize {
		index := d.u16()
		d.skip(6) // reference count and reserved
		n := d.length()
		if index == 0 || d.err != nil {
			break
		}
		if n > uint64(d.remaining()) {
			return nil, fmt.Errorf("%w: global heap object %d overruns its collection", ErrCorrupt, index)
		}
		objects[index] = d.bytes(int(n))
		d.align(8)
	}
	return objects, nil
}
