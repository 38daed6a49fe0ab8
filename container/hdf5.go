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
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/OpenPSG/eeghdf/internal/hdf5"
)

// HDF5File is a read-only HDF5 file opened as a container.
type HDF5File struct {
	*HDF5Group
	f *hdf5.File
}

// OpenHDF5 opens an HDF5 file for reading.
func OpenHDF5(path string) (*HDF5File, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	return newHDF5File(f)
}

// NewHDF5 reads an HDF5 file of the given size from r. Closing the result
// does not close r.
func NewHDF5(r io.ReaderAt, size int64) (*HDF5File, error) {
	f, err := hdf5.NewFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("error reading HDF5 file: %w", err)
	}
	return newHDF5File(f)
}

func newHDF5File(f *hdf5.File) (*HDF5File, error) {
	root, err := f.Root()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error opening root group: %w", err)
	}
	return &HDF5File{HDF5Group: &HDF5Group{g: root, closed: new(atomic.Bool)}, f: f}, nil
}

// Close closes the file. Groups and datasets opened from it fail with
// ErrClosed afterwards.
func (f *HDF5File) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	return f.f.Close()
}

// HDF5Group adapts an HDF5 group to Group. Attributes are those of the group
// itself, not of the file root.
type HDF5Group struct {
	g      *hdf5.Group
	closed *atomic.Bool
}

func (h *HDF5Group) Attr(name string) (any, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	v, err := h.g.Attr(name)
	if err != nil {
		return nil, wrapHDF5("attribute", name, err)
	}
	return v, nil
}

func (h *HDF5Group) AttrNames() []string {
	if h.closed.Load() {
		return nil
	}
	return h.g.AttrNames()
}

func (h *HDF5Group) Group(name string) (Group, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	g, err := h.g.Group(name)
	if err != nil {
		return nil, wrapHDF5("group", name, err)
	}
	return &HDF5Group{g: g, closed: h.closed}, nil
}

func (h *HDF5Group) Dataset(name string) (Dataset, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	ds, err := h.g.Dataset(name)
	if err != nil {
		return nil, wrapHDF5("dataset", name, err)
	}
	return &HDF5Dataset{ds: ds, closed: h.closed}, nil
}

// wrapHDF5 maps missing objects onto ErrNotFound, keeping the reader's error
// in the chain.
func wrapHDF5(kind, name string, err error) error {
	if errors.Is(err, hdf5.ErrNotFound) {
		return fmt.Errorf("%s %q: %w (%w)", kind, name, ErrNotFound, err)
	}
	if errors.Is(err, hdf5.ErrNotGroup) || errors.Is(err, hdf5.ErrNotDataset) {
		return fmt.Errorf("%s %q: %w (%w)", kind, name, ErrType, err)
	}
	return fmt.Errorf("error reading %s %q: %w", kind, name, err)
}

// HDF5Dataset adapts an HDF5 dataset to Dataset. Block reads fetch only the
// bytes, or chunks, that overlap the block.
type HDF5Dataset struct {
	ds     *hdf5.Dataset
	closed *atomic.Bool
}

func (d *HDF5Dataset) Shape() []int {
	return d.ds.Shape()
}

func (d *HDF5Dataset) values() (any, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	v, err := d.ds.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading dataset %q: %w", d.ds.Name(), err)
	}
	return v, nil
}

func (d *HDF5Dataset) ReadBytes() ([][]byte, error) {
	v, err := d.values()
	if err != nil {
		return nil, err
	}
	return ByteStrings(v)
}

func (d *HDF5Dataset) ReadFloat64() ([]float64, error) {
	v, err := d.values()
	if err != nil {
		return nil, err
	}
	return Float64s(v)
}

func (d *HDF5Dataset) ReadInt64() ([]int64, error) {
	v, err := d.values()
	if err != nil {
		return nil, err
	}
	return Int64s(v)
}

func (d *HDF5Dataset) ReadBlock(r0, r1, c0, c1 int) ([]int32, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if err := checkBlock(d.Shape(), r0, r1, c0, c1); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", d.ds.Name(), err)
	}
	if r0 == r1 || c0 == c1 {
		return []int32{}, nil
	}
	v, err := d.ds.ReadSlab([]int{r0, c0}, []int{r1 - r0, c1 - c0})
	if err != nil {
		return nil, fmt.Errorf("error reading block [%d:%d, %d:%d] of dataset %q: %w", r0, r1, c0, c1, d.ds.Name(), err)
	}
	return Int32s(v)
}
