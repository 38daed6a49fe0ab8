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
)

// Memory is an in-memory Group. It is mostly useful for tests and for
// wrapping recordings that were decoded by other means.
type Memory struct {
	attrNames []string
	attrs     map[string]any
	groups    map[string]*Memory
	datasets  map[string]*MemoryDataset
}

// NewMemory creates an empty in-memory group.
func NewMemory() *Memory {
	return &Memory{
		attrs:    make(map[string]any),
		groups:   make(map[string]*Memory),
		datasets: make(map[string]*MemoryDataset),
	}
}

// SetAttr sets an attribute, keeping first-insertion order.
func (m *Memory) SetAttr(name string, value any) *Memory {
	if _, ok := m.attrs[name]; !ok {
		m.attrNames = append(m.attrNames, name)
	}
	m.attrs[name] = value
	return m
}

// DeleteAttr removes an attribute.
func (m *Memory) DeleteAttr(name string) *Memory {
	if _, ok := m.attrs[name]; !ok {
		return m
	}
	delete(m.attrs, name)
	for i, n := range m.attrNames {
		if n == name {
			m.attrNames = append(m.attrNames[:i], m.attrNames[i+1:]...)
			break
		}
	}
	return m
}

// CreateGroup returns the named child group, creating it if needed.
func (m *Memory) CreateGroup(name string) *Memory {
	if g, ok := m.groups[name]; ok {
		return g
	}
	g := NewMemory()
	m.groups[name] = g
	return g
}

// PutDataset stores a 1-D dataset. Supported values are numeric slices,
// []string and [][]byte.
func (m *Memory) PutDataset(name string, values any) *Memory {
	m.datasets[name] = &MemoryDataset{values: values}
	return m
}

// PutSignals stores a 2-D integer dataset given as rows.
func (m *Memory) PutSignals(name string, rows [][]int32) *Memory {
	m.datasets[name] = &MemoryDataset{values: rows}
	return m
}

// Remove deletes a child group or dataset.
func (m *Memory) Remove(name string) *Memory {
	delete(m.groups, name)
	delete(m.datasets, name)
	return m
}

func (m *Memory) Attr(name string) (any, error) {
	v, ok := m.attrs[name]
	if !ok {
		return nil, fmt.Errorf("attribute %q: %w", name, ErrNotFound)
	}
	return v, nil
}

func (m *Memory) AttrNames() []string {
	return append([]string(nil), m.attrNames...)
}

func (m *Memory) Group(name string) (Group, error) {
	g, ok := m.groups[name]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", name, ErrNotFound)
	}
	return g, nil
}

func (m *Memory) Dataset(name string) (Dataset, error) {
	ds, ok := m.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", name, ErrNotFound)
	}
	return ds, nil
}

// MemoryDataset is a Dataset backed by a Go slice.
type MemoryDataset struct {
	values any
}

func (d *MemoryDataset) Shape() []int {
	switch x := d.values.(type) {
	case [][]int32:
		if len(x) == 0 {
			return []int{0, 0}
		}
		return []int{len(x), len(x[0])}
	case []string:
		return []int{len(x)}
	case [][]byte:
		return []int{len(x)}
	}
	if f, err := Float64s(d.values); err == nil {
		return []int{len(f)}
	}
	return nil
}

func (d *MemoryDataset) ReadBytes() ([][]byte, error) {
	return ByteStrings(d.values)
}

func (d *MemoryDataset) ReadFloat64() ([]float64, error) {
	return Float64s(d.values)
}

func (d *MemoryDataset) ReadInt64() ([]int64, error) {
	return Int64s(d.values)
}

func (d *MemoryDataset) ReadBlock(r0, r1, c0, c1 int) ([]int32, error) {
	rows, ok := d.values.([][]int32)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a 2-d integer dataset", ErrType, d.values)
	}
	if err := checkBlock(d.Shape(), r0, r1, c0, c1); err != nil {
		return nil, err
	}
	return Rows(rows[r0:r1], c0, c1)
}
