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
)

// Group is an open HDF5 group. Its links and attributes are read from its own
// object header when it is opened.
type Group struct {
	f     *File
	name  string
	names []string
	links map[string]uint64
	attrs *attributes
	// dense link storage lives in a fractal heap this reader does not parse
	dense bool
}

func (f *File) openGroup(name string, addr uint64) (*Group, error) {
	msgs, err := f.readObject(addr)
	if err != nil {
		return nil, err
	}
	return f.newGroup(name, msgs)
}

func (f *File) newGroup(name string, msgs []message) (*Group, error) {
	g := &Group{f: f, name: name, links: make(map[string]uint64)}
	isGroup := false
	for _, m := range msgs {
		switch m.typ {
		case msgSymbolTable:
			isGroup = true
			d := f.decoder(m.data)
			btree, heap := d.addr(), d.addr()
			if d.err != nil {
				return nil, fmt.Errorf("error reading symbol table of %s: %w", name, d.err)
			}
			if err := g.readSymbolTable(btree, heap); err != nil {
				return nil, fmt.Errorf("error reading symbol table of %s: %w", name, err)
			}
		case msgLinkInfo:
			isGroup = true
			if dense, err := f.linkInfoDense(m.data); err != nil {
				return nil, fmt.Errorf("error reading link info of %s: %w", name, err)
			} else if dense {
				g.dense = true
			}
		case msgLink:
			isGroup = true
			if err := g.addLink(m.data); err != nil {
				return nil, fmt.Errorf("error reading link in %s: %w", name, err)
			}
		case msgGroupInfo:
			isGroup = true
		}
	}
	if !isGroup {
		return nil, fmt.Errorf("%s: %w", name, ErrNotGroup)
	}
	attrs, err := f.readAttributes(msgs)
	if err != nil {
		return nil, fmt.Errorf("error reading attributes of %s: %w", name, err)
	}
	g.attrs = attrs
	return g, nil
}

func (g *Group) add(name string, addr uint64) {
	if _, ok := g.links[name]; !ok {
		g.names = append(g.names, name)
	}
	g.links[name] = addr
}

// Name returns the path the group was opened by.
func (g *Group) Name() string { return g.name }

// Names lists the hard links of the group in storage order.
func (g *Group) Names() []string {
	return append([]string(nil), g.names...)
}

// Attr returns the named attribute of this group. Scalars are returned as a
// single value, a string for text, and arrays as typed slices.
func (g *Group) Attr(name string) (any, error) {
	return g.attrs.get(name)
}

// AttrNames lists the attribute names in storage order.
func (g *Group) AttrNames() []string {
	return g.attrs.names()
}

// Group opens a child group.
func (g *Group) Group(name string) (*Group, error) {
	addr, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	return g.f.openGroup(g.child(name), addr)
}

// Dataset opens a child dataset.
func (g *Group) Dataset(name string) (*Dataset, error) {
	addr, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	return g.f.openDataset(g.child(name), addr)
}

func (g *Group) lookup(name string) (uint64, error) {
	addr, ok := g.links[name]
	if ok {
		return addr, nil
	}
	if g.dense {
		return 0, fmt.Errorf("%w: dense link storage in %s", ErrUnsupported, g.name)
	}
	return 0, fmt.Errorf("%s in %s: %w", name, g.name, ErrNotFound)
}

func (g *Group) child(name string) string {
	if g.name == "/" {
		return "/" + name
	}
	return g.name + "/" + name
}

// readSymbolTable walks the group B-tree and collects the entries of every
// symbol table node, naming them from the local heap.
func (g *Group) readSymbolTable(btree, heapAddr uint64) error {
	heap, err := g.f.readLocalHeap(heapAddr)
	if err != nil {
		return err
	}
	return g.readGroupNode(btree, heap, 0)
}

// Maximum depth of a group B-tree.
const maxTreeDepth = 64

func (g *Group) readGroupNode(addr uint64, heap []byte, depth int) error {
	f := g.f
	if depth > maxTreeDepth {
		return fmt.Errorf("%w: group B-tree deeper than %d", ErrCorrupt, maxTreeDepth)
	}
	head, err := f.readAt(addr, 8+2*f.offsetSize)
	if err != nil {
		return fmt.Errorf("error reading B-tree node: %w", err)
	}
	d := f.decoder(head)
	if string(d.bytes(4)) != "TREE" {
		return fmt.Errorf("%w: bad B-tree signature at %#x", ErrCorrupt, addr)
	}
	if typ := d.u8(); typ != 0 {
		return fmt.Errorf("%w: B-tree node type %d in a group", ErrCorrupt, typ)
	}
	level := d.u8()
	entries := int(d.u16())

	body, err := f.readAt(addr+uint64(len(head)), entries*(f.lengthSize+f.offsetSize)+f.lengthSize)
	if err != nil {
		return fmt.Errorf("error reading B-tree node: %w", err)
	}
	d = f.decoder(body)
	for i := 0; i < entries; i++ {
		d.length() // key
		child := d.addr()
		if d.err != nil {
			return d.err
		}
		if level > 0 {
			err = g.readGroupNode(child, heap, depth+1)
		} else {
			err = g.readSymbolNode(child, heap)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Group) readSymbolNode(addr uint64, heap []byte) error {
	f := g.f
	head, err := f.readAt(addr, 8)
	if err != nil {
		return fmt.Errorf("error reading symbol table node: %w", err)
	}
	if string(head[:4]) != "SNOD" {
		return fmt.Errorf("%w: bad symbol table node signature at %#x", ErrCorrupt, addr)
	}
	if head[4] != 1 {
		return fmt.Errorf("%w: symbol table node version %d", ErrUnsupported, head[4])
	}
	count := int(head[6]) | int(head[7])<<8
	entrySize := f.lengthSize + f.offsetSize + 8 + 16
	body, err := f.readAt(addr+8, count*entrySize)
	if err != nil {
		return fmt.Errorf("error reading symbol table node: %w", err)
	}
	d := f.decoder(body)
	for i := 0; i < count; i++ {
		nameOff := d.length()
		obj := d.addr()
		cache := d.u32()
		d.skip(4 + 16) // reserved and scratch pad
		if d.err != nil {
			return d.err
		}
		// cache type 2 marks a soft link, which has no object of its own
		if cache == 2 {
			continue
		}
		name, err := heapString(heap, nameOff)
		if err != nil {
			return err
		}
		g.add(name, obj)
	}
	return nil
}

// readLocalHeap returns the data segment of a local heap.
func (f *File) readLocalHeap(addr uint64) ([]byte, error) {
	head, err := f.readAt(addr, 8+2*f.lengthSize+f.offsetSize)
	if err != nil {
		return nil, fmt.Errorf("error reading local heap: %w", err)
	}
	d := f.decoder(head)
	if string(d.bytes(4)) != "HEAP" {
		return nil, fmt.Errorf("%w: bad local heap signature at %#x", ErrCorrupt, addr)
	}
	if v := d.u8(); v != 0 {
		return nil, fmt.Errorf("%w: local heap version %d", ErrUnsupported, v)
	}
	d.skip(3)
	size := d.length()
	d.length() // free list
	data := d.addr()
	if d.err != nil {
		return nil, d.err
	}
	return f.readAt(data, int(size))
}

func heapString(heap []byte, off uint64) (string, error) {
	if off >= uint64(len(heap)) {
		return "", fmt.Errorf("%w: name offset %d outside local heap", ErrCorrupt, off)
	}
	b := heap[off:]
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return "", fmt.Errorf("%w: unterminated name in local heap", ErrCorrupt)
}

// addLink records a hard link message. Soft and external links are skipped.
func (g *Group) addLink(b []byte) error {
	d := g.f.decoder(b)
	if v := d.u8(); v != 1 {
		return fmt.Errorf("%w: link message version %d", ErrUnsupported, v)
	}
	flags := d.u8()
	linkType := uint8(0)
	if flags&0x08 != 0 {
		linkType = d.u8()
	}
	if flags&0x04 != 0 {
		d.skip(8) // creation order
	}
	if flags&0x10 != 0 {
		d.skip(1) // character set
	}
	n := d.uint(1 << (flags & 0x03))
	name := string(d.bytes(int(n)))
	if linkType != 0 {
		return d.err
	}
	addr := d.addr()
	if d.err != nil {
		return d.err
	}
	g.add(name, addr)
	return nil
}

// linkInfoDense reports whether a link info message points at a fractal heap.
func (f *File) linkInfoDense(b []byte) (bool, error) {
	d := f.decoder(b)
	d.u8() // version
	if flags := d.u8(); flags&0x01 != 0 {
		d.skip(8) // maximum creation index
	}
	heap := d.addr()
	if d.err != nil {
		return false, d.err
	}
	return heap != undefined, nil
}
