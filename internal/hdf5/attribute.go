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

type attribute struct {
	name  string
	dtype datatype
	space dataspace
	raw   []byte
}

// attributes are the compact attributes of one object, decoded on demand.
type attributes struct {
	f     *File
	order []string
	byKey map[string]*attribute
	// attributes beyond the compact limit live in a fractal heap
	dense bool
}

func (f *File) readAttributes(msgs []message) (*attributes, error) {
	a := &attributes{f: f, byKey: make(map[string]*attribute)}
	for _, m := range msgs {
		switch m.typ {
		case msgAttribute:
			attr, err := f.parseAttribute(m)
			if err != nil {
				return nil, err
			}
			if _, ok := a.byKey[attr.name]; !ok {
				a.order = append(a.order, attr.name)
			}
			a.byKey[attr.name] = attr
		case msgAttributeInfo:
			d := f.decoder(m.data)
			d.u8() // version
			if flags := d.u8(); flags&0x01 != 0 {
				d.skip(2) // maximum creation index
			}
			heap := d.addr()
			if d.err != nil {
				return nil, fmt.Errorf("error reading attribute info: %w", d.err)
			}
			a.dense = heap != undefined
		}
	}
	return a, nil
}

// parseAttribute reads an attribute message. Version 1 pads the name,
// datatype and dataspace to eight bytes, version 3 adds a character set.
func (f *File) parseAttribute(m message) (*attribute, error) {
	d := f.decoder(m.data)
	version := d.u8()
	flags := d.u8()
	nameSize := int(d.u16())
	typeSize := int(d.u16())
	spaceSize := int(d.u16())
	switch version {
	case 1, 2:
	case 3:
		d.skip(1)
	default:
		return nil, fmt.Errorf("%w: attribute message version %d", ErrUnsupported, version)
	}
	if flags&0x03 != 0 {
		return nil, fmt.Errorf("%w: shared attribute datatype or dataspace", ErrUnsupported)
	}
	padded := func(n int) int {
		if version == 1 {
			return pad8(n)
		}
		return n
	}
	name := d.bytes(padded(nameSize))
	typeBytes := d.bytes(padded(typeSize))
	spaceBytes := d.bytes(padded(spaceSize))
	if d.err != nil {
		return nil, fmt.Errorf("error reading attribute: %w", d.err)
	}
	if nameSize > 0 && len(name) >= nameSize {
		name = name[:nameSize-1]
	}
	attr := &attribute{name: string(trimString(name, 0))}

	var err error
	if attr.dtype, err = parseDatatype(typeBytes[:typeSize]); err != nil {
		return nil, fmt.Errorf("error reading type of attribute %s: %w", attr.name, err)
	}
	if attr.space, err = f.parseDataspace(spaceBytes[:spaceSize]); err != nil {
		return nil, fmt.Errorf("error reading dataspace of attribute %s: %w", attr.name, err)
	}
	attr.raw = m.data[d.off:]
	return attr, nil
}

func (a *attributes) names() []string {
	return append([]string(nil), a.order...)
}

func (a *attributes) get(name string) (any, error) {
	attr, ok := a.byKey[name]
	if !ok {
		if a.dense {
			return nil, fmt.Errorf("%w: dense attribute storage", ErrUnsupported)
		}
		return nil, fmt.Errorf("attribute %s: %w", name, ErrNotFound)
	}
	v, err := a.f.decode(attr.dtype, attr.raw, attr.space.count())
	if err != nil {
		return nil, fmt.Errorf("error reading attribute %s: %w", name, err)
	}
	if attr.space.kind != spaceScalar {
		if s, ok := v.([][]byte); ok {
			return toStrings(s), nil
		}
		return v, nil
	}
	return scalar(v), nil
}

func toStrings(b [][]byte) []string {
	out := make([]string, len(b))
	for i, s := range b {
		out[i] = string(s)
	}
	return out
}

// scalar unwraps the single element of a decoded scalar attribute.
func scalar(v any) any {
	switch x := v.(type) {
	case []int8:
		return x[0]
	case []uint8:
		return x[0]
	case []int16:
		return x[0]
	case []uint16:
		return x[0]
	case []int32:
		return x[0]
	case []uint32:
		return x[0]
	case []int64:
		return x[0]
	case []uint64:
		return x[0]
	case []float32:
		return x[0]
	case []float64:
		return x[0]
	case [][]byte:
		return string(x[0])
	}
	return v
}
