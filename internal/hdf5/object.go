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

// Header message types.
const (
	msgNil           = 0x00
	msgDataspace     = 0x01
	msgLinkInfo      = 0x02
	msgDatatype      = 0x03
	msgFillValue     = 0x05
	msgLink          = 0x06
	msgLayout        = 0x08
	msgGroupInfo     = 0x0a
	msgFilters       = 0x0b
	msgAttribute     = 0x0c
	msgContinuation  = 0x10
	msgSymbolTable   = 0x11
	msgAttributeInfo = 0x15
)

// Maximum number of continuation blocks followed for one object, which stops
// cycles in damaged files.
const maxContinuations = 1024

type message struct {
	typ   uint16
	flags uint8
	data  []byte
}

type block struct {
	addr, size uint64
}

// readObject reads every header message of the object at addr, following
// continuation blocks.
func (f *File) readObject(addr uint64) ([]message, error) {
	prefix, err := f.readUpTo(addr, 4)
	if err != nil {
		return nil, fmt.Errorf("error reading object header at %#x: %w", addr, err)
	}
	if string(prefix) == "OHDR" {
		return f.readObjectV2(addr)
	}
	return f.readObjectV1(addr)
}

func (f *File) readObjectV1(addr uint64) ([]message, error) {
	prefix, err := f.readAt(addr, 16)
	if err != nil {
		return nil, fmt.Errorf("error reading object header at %#x: %w", addr, err)
	}
	d := f.decoder(prefix)
	if v := d.u8(); v != 1 {
		return nil, fmt.Errorf("%w: object header version %d at %#x", ErrUnsupported, v, addr)
	}
	d.skip(1)
	count := int(d.u16())
	d.skip(4) // reference count
	size := d.u32()

	var msgs []message
	pending := []block{{addr + 16, uint64(size)}}
	for i := 0; len(pending) > 0 && len(msgs) < count; i++ {
		if i > maxContinuations {
			return nil, fmt.Errorf("%w: too many continuation blocks at %#x", ErrCorrupt, addr)
		}
		blk := pending[0]
		pending = pending[1:]
		b, err := f.readAt(blk.addr, int(blk.size))
		if err != nil {
			return nil, fmt.Errorf("error reading object header block at %#x: %w", blk.addr, err)
		}
		d := f.decoder(b)
		for d.remaining() >= 8 && len(msgs) < count {
			typ := d.u16()
			n := int(d.u16())
			flags := d.u8()
			d.skip(3)
			data := d.bytes(n)
			d.align(8)
			if d.err != nil {
				return nil, fmt.Errorf("error reading object header at %#x: %w", addr, d.err)
			}
			msgs = append(msgs, message{typ: typ, flags: flags, data: data})
			if typ == msgContinuation {
				next, err := f.continuation(data)
				if err != nil {
					return nil, err
				}
				pending = append(pending, next)
			}
		}
	}
	return msgs, nil
}

func (f *File) readObjectV2(addr uint64) ([]message, error) {
	prefix, err := f.readUpTo(addr, 4+2+16+4+8)
	if err != nil {
		return nil, fmt.Errorf("error reading object header at %#x: %w", addr, err)
	}
	d := f.decoder(prefix)
	d.skip(4)
	if v := d.u8(); v != 2 {
		return nil, fmt.Errorf("%w: object header version %d at %#x", ErrUnsupported, v, addr)
	}
	flags := d.u8()
	if flags&0x20 != 0 {
		d.skip(16) // access, modification, change and birth times
	}
	if flags&0x10 != 0 {
		d.skip(4) // attribute storage phase change values
	}
	size := d.uint(1 << (flags & 0x03))
	if d.err != nil {
		return nil, fmt.Errorf("error reading object header at %#x: %w", addr, d.err)
	}
	ordered := flags&0x04 != 0

	b, err := f.readAt(addr+uint64(d.off), int(size))
	if err != nil {
		return nil, fmt.Errorf("error reading object header at %#x: %w", addr, err)
	}
	msgs, next, err := f.messagesV2(b, ordered)
	if err != nil {
		return nil, fmt.Errorf("error reading object header at %#x: %w", addr, err)
	}
	for i := 0; len(next) > 0; i++ {
		if i > maxContinuations {
			return nil, fmt.Errorf("%w: too many continuation blocks at %#x", ErrCorrupt, addr)
		}
		blk := next[0]
		next = next[1:]
		b, err := f.readAt(blk.addr, int(blk.size))
		if err != nil {
			return nil, fmt.Errorf("error reading object header block at %#x: %w", blk.addr, err)
		}
		if len(b) < 8 || string(b[:4]) != "OCHK" {
			return nil, fmt.Errorf("%w: bad continuation signature at %#x", ErrCorrupt, blk.addr)
		}
		more, cont, err := f.messagesV2(b[4:len(b)-4], ordered)
		if err != nil {
			return nil, fmt.Errorf("error reading object header block at %#x: %w", blk.addr, err)
		}
		msgs = append(msgs, more...)
		next = append(next, cont...)
	}
	return msgs, nil
}

func (f *File) messagesV2(b []byte, ordered bool) ([]message, []block, error) {
	head := 4
	if ordered {
		head += 2
	}
	var (
		msgs []message
		next []block
	)
	d := f.decoder(b)
	for d.remaining() >= head {
		typ := uint16(d.u8())
		n := int(d.u16())
		flags := d.u8()
		if ordered {
			d.skip(2)
		}
		data := d.bytes(n)
		if d.err != nil {
			return nil, nil, d.err
		}
		msgs = append(msgs, message{typ: typ, flags: flags, data: data})
		if typ == msgContinuation {
			blk, err := f.continuation(data)
			if err != nil {
				return nil, nil, err
			}
			next = append(next, blk)
		}
	}
	return msgs, next, nil
}

func (f *File) continuation(data []byte) (block, error) {
	d := f.decoder(data)
	blk := block{addr: d.addr(), size: d.length()}
	if d.err != nil {
		return block{}, fmt.Errorf("error reading continuation message: %w", d.err)
	}
	return blk, nil
}
