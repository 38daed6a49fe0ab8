// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package eeghdf

import (
	"fmt"
)

// SampleSource is a read-only channel × sample buffer of raw integers.
type SampleSource interface {
	Shape() []int
	// ReadBlock reads channels [r0, r1) and samples [c0, c1), row-major.
	ReadBlock(r0, r1, c0, c1 int) ([]int32, error)
}

// RawSignals gives indexed access to the raw sample buffer.
type RawSignals struct {
	src SampleSource
}

// NewRawSignals wraps a two-dimensional sample source.
func NewRawSignals(src SampleSource) (*RawSignals, error) {
	if shape := src.Shape(); len(shape) != 2 {
		return nil, fmt.Errorf("%w: signal buffer has shape %v, want channels × samples", ErrMalformedRecord, shape)
	}
	return &RawSignals{src: src}, nil
}

// Shape returns (channels, samples) as reported by the source.
func (r *RawSignals) Shape() []int {
	return r.src.Shape()
}

// Get reads the raw samples addressed by sel.
func (r *RawSignals) Get(sel Selector) (*RawArray, error) {
	reg, err := r.resolve(sel)
	if err != nil {
		return nil, err
	}
	block, err := r.read(reg)
	if err != nil {
		return nil, err
	}
	return &RawArray{shape: reg.shape(), data: block}, nil
}

func (r *RawSignals) resolve(sel Selector) (region, error) {
	shape := r.src.Shape()
	return resolve(sel, shape[0], shape[1])
}

// read fetches exactly the block covered by reg.
func (r *RawSignals) read(reg region) ([]int32, error) {
	if reg.channels() == 0 || reg.samples() == 0 {
		return []int32{}, nil
	}
	block, err := r.src.ReadBlock(reg.ch0, reg.ch1, reg.s0, reg.s1)
	if err != nil {
		return nil, fmt.Errorf("error reading samples [%d:%d, %d:%d]: %w", reg.ch0, reg.ch1, reg.s0, reg.s1, err)
	}
	if len(block) != reg.channels()*reg.samples() {
		return nil, fmt.Errorf("%w: read %d samples for a %dx%d block", ErrMalformedRecord, len(block), reg.channels(), reg.samples())
	}
	return block, nil
}

// PhysicalSignals is a lazy view of the raw buffer in physical units. Each
// Get reads only the addressed block and transforms it after slicing; nothing
// is cached.
type PhysicalSignals struct {
	raw   *RawSignals
	cal   *Calibration
	scale []float64
	// offset is nil on the zero-offset path.
	offset []float64
}

// NewPhysicalSignals builds the view for src. Whether offsets are applied is
// decided here, once, from cal.IsZeroOffset.
func NewPhysicalSignals(src SampleSource, cal *Calibration) (*PhysicalSignals, error) {
	raw, err := NewRawSignals(src)
	if err != nil {
		return nil, err
	}
	if channels := raw.Shape()[0]; channels != cal.Channels() {
		return nil, fmt.Errorf("%w: %d channels but calibration for %d", ErrMalformedRecord, channels, cal.Channels())
	}

	p := &PhysicalSignals{raw: raw, cal: cal, scale: cal.Scale}
	if !cal.IsZeroOffset() {
		p.offset = cal.Offset
	}
	return p, nil
}

// Shape returns (channels, samples) of the underlying buffer.
func (p *PhysicalSignals) Shape() []int {
	return p.raw.Shape()
}

// ZeroOffset reports whether the view skips the offset addition.
func (p *PhysicalSignals) ZeroOffset() bool {
	return p.offset == nil
}

// Calibration returns the transform the view applies.
func (p *PhysicalSignals) Calibration() *Calibration {
	return p.cal
}

// Get returns the physical values addressed by sel:
//
//	Index(c)                 all samples of channel c, shape [S]
//	Range(a, b)              channels a..b, shape [R, S]
//	At(Range, Range)         shape [R, S']
//	At(Range, Index)         shape [R]
//	At(Index, Range)         shape [S']
//	At(Index, Index)         a scalar
func (p *PhysicalSignals) Get(sel Selector) (*Array, error) {
	reg, err := p.raw.resolve(sel)
	if err != nil {
		return nil, err
	}
	block, err := p.raw.read(reg)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(block))
	width := reg.samples()
	for i := 0; i < reg.channels(); i++ {
		c := reg.ch0 + i
		src := block[i*width : (i+1)*width]
		dst := out[i*width : (i+1)*width]

		scale := p.scale[c]
		if p.offset == nil {
			for j, v := range src {
				dst[j] = scale * float64(v)
			}
			continue
		}

		offset := p.offset[c]
		for j, v := range src {
			dst[j] = scale * (float64(v) + offset)
		}
	}

	return &Array{shape: reg.shape(), data: out}, nil
}

// Channel returns all samples of channel c; it is Get(Index(c)).
func (p *PhysicalSignals) Channel(c int) ([]float64, error) {
	a, err := p.Get(Index(c))
	if err != nil {
		return nil, err
	}
	return a.Data(), nil
}
