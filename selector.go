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
	"math"
	"strconv"
	"strings"
)

// Selector addresses a region of a channel × sample buffer. It is one of
// Index, Range or Pair.
type Selector interface {
	selector()
}

// Index selects a single position. Negative values count from the end.
type Index int

// End is an open upper bound for Range.
const End = math.MaxInt

// Range selects positions [Start, Stop). Negative bounds count from the end,
// bounds beyond the axis are clipped and an inverted range is empty.
type Range struct {
	Start int
	Stop  int
}

// Pair selects channels and samples together. Each half must be an Index or
// a Range.
type Pair struct {
	Channel Selector
	Sample  Selector
}

func (Index) selector() {}
func (Range) selector() {}
func (Pair) selector()  {}

// All selects a whole axis.
func All() Range {
	return Range{Start: 0, Stop: End}
}

// Span selects [start, stop).
func Span(start, stop int) Range {
	return Range{Start: start, Stop: stop}
}

// At pairs a channel selector with a sample selector.
func At(channel, sample Selector) Pair {
	return Pair{Channel: channel, Sample: sample}
}

func (r Range) String() string {
	start, stop := "", ""
	if r.Start != 0 {
		start = strconv.Itoa(r.Start)
	}
	if r.Stop != End {
		stop = strconv.Itoa(r.Stop)
	}
	return start + ":" + stop
}

// region is a resolved selector: a block of the buffer plus which axes
// collapse because they were addressed by an Index.
type region struct {
	ch0, ch1      int
	s0, s1        int
	squeezeChan   bool
	squeezeSample bool
}

func (r region) channels() int { return r.ch1 - r.ch0 }
func (r region) samples() int  { return r.s1 - r.s0 }

// shape returns the result shape with collapsed axes dropped.
func (r region) shape() []int {
	shape := []int{}
	if !r.squeezeChan {
		shape = append(shape, r.channels())
	}
	if !r.squeezeSample {
		shape = append(shape, r.samples())
	}
	return shape
}

func resolve(sel Selector, channels, samples int) (region, error) {
	var (
		r   region
		err error
	)

	switch s := sel.(type) {
	case Index, Range:
		r.ch0, r.ch1, r.squeezeChan, err = resolveAxis(s, channels, "channel")
		if err != nil {
			return region{}, err
		}
		r.s0, r.s1 = 0, samples
	case Pair:
		r.ch0, r.ch1, r.squeezeChan, err = resolveAxis(s.Channel, channels, "channel")
		if err != nil {
			return region{}, err
		}
		r.s0, r.s1, r.squeezeSample, err = resolveAxis(s.Sample, samples, "sample")
		if err != nil {
			return region{}, err
		}
	default:
		return region{}, fmt.Errorf("%w: %T", ErrUnsupportedSelector, sel)
	}

	return r, nil
}

func resolveAxis(sel Selector, n int, axis string) (lo, hi int, scalar bool, err error) {
	switch s := sel.(type) {
	case Index:
		i := int(s)
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return 0, 0, false, fmt.Errorf("%w: %s index %d with %d %ss", ErrIndexOutOfRange, axis, int(s), n, axis)
		}
		return i, i + 1, true, nil
	case Range:
		lo, hi = clip(s.Start, n), clip(s.Stop, n)
		if hi < lo {
			hi = lo
		}
		return lo, hi, false, nil
	default:
		return 0, 0, false, fmt.Errorf("%w: %T as %s selector", ErrUnsupportedSelector, sel, axis)
	}
}

func clip(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}

// ParseSelector parses the textual form of a selector, e.g. "3", "0:4",
// "-2:" or "0:4, 100:200".
func ParseSelector(text string) (Selector, error) {
	parts := strings.Split(text, ",")
	switch len(parts) {
	case 1:
		return parseAxis(parts[0])
	case 2:
		ch, err := parseAxis(parts[0])
		if err != nil {
			return nil, err
		}
		s, err := parseAxis(parts[1])
		if err != nil {
			return nil, err
		}
		return At(ch, s), nil
	default:
		return nil, fmt.Errorf("%w: %d dimensions in %q", ErrUnsupportedSelector, len(parts), text)
	}
}

func parseAxis(text string) (Selector, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty selector", ErrUnsupportedSelector)
	}

	before, after, isRange := strings.Cut(text, ":")
	if !isRange {
		i, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("error parsing index %q: %w", text, err)
		}
		return Index(i), nil
	}

	if strings.Contains(after, ":") {
		return nil, fmt.Errorf("%w: stepped range %q", ErrUnsupportedSelector, text)
	}

	r := All()
	if before = strings.TrimSpace(before); before != "" {
		start, err := strconv.Atoi(before)
		if err != nil {
			return nil, fmt.Errorf("error parsing range start %q: %w", before, err)
		}
		r.Start = start
	}
	if after = strings.TrimSpace(after); after != "" {
		stop, err := strconv.Atoi(after)
		if err != nil {
			return nil, fmt.Errorf("error parsing range stop %q: %w", after, err)
		}
		r.Stop = stop
	}
	return r, nil
}
