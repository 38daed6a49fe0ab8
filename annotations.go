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
	"regexp"
	"unicode/utf8"
)

// DecodeAnnotationLists decodes the parallel annotation arrays into texts and
// their start ticks, both in storage order.
func DecodeAnnotationLists(texts [][]byte, starts100ns []int64) ([]string, []int64, error) {
	if len(texts) != len(starts100ns) {
		return nil, nil, fmt.Errorf("%w: %d annotation texts but %d start times",
			ErrMalformedRecord, len(texts), len(starts100ns))
	}

	decoded, err := decodeUTF8(AnnotationsGroup+"/"+DatasetAnnotationText, texts)
	if err != nil {
		return nil, nil, err
	}

	return decoded, append([]int64(nil), starts100ns...), nil
}

// DecodeAnnotationItems decodes the parallel annotation arrays into
// (text, seconds) pairs.
func DecodeAnnotationItems(texts [][]byte, starts100ns []int64) ([]AnnotationItem, error) {
	decoded, starts, err := DecodeAnnotationLists(texts, starts100ns)
	if err != nil {
		return nil, err
	}

	items := make([]AnnotationItem, len(decoded))
	for i := range decoded {
		items[i] = AnnotationItem{Text: decoded[i], StartSeconds: ticksToSeconds(starts[i])}
	}
	return items, nil
}

// DecodeAnnotations decodes the parallel annotation arrays into a filterable set.
func DecodeAnnotations(texts [][]byte, starts100ns []int64) (Annotations, error) {
	decoded, starts, err := DecodeAnnotationLists(texts, starts100ns)
	if err != nil {
		return nil, err
	}

	annotations := make(Annotations, len(decoded))
	for i := range decoded {
		annotations[i] = Annotation{
			Text:         decoded[i],
			Start100ns:   starts[i],
			StartSeconds: ticksToSeconds(starts[i]),
		}
	}
	return annotations, nil
}

// Annotations is an ordered annotation set.
type Annotations []Annotation

// Containing returns the annotations whose text matches the regular
// expression pattern, in their original order. Matching ignores case unless
// caseSensitive is set.
func (a Annotations) Containing(pattern string, caseSensitive bool) (Annotations, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("error compiling annotation pattern: %w", err)
	}

	matches := Annotations{}
	for _, an := range a {
		if re.MatchString(an.Text) {
			matches = append(matches, an)
		}
	}
	return matches, nil
}

// Texts returns the annotation texts.
func (a Annotations) Texts() []string {
	texts := make([]string, len(a))
	for i, an := range a {
		texts[i] = an.Text
	}
	return texts
}

func ticksToSeconds(ticks int64) float64 {
	return float64(ticks) / TicksPerSecond
}

func decodeUTF8(field string, raw [][]byte) ([]string, error) {
	out := make([]string, len(raw))
	for i, b := range raw {
		if !utf8.Valid(b) {
			return nil, &DecodeError{Field: field, Index: i}
		}
		out[i] = string(b)
	}
	return out, nil
}

func decodeASCII(field string, raw [][]byte) ([]string, error) {
	out := make([]string, len(raw))
	for i, b := range raw {
		for _, c := range b {
			if c >= utf8.RuneSelf {
				return nil, &DecodeError{Field: field, Index: i}
			}
		}
		out[i] = string(b)
	}
	return out, nil
}
