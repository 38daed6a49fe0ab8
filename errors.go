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
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord       = errors.New("malformed record")
	ErrDegenerateCalibration = errors.New("degenerate calibration")
	ErrUnsupportedSelector   = errors.New("unsupported selector")
	ErrIndexOutOfRange       = errors.New("index out of range")
	ErrInvalidText           = errors.New("invalid text encoding")
)

// CalibrationError reports the channel whose calibration cannot be inverted.
type CalibrationError struct {
	Channel int
	Reason  string
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("channel %d: %s: %s", e.Channel, ErrDegenerateCalibration, e.Reason)
}

func (e *CalibrationError) Unwrap() error {
	return ErrDegenerateCalibration
}

// DecodeError reports a byte string that is not valid text.
type DecodeError struct {
	Field string // Dataset the string came from
	Index int    // Position within the dataset
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s[%d]: %s", e.Field, e.Index, ErrInvalidText)
}

func (e *DecodeError) Unwrap() error {
	return ErrInvalidText
}
