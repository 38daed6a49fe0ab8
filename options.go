// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package eeghdf

import "go.uber.org/zap"

// Option configures a Record.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

func defaultOptions() *options {
	return &options{
		logger: zap.NewNop(),
	}
}

// WithLogger sets the logger used for open and lazy-load diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
