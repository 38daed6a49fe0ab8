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
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateMetadata checks the attribute bounds and that there is one
// electrode label per channel.
func validateMetadata(md *Metadata) error {
	if err := validate.Struct(md); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, formatFieldError(fe))
		}
		return fmt.Errorf("%w: %s", ErrMalformedRecord, strings.Join(msgs, "; "))
	}

	if len(md.ElectrodeLabels) != md.NumberChannels {
		return fmt.Errorf("%w: %d electrode labels for %d channels",
			ErrMalformedRecord, len(md.ElectrodeLabels), md.NumberChannels)
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
