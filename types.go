// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package eeghdf reads EEG recordings stored in the eeghdf hierarchical
// container format and converts their raw samples to physical units.
package eeghdf

type Version int

const (
	// Version1 is the eeghdf layout with a single waveform record.
	Version1 Version = 1
)

// Fixed unit-conversion contracts of the format.
const (
	// TicksPerSecond is the number of 100ns annotation ticks in one second.
	TicksPerSecond = 10_000_000
	// DaysPerYear converts the stored patient age in days to years.
	DaysPerYear = 365
	// ZeroOffsetThreshold is the largest offset magnitude, in raw units, that
	// is still treated as zero when selecting the physical view.
	ZeroOffsetThreshold = 1.0
)

// Names of groups, attributes and datasets in the container.
const (
	RecordGroup  = "record-0"
	PatientGroup = "patient"

	AttrPatientAgeDays          = "patient_age_days"
	AttrStartISODateTime        = "start_isodatetime"
	AttrEndISODateTime          = "end_isodatetime"
	AttrNumberChannels          = "number_channels"
	AttrNumberSamplesPerChannel = "number_samples_per_channel"
	AttrSampleFrequency         = "sample_frequency"

	DatasetSignals            = "signals"
	DatasetSignalLabels       = "signal_labels"
	DatasetPhysicalDimensions = "physical_dimensions"
	DatasetPhysicalMins       = "signal_physical_mins"
	DatasetPhysicalMaxs       = "signal_physical_maxs"
	DatasetDigitalMins        = "signal_digital_mins"
	DatasetDigitalMaxs        = "signal_digital_maxs"

	AnnotationsGroup      = "edf_annotations"
	DatasetAnnotationText = "texts"
	DatasetAnnotationTime = "starts_100ns"
)

// Metadata holds the record and patient attributes read at open.
type Metadata struct {
	AgeYears                float64        // Patient age at the time of recording
	StartISODateTime        string         // Recording start as stored
	EndISODateTime          string         // Recording end as stored
	NumberChannels          int            `validate:"gt=0"`
	NumberSamplesPerChannel int            `validate:"gte=0"`
	SampleFrequency         float64        `validate:"gt=0"`
	ElectrodeLabels         []string       // One label per channel (e.g. EEG Fp1-REF)
	Patient                 map[string]any // Attributes of the patient group
}

// Annotation is a time-stamped text annotation.
type Annotation struct {
	Text         string
	Start100ns   int64   // Start in 100ns ticks
	StartSeconds float64 // Start in seconds
}

// AnnotationItem pairs decoded text with its start time in seconds.
type AnnotationItem struct {
	Text         string
	StartSeconds float64
}
