// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/OpenPSG/eeghdf"
	"github.com/spf13/cobra"
)

type channelInfo struct {
	Label       string  `json:"label" yaml:"label"`
	Unit        string  `json:"unit" yaml:"unit"`
	PhysicalMin float64 `json:"physical_min" yaml:"physical_min"`
	PhysicalMax float64 `json:"physical_max" yaml:"physical_max"`
	DigitalMin  float64 `json:"digital_min" yaml:"digital_min"`
	DigitalMax  float64 `json:"digital_max" yaml:"digital_max"`
}

type infoReport struct {
	File              string         `json:"file" yaml:"file"`
	AgeYears          float64        `json:"age_years" yaml:"age_years"`
	Start             string         `json:"start" yaml:"start"`
	End               string         `json:"end" yaml:"end"`
	Channels          int            `json:"channels" yaml:"channels"`
	SamplesPerChannel int            `json:"samples_per_channel" yaml:"samples_per_channel"`
	SampleFrequency   float64        `json:"sample_frequency" yaml:"sample_frequency"`
	DurationSeconds   float64        `json:"duration_seconds" yaml:"duration_seconds"`
	Annotations       int            `json:"annotations" yaml:"annotations"`
	Calibration       string         `json:"calibration" yaml:"calibration"`
	Patient           map[string]any `json:"patient" yaml:"patient"`
	ChannelInfo       []channelInfo  `json:"channel_info" yaml:"channel_info"`
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show recording metadata",
		Long: `Show the patient, timing and per-channel calibration metadata of a recording.

Example:
  eeghdf info study.eeg.h5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecord(cmd, args[0], func(s *session, r *eeghdf.Record) error {
				report, err := buildInfo(args[0], r)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), s.cfg.Output, report, func(tw *tabwriter.Writer) {
					printInfoTable(tw, report, s.cfg.Precision)
				})
			})
		},
	}
}

func buildInfo(path string, r *eeghdf.Record) (*infoReport, error) {
	report := &infoReport{
		File:              path,
		AgeYears:          r.AgeYears,
		Start:             r.StartISODateTime,
		End:               r.EndISODateTime,
		Channels:          r.NumberChannels,
		SamplesPerChannel: r.NumberSamplesPerChannel,
		SampleFrequency:   r.SampleFrequency,
		DurationSeconds:   float64(r.NumberSamplesPerChannel) / r.SampleFrequency,
		Annotations:       len(r.Annotations()),
		Patient:           make(map[string]any, len(r.Patient)),
	}
	for k, v := range r.Patient {
		report.Patient[k] = printable(v)
	}

	units, err := r.PhysicalDimensions()
	if err != nil {
		return nil, err
	}

	// Extrema are shown even when they cannot be inverted.
	pmin, err := r.SignalPhysicalMins()
	if err != nil {
		return nil, err
	}
	pmax, err := r.SignalPhysicalMaxs()
	if err != nil {
		return nil, err
	}
	dmin, err := r.SignalDigitalMins()
	if err != nil {
		return nil, err
	}
	dmax, err := r.SignalDigitalMaxs()
	if err != nil {
		return nil, err
	}

	for c, label := range r.Labels() {
		ci := channelInfo{Label: label}
		if c < len(units) {
			ci.Unit = units[c]
		}
		if c < len(pmin) && c < len(pmax) && c < len(dmin) && c < len(dmax) {
			ci.PhysicalMin, ci.PhysicalMax = pmin[c], pmax[c]
			ci.DigitalMin, ci.DigitalMax = dmin[c], dmax[c]
		}
		report.ChannelInfo = append(report.ChannelInfo, ci)
	}

	p, err := r.PhysicalSignals()
	switch {
	case err != nil:
		report.Calibration = fmt.Sprintf("invalid: %v", err)
	case p.ZeroOffset():
		report.Calibration = "zero-offset"
	default:
		report.Calibration = fmt.Sprintf("offset (max |offset| %g)", p.Calibration().MaxAbsOffset())
	}

	return report, nil
}

func printInfoTable(tw *tabwriter.Writer, report *infoReport, precision int) {
	fmt.Fprintf(tw, "File:\t%s\n", report.File)
	fmt.Fprintf(tw, "Age:\t%s years\n", formatFloat(report.AgeYears, 1))
	fmt.Fprintf(tw, "Start:\t%s\n", report.Start)
	fmt.Fprintf(tw, "End:\t%s\n", report.End)
	fmt.Fprintf(tw, "Channels:\t%d\n", report.Channels)
	fmt.Fprintf(tw, "Samples:\t%d per channel\n", report.SamplesPerChannel)
	fmt.Fprintf(tw, "Frequency:\t%s Hz\n", formatFloat(report.SampleFrequency, precision))
	fmt.Fprintf(tw, "Duration:\t%s s\n", formatFloat(report.DurationSeconds, precision))
	fmt.Fprintf(tw, "Annotations:\t%d\n", report.Annotations)
	fmt.Fprintf(tw, "Calibration:\t%s\n", report.Calibration)

	if len(report.Patient) > 0 {
		keys := make([]string, 0, len(report.Patient))
		for k := range report.Patient {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "Patient %s:\t%v\n", strings.ReplaceAll(k, "_", " "), report.Patient[k])
		}
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "#\tLABEL\tUNIT\tPHYSICAL MIN\tPHYSICAL MAX\tDIGITAL MIN\tDIGITAL MAX")
	for c, ci := range report.ChannelInfo {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%g\t%g\t%g\n",
			c, ci.Label, ci.Unit, ci.PhysicalMin, ci.PhysicalMax, ci.DigitalMin, ci.DigitalMax)
	}
}
