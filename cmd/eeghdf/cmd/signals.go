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
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/OpenPSG/eeghdf"
	"github.com/spf13/cobra"
)

type signalsReport struct {
	Selection string `json:"selection" yaml:"selection"`
	Shape     []int  `json:"shape" yaml:"shape"`
	Raw       bool   `json:"raw" yaml:"raw"`
	// Data is a scalar, a row or a list of rows depending on Shape.
	Data any `json:"data" yaml:"data"`
}

func newSignalsCmd() *cobra.Command {
	signalsCmd := &cobra.Command{
		Use:   "signals <file>",
		Short: "Print a block of samples",
		Long: `Print the samples addressed by a selector, in physical units unless --raw
is given. A selector is a channel index or range, optionally followed by a
sample index or range, e.g. "3", "0:4" or "0:4, 1000:1256". Negative values
count from the end.

Example:
  eeghdf signals study.eeg.h5 --select "0:2, 0:10"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("select")
			raw, _ := cmd.Flags().GetBool("raw")

			sel, err := eeghdf.ParseSelector(text)
			if err != nil {
				return err
			}

			return withRecord(cmd, args[0], func(s *session, r *eeghdf.Record) error {
				report := &signalsReport{Selection: text, Raw: raw}
				var cells [][]string

				if raw {
					a, err := r.RawSignals().Get(sel)
					if err != nil {
						return err
					}
					report.Shape = a.Shape()
					report.Data = shapeRaw(a)
					cells = rawCells(a)
				} else {
					p, err := r.PhysicalSignals()
					if err != nil {
						return err
					}
					a, err := p.Get(sel)
					if err != nil {
						return err
					}
					report.Shape = a.Shape()
					report.Data = shapePhysical(a)
					cells = physicalCells(a, s.cfg.Precision)
				}

				return render(cmd.OutOrStdout(), s.cfg.Output, report, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "# shape %v\n", report.Shape)
					for _, row := range cells {
						fmt.Fprintln(tw, strings.Join(row, "\t"))
					}
				})
			})
		},
	}

	signalsCmd.Flags().StringP("select", "s", "0, :", "Channels and samples to print")
	signalsCmd.Flags().Bool("raw", false, "Print raw integer samples instead of physical values")

	return signalsCmd
}

func shapePhysical(a *eeghdf.Array) any {
	switch a.Ndim() {
	case 0:
		return a.Scalar()
	case 1:
		return a.Data()
	default:
		return a.Rows()
	}
}

func shapeRaw(a *eeghdf.RawArray) any {
	switch a.Ndim() {
	case 0:
		return a.Scalar()
	case 1:
		return a.Data()
	default:
		rows := make([][]int32, a.Shape()[0])
		for i := range rows {
			rows[i] = a.Row(i)
		}
		return rows
	}
}

// physicalCells lays the values out one table row per channel.
func physicalCells(a *eeghdf.Array, precision int) [][]string {
	if a.Ndim() == 0 {
		return [][]string{{formatFloat(a.Scalar(), precision)}}
	}
	var cells [][]string
	for _, row := range a.Rows() {
		line := make([]string, len(row))
		for j, v := range row {
			line[j] = formatFloat(v, precision)
		}
		cells = append(cells, line)
	}
	return cells
}

func rawCells(a *eeghdf.RawArray) [][]string {
	if a.Ndim() == 0 {
		return [][]string{{strconv.Itoa(int(a.Scalar()))}}
	}
	n := 1
	if a.Ndim() == 2 {
		n = a.Shape()[0]
	}
	cells := make([][]string, n)
	for i := range cells {
		row := a.Row(i)
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = strconv.Itoa(int(v))
		}
	}
	return cells
}
