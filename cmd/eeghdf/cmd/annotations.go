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
	"text/tabwriter"

	"github.com/OpenPSG/eeghdf"
	"github.com/spf13/cobra"
)

type annotationRow struct {
	Start      float64 `json:"start_seconds" yaml:"start_seconds"`
	Start100ns int64   `json:"start_100ns" yaml:"start_100ns"`
	Text       string  `json:"text" yaml:"text"`
}

func newAnnotationsCmd() *cobra.Command {
	annotationsCmd := &cobra.Command{
		Use:   "annotations <file>",
		Short: "List recording annotations",
		Long: `List the time-stamped annotations of a recording, optionally filtered by a
regular expression.

Example:
  eeghdf annotations study.eeg.h5 --grep seizure`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, _ := cmd.Flags().GetString("grep")
			caseSensitive, _ := cmd.Flags().GetBool("case-sensitive")

			return withRecord(cmd, args[0], func(s *session, r *eeghdf.Record) error {
				annotations := r.Annotations()
				if pattern != "" {
					var err error
					if annotations, err = r.AnnotationsContaining(pattern, caseSensitive); err != nil {
						return err
					}
				}

				rows := make([]annotationRow, len(annotations))
				for i, an := range annotations {
					rows[i] = annotationRow{Start: an.StartSeconds, Start100ns: an.Start100ns, Text: an.Text}
				}

				return render(cmd.OutOrStdout(), s.cfg.Output, rows, func(tw *tabwriter.Writer) {
					if len(rows) == 0 {
						fmt.Fprintln(tw, "No annotations found")
						return
					}
					fmt.Fprintln(tw, "START (S)\tSTART (100NS)\tTEXT")
					for _, row := range rows {
						fmt.Fprintf(tw, "%s\t%d\t%s\n", formatFloat(row.Start, s.cfg.Precision), row.Start100ns, row.Text)
					}
				})
			})
		},
	}

	annotationsCmd.Flags().StringP("grep", "g", "", "Only show annotations matching this regular expression")
	annotationsCmd.Flags().Bool("case-sensitive", false, "Match the pattern case-sensitively")

	return annotationsCmd
}
