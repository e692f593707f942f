package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sibexico/HexPager/pager"
)

func newInspectCmd() *cobra.Command {
	var (
		tracePath string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load a trace and summarize it without simulating.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := pager.NewLogger(logLevel, cmd.ErrOrStderr())

			trace, err := pager.LoadTraceFrom(pager.FileSource{Path: tracePath}, logger)
			if err != nil {
				return err
			}

			writeTraceSummary(cmd, tracePath, trace)
			return nil
		},
	}

	cmd.Flags().StringVar(&tracePath, "trace", "", "Trace file to inspect")
	cmd.Flags().StringVar(&logLevel, "log-level", "error", "Log level (debug, info, warn, error)")
	cmd.MarkFlagRequired("trace")

	return cmd
}

func writeTraceSummary(cmd *cobra.Command, name string, trace *pager.Trace) {
	out := cmd.OutOrStdout()

	writes := 0
	for _, ref := range trace.References {
		if ref.Write {
			writes++
		}
	}

	fmt.Fprintf(out, "Trace: %s\n", name)
	fmt.Fprintf(out, "Page size: %d bytes\n", trace.PageSize)
	fmt.Fprintf(out, "Matrix: %d x %d\n", trace.Rows, trace.Cols)
	fmt.Fprintf(out, "Virtual pages: %d\n", trace.NumPages)
	if trace.HasNR {
		fmt.Fprintf(out, "Declared references: %d\n", trace.DeclaredNR)
	} else {
		fmt.Fprintln(out, "Declared references: n/a")
	}
	fmt.Fprintf(out, "Valid references: %d (%d reads, %d writes)\n",
		len(trace.References), len(trace.References)-writes, writes)
	fmt.Fprintf(out, "Distinct pages: %d\n", trace.DistinctPages())
	fmt.Fprintf(out, "Warnings: %d\n", len(trace.Warnings))
	for _, w := range trace.Warnings {
		fmt.Fprintf(out, "  %s: %s\n", w.Code, w.Error())
	}
}
