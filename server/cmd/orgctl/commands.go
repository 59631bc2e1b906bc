package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
	"github.com/orgpulse/orgpulse/server/internal/analytics"
)

func newHeadcountCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "headcount",
		Short: "Show filled and authorized positions across the organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			hc, err := opts.client.Headcount(ctx)
			if err != nil {
				return fmt.Errorf("headcount: %w", err)
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, hc)
			}
			fmt.Fprintf(out, "Filled: %d\n", hc.Filled)
			fmt.Fprintf(out, "Total:  %d\n", hc.Total)
			return nil
		},
	}
}

func newDiagnosticsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics",
		Short: "List staffing and performance issues in tree order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			issues, err := opts.client.Diagnostics(ctx)
			if err != nil {
				return fmt.Errorf("diagnostics: %w", err)
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, issues)
			}
			if len(issues) == 0 {
				fmt.Fprintln(out, "No issues found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEVERITY\tTYPE\tUNIT\tMESSAGE")
			for _, is := range issues {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", is.Severity, is.Type, is.Unit, is.Message)
			}
			w.Flush()
			fmt.Fprintf(out, "\n%d issues\n", len(issues))
			return nil
		},
	}
}

func newPerformanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "performance <unit>",
		Short: "Score one unit's metrics against their targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			rep, err := opts.client.UnitPerformance(ctx, args[0])
			if err != nil {
				return fmt.Errorf("performance %q: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, rep)
			}
			printUnitReport(out, rep)
			return nil
		},
	}
}

func newUnitsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "Show the per-unit health table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			rows, err := opts.client.Units(ctx)
			if err != nil {
				return fmt.Errorf("units: %w", err)
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No organization defined.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "UNIT\tFILLED\tTOTAL\tVACANCY\tSCORE\tSTATUS")
			for _, r := range rows {
				fmt.Fprintf(w, "%s%s\t%d\t%d\t%s\t%s\t%s\n",
					strings.Repeat("  ", r.Depth), r.Unit,
					r.Filled, r.Total,
					formatPct(r.VacancyPct), formatScore(r.Score),
					r.Status,
				)
			}
			w.Flush()
			return nil
		},
	}
}

// --- output -----------------------------------------------------------------

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printUnitReport(out io.Writer, rep analytics.UnitReport) {
	fmt.Fprintf(out, "Unit:    %s\n", rep.Unit)
	fmt.Fprintf(out, "Score:   %s\n", rep.OverallScore)
	fmt.Fprintf(out, "Status:  %s\n", rep.OverallStatus)
	if len(rep.Metrics) == 0 {
		return
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "METRIC"
	for _, q := range orgtree.QuarterKeys {
		header += "\t" + strings.ToUpper(q)
	}
	fmt.Fprintln(w, header+"\tSCORE")
	for _, m := range rep.Metrics {
		line := m.Name
		for _, q := range orgtree.QuarterKeys {
			line += fmt.Sprintf("\t%g/%g", m.Actuals.Get(q), m.Targets.Get(q))
		}
		score, ok := analytics.MetricScore(m)
		line += "\t" + analytics.Score{Value: score, Valid: ok}.String()
		fmt.Fprintln(w, line)
	}
	w.Flush()
}

func formatPct(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", *p)
}

func formatScore(s *float64) string {
	if s == nil {
		return analytics.NoScore
	}
	return fmt.Sprintf("%.1f", *s)
}
