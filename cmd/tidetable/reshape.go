package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/tide-data-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/pipeline"
)

func newReshapeCmd(opts *cliOptions) *cobra.Command {
	var in, out string
	var year int

	cmd := &cobra.Command{
		Use:   "reshape",
		Short: "Reshape the wide CSV into one reading per line",
		Long: `Reshape reads the wide CSV and writes the long CSV with header
datetime,tide_m,pair,month,day. Each non-blank time/height pair becomes one reading
anchored in the configured year; blank or malformed pairs are skipped and
the output is sorted by datetime.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := stringOr(in, opts.cfg.WideCSV)
			rows, err := csvfile.ReadWide(src)
			if err != nil {
				return noData(cmd, err, src+" has no data rows")
			}

			reshaper := domain.NewReshaper(intOr(year, opts.cfg.Year), opts.cfg.Location)
			readings, stats, err := pipeline.NewTransformer(reshaper, opts.logger).Reshape(cmd.Context(), rows)
			if err != nil {
				return noData(cmd, err, "no readings in "+src)
			}

			path := stringOr(out, opts.cfg.LongCSV)
			if err := csvfile.WriteLong(path, readings); err != nil {
				return fmt.Errorf("write long csv: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d readings to %s (%d slots skipped)\n",
				len(readings), path, stats.SkippedTotal())
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "wide CSV input path (default $TIDE_WIDE_CSV)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "long CSV output path (default $TIDE_LONG_CSV)")
	cmd.Flags().IntVar(&year, "year", 0, "calendar year of the table (default $TIDE_YEAR)")
	return cmd
}

func newSummarizeCmd(opts *cliOptions) *cobra.Command {
	var in, format string

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Print height statistics for the long CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := stringOr(in, opts.cfg.LongCSV)
			readings, err := csvfile.ReadLong(src, opts.cfg.Location)
			if err != nil {
				return noData(cmd, err, src+" has no readings")
			}
			summary, err := domain.Summarize(readings)
			if err != nil {
				return noData(cmd, err, src+" has no readings")
			}

			w := cmd.OutOrStdout()
			switch format {
			case "text":
				return writeSummaryText(w, src, summary)
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			case "yaml":
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(summary); err != nil {
					return err
				}
				return enc.Close()
			default:
				return exitError(ExitInvalidArgs, "tidetable: unknown format %q (want text, json or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "long CSV input path (default $TIDE_LONG_CSV)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}

func writeSummaryText(w io.Writer, src string, s domain.Summary) error {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "%s\n", src)
	fmt.Fprintf(w, "  readings  %d\n", s.Count)
	fmt.Fprintf(w, "  span      %s .. %s\n", s.First, s.Last)
	fmt.Fprintf(w, "  height    min %.2f m  max %.2f m  mean %.3f m\n\n", s.MinM, s.MaxM, s.MeanM)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MONTH\tCOUNT\tMIN\tMAX\tMEAN")
	for _, g := range s.Monthly {
		fmt.Fprintf(tw, "%02d\t%d\t%.2f\t%.2f\t%.3f\n", g.Key, g.Count, g.Min, g.Max, g.Mean)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOUR\tCOUNT\tMIN\tMAX\tMEAN")
	for _, g := range s.Hourly {
		fmt.Fprintf(tw, "%02d\t%d\t%.2f\t%.2f\t%.3f\n", g.Key, g.Count, g.Min, g.Max, g.Mean)
	}
	return tw.Flush()
}
