package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/tide-data-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/tide-data-etl/internal/domain"
)

func newFetchCmd(opts *cliOptions) *cobra.Command {
	var url, out string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the tide table page and save it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := stringOr(out, opts.cfg.HTMLPath)
			page, err := opts.pageFetcher(stringOr(url, opts.cfg.SourceURL), path, true).Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch page: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d bytes from %s to %s\n", len(page.Body), page.URL, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "page URL (default $TIDE_SOURCE_URL)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "HTML output path (default $TIDE_HTML_PATH)")
	return cmd
}

func newExtractCmd(opts *cliOptions) *cobra.Command {
	var htmlPath, out string
	var fetch bool

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract every daily table row from the saved page into the wide CSV",
		Long: `Extract reads the saved HTML page, collects every row of every table that
carries data cells, and writes them to the wide CSV with the header
month,day,t1,h1,...,t4,h4. Header rows and rows with fewer than
two cells are skipped. Nothing is written when no rows survive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fetcher := opts.pageFetcher(opts.cfg.SourceURL, stringOr(htmlPath, opts.cfg.HTMLPath), fetch)
			page, err := fetcher.FetchPage(cmd.Context())
			if err != nil {
				return fmt.Errorf("load page: %w", err)
			}

			rows, stats, err := domain.ExtractRows(bytes.NewReader(page.Body))
			if err != nil {
				return noData(cmd, err, "no table rows found in "+page.URL)
			}
			opts.logger.Debug("extracted rows", "tables", stats.Tables, "rows", stats.Rows, "skipped", stats.Skipped)

			path := stringOr(out, opts.cfg.WideCSV)
			if err := csvfile.WriteWide(path, rows); err != nil {
				return fmt.Errorf("write wide csv: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s (%d tables, %d rows skipped)\n",
				len(rows), path, stats.Tables, stats.SkippedTotal())
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "saved page path (default $TIDE_HTML_PATH)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "wide CSV output path (default $TIDE_WIDE_CSV)")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "download the page when the saved copy is missing or stale")
	return cmd
}

func newScriptCmd(opts *cliOptions) *cobra.Command {
	var htmlPath, out, name string
	var list bool

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Export an inline JavaScript data array from the saved page to CSV",
		Long: `Some HKO pages embed the table as a JavaScript array literal
(var data1 = [[...], ...];). script writes that array's rows to a CSV with
no header row. Use --list to see which arrays the page defines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := opts.pageFetcher("", stringOr(htmlPath, opts.cfg.HTMLPath), false).FetchPage(cmd.Context())
			if err != nil {
				return fmt.Errorf("load page: %w", err)
			}
			body := string(page.Body)

			if list {
				for _, n := range domain.ScriptArrayNames(body) {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}

			varName := stringOr(name, opts.cfg.ScriptVar)
			records, err := domain.ExtractScriptArray(body, varName)
			if err != nil {
				return err
			}
			path := stringOr(out, opts.cfg.ScriptCSV)
			if err := csvfile.WriteRecords(path, nil, records); err != nil {
				return noData(cmd, err, "script array "+varName+" is empty")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records from %s to %s\n", len(records), varName, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "saved page path (default $TIDE_HTML_PATH)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "CSV output path (default $TIDE_SCRIPT_CSV)")
	cmd.Flags().StringVar(&name, "var", "", "JavaScript variable name (default $TIDE_SCRIPT_VAR)")
	cmd.Flags().BoolVar(&list, "list", false, "list array variables defined in the page and exit")
	return cmd
}
