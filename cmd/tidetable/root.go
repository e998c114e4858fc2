package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/tide-data-etl/internal/adapter/hko"
	"github.com/couchcryptid/tide-data-etl/internal/config"
	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/observability"
)

// cliOptions carries global flag values and the state built from them
// before any subcommand runs.
type cliOptions struct {
	verbose bool
	quiet   bool
	noColor bool

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{clock: clockwork.NewRealClock()}

	root := &cobra.Command{
		Use:   "tidetable",
		Short: "Extract and reshape Hong Kong Observatory tide tables",
		Long: `tidetable downloads a Hong Kong Observatory (HKO) predicted tide table
page, extracts every daily row into a wide CSV (month, day and four time/height pairs), and
reshapes that into a long CSV with one timestamped height per line.

Paths and the source URL default to the same environment variables the
service reads (TIDE_SOURCE_URL, TIDE_HTML_PATH, TIDE_WIDE_CSV, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return exitError(ExitInvalidArgs, "tidetable: %v", err)
			}
			opts.cfg = cfg
			opts.logger = newCLILogger(cmd.ErrOrStderr(), opts.verbose, opts.quiet)
			opts.metrics = observability.NewMetricsWithRegistry(prometheus.NewRegistry())
			if opts.noColor {
				color.NoColor = true
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only log warnings and errors")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newFetchCmd(opts),
		newExtractCmd(opts),
		newScriptCmd(opts),
		newReshapeCmd(opts),
		newSummarizeCmd(opts),
		newRunCmd(opts),
		newValidateCmd(opts),
	)
	return root
}

// newCLILogger writes text logs to w. The service logs JSON to stdout; the
// CLI keeps stdout for command output.
func newCLILogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelWarn
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// pageFetcher returns a fetcher backed by the local HTML copy. With network
// set it also downloads from url when the copy is missing or stale.
func (o *cliOptions) pageFetcher(url, htmlPath string, network bool) *hko.CachedFetcher {
	var inner domain.PageFetcher
	if network {
		inner = hko.NewClient(url, o.cfg.FetchTimeout, o.cfg.FetchRetries, o.logger, o.metrics)
	}
	return hko.NewCachedFetcher(inner, htmlPath, o.cfg.CacheMaxAge, o.clock, o.logger, o.metrics)
}

// noData reports an empty result as a warning. Nothing is written in that
// case, and the command still exits 0.
func noData(cmd *cobra.Command, err error, what string) error {
	if errors.Is(err, domain.ErrNoData) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s; nothing written\n", color.YellowString("warning"), what)
		return nil
	}
	return err
}

func stringOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func intOr(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}
