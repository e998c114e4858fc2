package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/tide-data-etl/internal/adapter/csvfile"
	kafkaadapter "github.com/couchcryptid/tide-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/pipeline"
)

func newRunCmd(opts *cliOptions) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, extract and reshape in one pass",
		Long: `Run performs a single pipeline run: load the page (downloading it when the
saved copy is missing or older than $CACHE_MAX_AGE), write the wide CSV,
then write the long CSV. Readings are also published to Kafka when
$KAFKA_ENABLED is true.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg

			loaders := []pipeline.BatchLoader{csvfile.NewLongSink(cfg.LongCSV)}
			if cfg.KafkaEnabled {
				writer := kafkaadapter.NewWriter(cfg, opts.logger, opts.metrics)
				defer writer.Close()
				loaders = append(loaders, writer)
			}

			stages := pipeline.Stages{
				Fetcher:     opts.pageFetcher(cfg.SourceURL, cfg.HTMLPath, !offline),
				Transformer: pipeline.NewTransformer(domain.NewReshaper(cfg.Year, cfg.Location), opts.logger),
				Wide:        csvfile.NewWideSink(cfg.WideCSV),
				Loaders:     loaders,
			}
			p := pipeline.New(stages, opts.clock, opts.logger, opts.metrics, 0)

			status, err := p.RunOnce(cmd.Context())
			if errors.Is(err, domain.ErrNoData) {
				return noData(cmd, err, "page produced no "+noDataStage(status))
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d rows to %s, %d readings to %s (page from %s)\n",
				status.RunID, status.Rows, cfg.WideCSV, status.Readings, cfg.LongCSV, status.PageSource)
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "use only the saved page, never the network")
	return cmd
}

func noDataStage(s domain.RunStatus) string {
	if s.Rows == 0 {
		return "table rows"
	}
	return "readings"
}
