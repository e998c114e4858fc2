package pipeline

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
)

// TideTransformer implements Transformer using the domain extractor and
// reshaper.
type TideTransformer struct {
	reshaper *domain.Reshaper
	logger   *slog.Logger
}

// NewTransformer creates a TideTransformer anchoring readings with reshaper.
func NewTransformer(reshaper *domain.Reshaper, logger *slog.Logger) *TideTransformer {
	return &TideTransformer{
		reshaper: reshaper,
		logger:   logger,
	}
}

func (t *TideTransformer) Extract(_ context.Context, page domain.Page) ([]domain.TableRow, domain.ExtractStats, error) {
	rows, stats, err := domain.ExtractRows(bytes.NewReader(page.Body))
	if err == nil && stats.SkippedTotal() > 0 {
		t.logger.Debug("rows skipped during extraction", "skipped", stats.Skipped, "source", page.URL)
	}
	return rows, stats, err
}

func (t *TideTransformer) Reshape(_ context.Context, rows []domain.TableRow) ([]domain.Reading, domain.ReshapeStats, error) {
	readings, stats, err := t.reshaper.Reshape(rows)
	for reason, n := range stats.Skipped {
		if reason == domain.SlotSkipBlank {
			continue
		}
		t.logger.Debug("slots skipped during reshape", "reason", reason, "count", n, "year", t.reshaper.Year())
	}
	return readings, stats, err
}
