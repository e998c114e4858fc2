package pipeline_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadSamplePage(t *testing.T) domain.Page {
	t.Helper()
	path := filepath.Join("testdata", "eCLKtext2023_sample.html")
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	return domain.Page{URL: path, Body: body, Source: domain.PageFromCache}
}

func TestTideTransformer_SamplePage(t *testing.T) {
	hkt := time.FixedZone("HKT", 8*60*60)
	tfm := pipeline.NewTransformer(domain.NewReshaper(2023, hkt), discardLogger())
	ctx := context.Background()

	rows, xstats, err := tfm.Extract(ctx, loadSamplePage(t))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, 2, xstats.Tables)
	assert.Equal(t, 3, xstats.Skipped[domain.RowSkipHeader])
	assert.Equal(t, 1, xstats.Skipped[domain.RowSkipShort])

	assert.Equal(t, []string{"01", "02", "0548", "2.0", "1341", "0.5", "2035", "1.6", "", ""}, rows[1].Fields())
	assert.Equal(t, "23", rows[4].Pairs[0].Time)

	readings, rstats, err := tfm.Reshape(ctx, rows)
	require.NoError(t, err)
	assert.Len(t, readings, 15)
	assert.Equal(t, 5, rstats.Skipped[domain.SlotSkipBlank])

	first, last := readings[0], readings[len(readings)-1]
	assert.Equal(t, time.Date(2023, 1, 1, 5, 12, 0, 0, hkt), first.DateTime)
	assert.Equal(t, time.Date(2023, 12, 31, 6, 45, 0, 0, hkt), last.DateTime)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 23, 0, 0, hkt), readings[len(readings)-2].DateTime)

	var march15 []domain.Reading
	for _, r := range readings {
		if r.Month == 3 && r.Day == 15 {
			march15 = append(march15, r)
		}
	}
	require.Len(t, march15, 4)
	for i, want := range []float64{1.2, 0.4, 1.5, 0.3} {
		assert.Equal(t, want, march15[i].TideM)
		assert.Equal(t, i+1, march15[i].Pair)
	}
}

func TestTideTransformer_NoTables(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.NewReshaper(2023, nil), discardLogger())

	_, _, err := tfm.Extract(context.Background(), domain.Page{Body: []byte("<html><body>maintenance</body></html>")})
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestTideTransformer_SkippedSlotsLogAtDebug(t *testing.T) {
	rows := []domain.TableRow{domain.TableRowFromFields([]string{"03", "15", "9999", "1.2", "1145", "x"})}

	for _, tc := range []struct {
		level  slog.Level
		logged bool
	}{
		{slog.LevelInfo, false},
		{slog.LevelDebug, true},
	} {
		t.Run(tc.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tc.level}))
			tfm := pipeline.NewTransformer(domain.NewReshaper(2023, nil), logger)

			_, stats, err := tfm.Reshape(context.Background(), rows)
			require.ErrorIs(t, err, domain.ErrNoData)
			assert.Equal(t, 1, stats.Skipped[domain.SlotSkipBadTime])
			assert.Equal(t, tc.logged, strings.Contains(buf.String(), "slots skipped during reshape"), buf.String())
			assert.NotContains(t, buf.String(), "level=WARN")
		})
	}
}
