package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/observability"
)

var hkt = time.FixedZone("HKT", 8*60*60)

type recordingWriter struct {
	msgs []kafkago.Message
	err  error
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error { return nil }

func testBatch() domain.ReadingBatch {
	return domain.ReadingBatch{
		RunID:      "run-1",
		ReshapedAt: time.Date(2023, 3, 20, 8, 0, 0, 0, time.UTC),
		Readings: []domain.Reading{
			{DateTime: time.Date(2023, 3, 15, 5, 31, 0, 0, hkt), TideM: 1.2, Pair: 1, Month: 3, Day: 15},
			{DateTime: time.Date(2023, 3, 15, 11, 45, 0, 0, hkt), TideM: 0.4, Pair: 2, Month: 3, Day: 15},
		},
	}
}

func testWriter(mw messageWriter) *Writer {
	return &Writer{
		writer:  mw,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: observability.NewMetricsForTesting(),
	}
}

func TestSerializeToMessage(t *testing.T) {
	batch := testBatch()

	msg, err := serializeToMessage(batch, batch.Readings[0])
	require.NoError(t, err)

	assert.Equal(t, []byte("2023-03-15T05:31#1"), msg.Key)
	assert.Equal(t, batch.ReshapedAt, msg.Time)

	var got domain.Reading
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.True(t, got.DateTime.Equal(batch.Readings[0].DateTime))
	assert.Equal(t, 1.2, got.TideM)
	assert.Contains(t, string(msg.Value), `"datetime":"2023-03-15T05:31:00+08:00"`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "reshaped_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2023-03-20T08:00:00Z"), msg.Headers[1].Value)
}

func TestSerializeToMessage_Unencodable(t *testing.T) {
	batch := testBatch()
	r := batch.Readings[0]
	r.TideM = math.NaN()

	_, err := serializeToMessage(batch, r)
	require.Error(t, err)
}

func TestWriter_LoadBatch(t *testing.T) {
	rec := &recordingWriter{}
	w := testWriter(rec)

	require.NoError(t, w.LoadBatch(context.Background(), testBatch()))

	require.Len(t, rec.msgs, 2)
	assert.Equal(t, []byte("2023-03-15T11:45#2"), rec.msgs[1].Key)
	assert.Equal(t, 2.0, testutil.ToFloat64(w.metrics.ReadingsPublished))
}

func TestWriter_LoadBatch_Empty(t *testing.T) {
	rec := &recordingWriter{}
	require.NoError(t, testWriter(rec).LoadBatch(context.Background(), domain.ReadingBatch{}))
	assert.Empty(t, rec.msgs)
}

func TestWriter_LoadBatch_Error(t *testing.T) {
	boom := errors.New("broker down")
	w := testWriter(&recordingWriter{err: boom})

	err := w.LoadBatch(context.Background(), testBatch())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0.0, testutil.ToFloat64(w.metrics.ReadingsPublished))
}
