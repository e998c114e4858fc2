// Package csvfile reads and writes the wide and long tide CSV files.
// Writes are atomic and never create a file for an empty data set.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/fsutil"
)

// WriteWide writes rows under domain.WideHeader. Cell text is written
// verbatim. Returns domain.ErrNoData without touching path when rows is empty.
func WriteWide(path string, rows []domain.TableRow) error {
	if len(rows) == 0 {
		return domain.ErrNoData
	}
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Fields()
	}
	return WriteRecords(path, domain.WideHeader, records)
}

// WriteLong writes readings under domain.LongHeader in the order given.
// Returns domain.ErrNoData without touching path when readings is empty.
func WriteLong(path string, readings []domain.Reading) error {
	if len(readings) == 0 {
		return domain.ErrNoData
	}
	records := make([][]string, len(readings))
	for i, r := range readings {
		records[i] = r.Record()
	}
	return WriteRecords(path, domain.LongHeader, records)
}

// WriteRecords writes an optional header followed by records.
func WriteRecords(path string, header []string, records [][]string) error {
	if len(records) == 0 {
		return domain.ErrNoData
	}
	err := fsutil.WriteAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if header != nil {
			if err := cw.Write(header); err != nil {
				return err
			}
		}
		if err := cw.WriteAll(records); err != nil {
			return err
		}
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadWide loads a wide CSV. Columns are matched by header name, so extra
// columns are ignored and missing ones read as empty.
func ReadWide(path string) ([]domain.TableRow, error) {
	header, records, err := readAll(path)
	if err != nil {
		return nil, err
	}

	idx, err := columnIndex(header, domain.WideHeader[:2])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	rows := make([]domain.TableRow, 0, len(records))
	for _, rec := range records {
		fields := make([]string, domain.WideColumns)
		for i, name := range domain.WideHeader {
			if col, ok := idx[name]; ok && col < len(rec) {
				fields[i] = rec[col]
			}
		}
		rows = append(rows, domain.TableRowFromFields(fields))
	}
	return rows, nil
}

// ReadLong loads a long CSV, interpreting timestamps in loc.
func ReadLong(path string, loc *time.Location) ([]domain.Reading, error) {
	header, records, err := readAll(path)
	if err != nil {
		return nil, err
	}

	idx, err := columnIndex(header, domain.LongHeader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	readings := make([]domain.Reading, 0, len(records))
	for n, rec := range records {
		ordered := make([]string, len(domain.LongHeader))
		for i, name := range domain.LongHeader {
			if col := idx[name]; col < len(rec) {
				ordered[i] = rec[col]
			}
		}
		r, err := domain.ParseReadingRecord(ordered, loc)
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, n+2, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

func readAll(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("read %s: %w", path, domain.ErrNoData)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return header, records, nil
}

func columnIndex(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return idx, nil
}

// WideSink persists extracted rows to a fixed wide CSV path.
type WideSink struct {
	path string
}

// NewWideSink creates a WideSink writing to path.
func NewWideSink(path string) *WideSink {
	return &WideSink{path: path}
}

// SaveRows writes rows to the sink's path.
func (s *WideSink) SaveRows(_ context.Context, rows []domain.TableRow) error {
	return WriteWide(s.path, rows)
}

// LongSink loads reading batches into a fixed long CSV path.
type LongSink struct {
	path string
}

// NewLongSink creates a LongSink writing to path.
func NewLongSink(path string) *LongSink {
	return &LongSink{path: path}
}

// LoadBatch replaces the long CSV with the batch's readings.
func (s *LongSink) LoadBatch(_ context.Context, batch domain.ReadingBatch) error {
	return WriteLong(s.path, batch.Readings)
}

// Name identifies the sink in logs.
func (s *LongSink) Name() string { return "csv:" + s.path }
