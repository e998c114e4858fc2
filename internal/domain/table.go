package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WideColumns is the fixed number of fields in an extracted table row.
const WideColumns = 10

// PairsPerDay is the maximum number of tide events recorded for one day.
const PairsPerDay = 4

// DateTimeLayout is the timestamp format written to the long CSV.
const DateTimeLayout = "2006-01-02T15:04:05"

var (
	// WideHeader is the header row of the wide CSV.
	WideHeader = []string{"month", "day", "t1", "h1", "t2", "h2", "t3", "h3", "t4", "h4"}

	// LongHeader is the header row of the long CSV.
	LongHeader = []string{"datetime", "tide_m", "pair", "month", "day"}
)

// TidePair is one (time, height) slot of a wide row, kept as raw text.
type TidePair struct {
	Time   string
	Height string
}

// Blank reports whether either half of the pair is missing.
func (p TidePair) Blank() bool {
	return strings.TrimSpace(p.Time) == "" || strings.TrimSpace(p.Height) == ""
}

// TableRow is one calendar day of a tide table in wide form.
type TableRow struct {
	Month string
	Day   string
	Pairs [PairsPerDay]TidePair
}

// TableRowFromFields builds a TableRow from cell values, padding missing
// trailing fields with empty strings and ignoring fields past WideColumns.
func TableRowFromFields(fields []string) TableRow {
	padded := make([]string, WideColumns)
	copy(padded, fields)

	row := TableRow{Month: padded[0], Day: padded[1]}
	for i := range row.Pairs {
		row.Pairs[i] = TidePair{Time: padded[2+2*i], Height: padded[3+2*i]}
	}
	return row
}

// Fields returns the row as WideColumns strings in WideHeader order.
func (r TableRow) Fields() []string {
	out := make([]string, 0, WideColumns)
	out = append(out, r.Month, r.Day)
	for _, p := range r.Pairs {
		out = append(out, p.Time, p.Height)
	}
	return out
}

// Reading is a single tide event in long form.
type Reading struct {
	DateTime time.Time `json:"datetime"`
	TideM    float64   `json:"tide_m"`
	Pair     int       `json:"pair"`
	Month    int       `json:"month"`
	Day      int       `json:"day"`
}

// Record returns the reading as CSV fields in LongHeader order.
func (r Reading) Record() []string {
	return []string{
		r.DateTime.Format(DateTimeLayout),
		strconv.FormatFloat(r.TideM, 'f', -1, 64),
		strconv.Itoa(r.Pair),
		strconv.Itoa(r.Month),
		strconv.Itoa(r.Day),
	}
}

// ParseReadingRecord is the inverse of Reading.Record. Timestamps are
// interpreted in loc.
func ParseReadingRecord(rec []string, loc *time.Location) (Reading, error) {
	if len(rec) != len(LongHeader) {
		return Reading{}, fmt.Errorf("parse reading: want %d fields, got %d", len(LongHeader), len(rec))
	}

	dt, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(rec[0]), loc)
	if err != nil {
		return Reading{}, fmt.Errorf("parse reading datetime %q: %w", rec[0], err)
	}
	tide, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("parse reading tide_m %q: %w", rec[1], err)
	}
	ints := make([]int, 3)
	for i, name := range LongHeader[2:] {
		v, err := strconv.Atoi(strings.TrimSpace(rec[2+i]))
		if err != nil {
			return Reading{}, fmt.Errorf("parse reading %s %q: %w", name, rec[2+i], err)
		}
		ints[i] = v
	}

	return Reading{
		DateTime: dt,
		TideM:    tide,
		Pair:     ints[0],
		Month:    ints[1],
		Day:      ints[2],
	}, nil
}

// ReadingBatch is the output of one reshape run, handed to loaders.
type ReadingBatch struct {
	RunID      string
	ReshapedAt time.Time
	Readings   []Reading
}
