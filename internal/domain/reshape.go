package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Slot skip reasons reported in ReshapeStats.
const (
	SlotSkipBlank     = "blank"
	SlotSkipBadTime   = "bad_time"
	SlotSkipBadHeight = "bad_height"
	SlotSkipBadDate   = "bad_date"
	SlotSkipNoLocal   = "no_local_time"
)

// ReshapeStats summarizes one reshape pass.
type ReshapeStats struct {
	Rows     int
	Readings int
	Skipped  map[string]int
}

func (s *ReshapeStats) skip(reason string, n int) {
	if n == 0 {
		return
	}
	if s.Skipped == nil {
		s.Skipped = make(map[string]int)
	}
	s.Skipped[reason] += n
}

// SkippedTotal returns the number of slots skipped for any reason.
func (s ReshapeStats) SkippedTotal() int {
	n := 0
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

// Reshaper converts wide rows into time-ordered readings for one year.
type Reshaper struct {
	year int
	loc  *time.Location
}

// NewReshaper creates a Reshaper that anchors readings to year in loc.
// A nil loc means UTC.
func NewReshaper(year int, loc *time.Location) *Reshaper {
	if loc == nil {
		loc = time.UTC
	}
	return &Reshaper{year: year, loc: loc}
}

// Year returns the calendar year readings are anchored to.
func (r *Reshaper) Year() int { return r.year }

// Reshape unpacks every valid (time, height) pair into a Reading and sorts
// the result by timestamp. Blank or malformed slots are skipped, as are all
// slots of a row whose month/day is not a real date. Equal timestamps keep
// row then slot order. Returns ErrNoData when nothing survives.
func (r *Reshaper) Reshape(rows []TableRow) ([]Reading, ReshapeStats, error) {
	stats := ReshapeStats{Rows: len(rows)}
	var out []Reading

	for _, row := range rows {
		month, day, ok := r.ParseDate(row.Month, row.Day)
		if !ok {
			filled := 0
			for _, p := range row.Pairs {
				if !p.Blank() {
					filled++
				}
			}
			stats.skip(SlotSkipBadDate, filled)
			stats.skip(SlotSkipBlank, PairsPerDay-filled)
			continue
		}

		for i, p := range row.Pairs {
			if p.Blank() {
				stats.skip(SlotSkipBlank, 1)
				continue
			}
			hour, minute, ok := parseHHMM(p.Time)
			if !ok {
				stats.skip(SlotSkipBadTime, 1)
				continue
			}
			height, ok := parseHeight(p.Height)
			if !ok {
				stats.skip(SlotSkipBadHeight, 1)
				continue
			}
			dt := time.Date(r.year, time.Month(month), day, hour, minute, 0, 0, r.loc)
			// Wall times inside a daylight-saving gap do not exist in loc.
			if dt.Day() != day || dt.Hour() != hour || dt.Minute() != minute {
				stats.skip(SlotSkipNoLocal, 1)
				continue
			}
			out = append(out, Reading{
				DateTime: dt,
				TideM:    height,
				Pair:     i + 1,
				Month:    month,
				Day:      day,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateTime.Before(out[j].DateTime)
	})
	stats.Readings = len(out)

	if len(out) == 0 {
		return nil, stats, ErrNoData
	}
	return out, stats, nil
}

// ParseDate validates month/day text against the reshaper's year, so that
// e.g. 02/29 is rejected outside leap years. Surrounding spaces are ignored.
func (r *Reshaper) ParseDate(monthText, dayText string) (int, int, bool) {
	month, errM := strconv.Atoi(strings.TrimSpace(monthText))
	day, errD := strconv.Atoi(strings.TrimSpace(dayText))
	if errM != nil || errD != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, false
	}
	t := time.Date(r.year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day {
		return 0, 0, false
	}
	return month, day, true
}

// parseHHMM splits a 1-4 digit clock string into hour and minute after
// left-padding it to four digits (e.g. "531" → 05:31).
func parseHHMM(hhmm string) (int, int, bool) {
	hhmm = strings.TrimSpace(hhmm)
	if hhmm == "" || len(hhmm) > 4 {
		return 0, 0, false
	}
	for _, c := range hhmm {
		if c < '0' || c > '9' {
			return 0, 0, false
		}
	}
	hhmm = strings.Repeat("0", 4-len(hhmm)) + hhmm

	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour > 23 || mins > 59 {
		return 0, 0, false
	}
	return hour, mins, true
}

func parseHeight(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
