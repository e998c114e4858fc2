package domain

import (
	"math"
	"sort"
)

// GroupStats aggregates tide heights for one month or hour bucket.
type GroupStats struct {
	Key   int     `json:"key" yaml:"key"`
	Count int     `json:"count" yaml:"count"`
	Min   float64 `json:"min_m" yaml:"min_m"`
	Max   float64 `json:"max_m" yaml:"max_m"`
	Mean  float64 `json:"mean_m" yaml:"mean_m"`
}

// Summary describes a long-form reading series.
type Summary struct {
	Count   int          `json:"count" yaml:"count"`
	MinM    float64      `json:"min_m" yaml:"min_m"`
	MaxM    float64      `json:"max_m" yaml:"max_m"`
	MeanM   float64      `json:"mean_m" yaml:"mean_m"`
	First   string       `json:"first" yaml:"first"`
	Last    string       `json:"last" yaml:"last"`
	Monthly []GroupStats `json:"monthly" yaml:"monthly"`
	Hourly  []GroupStats `json:"hourly" yaml:"hourly"`
}

type accumulator struct {
	count    int
	sum      float64
	min, max float64
}

func (a *accumulator) add(v float64) {
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.count++
	a.sum += v
}

func (a *accumulator) stats(key int) GroupStats {
	return GroupStats{Key: key, Count: a.count, Min: a.min, Max: a.max, Mean: round(a.sum / float64(a.count))}
}

// Summarize computes overall, per-month and per-hour statistics. Months and
// hours without readings are omitted. Returns ErrNoData for an empty series.
func Summarize(readings []Reading) (Summary, error) {
	if len(readings) == 0 {
		return Summary{}, ErrNoData
	}

	var all accumulator
	monthly := make(map[int]*accumulator)
	hourly := make(map[int]*accumulator)
	first, last := readings[0].DateTime, readings[0].DateTime

	for _, r := range readings {
		all.add(r.TideM)
		bucket(monthly, int(r.DateTime.Month())).add(r.TideM)
		bucket(hourly, r.DateTime.Hour()).add(r.TideM)
		if r.DateTime.Before(first) {
			first = r.DateTime
		}
		if r.DateTime.After(last) {
			last = r.DateTime
		}
	}

	return Summary{
		Count:   all.count,
		MinM:    all.min,
		MaxM:    all.max,
		MeanM:   round(all.sum / float64(all.count)),
		First:   first.Format(DateTimeLayout),
		Last:    last.Format(DateTimeLayout),
		Monthly: sortedStats(monthly),
		Hourly:  sortedStats(hourly),
	}, nil
}

func bucket(m map[int]*accumulator, key int) *accumulator {
	a, ok := m[key]
	if !ok {
		a = &accumulator{}
		m[key] = a
	}
	return a
}

func sortedStats(m map[int]*accumulator) []GroupStats {
	out := make([]GroupStats, 0, len(m))
	for k, a := range m {
		out = append(out, a.stats(k))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// round keeps means to millimetre precision.
func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
