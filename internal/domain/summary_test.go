package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	readings := []Reading{
		{DateTime: at(time.January, 1, 5, 12), TideM: 1.9},
		{DateTime: at(time.January, 1, 13, 4), TideM: 0.6},
		{DateTime: at(time.February, 3, 5, 40), TideM: 2.3},
	}

	s, err := Summarize(readings)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 0.6, s.MinM)
	assert.Equal(t, 2.3, s.MaxM)
	assert.Equal(t, 1.6, s.MeanM)
	assert.Equal(t, "2023-01-01T05:12:00", s.First)
	assert.Equal(t, "2023-02-03T05:40:00", s.Last)

	require.Len(t, s.Monthly, 2)
	assert.Equal(t, GroupStats{Key: 1, Count: 2, Min: 0.6, Max: 1.9, Mean: 1.25}, s.Monthly[0])
	assert.Equal(t, GroupStats{Key: 2, Count: 1, Min: 2.3, Max: 2.3, Mean: 2.3}, s.Monthly[1])

	require.Len(t, s.Hourly, 2)
	assert.Equal(t, 5, s.Hourly[0].Key)
	assert.Equal(t, 2.1, s.Hourly[0].Mean)
	assert.Equal(t, 13, s.Hourly[1].Key)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil)
	assert.ErrorIs(t, err, ErrNoData)
}
