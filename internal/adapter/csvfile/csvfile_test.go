package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
)

func wideRows() []domain.TableRow {
	return []domain.TableRow{
		domain.TableRowFromFields([]string{"03", "15", "0531", "1.2", "1145", "0.4", "1758", "1.5", "2310", "0.3"}),
		domain.TableRowFromFields([]string{"03", "16", "0601", "1.3", "", "", "1830", "1.6"}),
	}
}

func TestWriteWide(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "wide.csv")

	require.NoError(t, WriteWide(path, wideRows()))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "month,day,t1,h1,t2,h2,t3,h3,t4,h4\n" +
		"03,15,0531,1.2,1145,0.4,1758,1.5,2310,0.3\n" +
		"03,16,0601,1.3,,,1830,1.6,,\n"
	assert.Equal(t, want, string(got))
}

func TestWriteWide_EmptyWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	err := WriteWide(path, nil)
	require.ErrorIs(t, err, domain.ErrNoData)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))
}

func TestWideRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.csv")
	require.NoError(t, WriteWide(path, wideRows()))

	got, err := ReadWide(path)
	require.NoError(t, err)
	if diff := cmp.Diff(wideRows(), got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReadWide_HeaderMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.csv")
	content := "\ufeffDay,Month,t1,h1,note\n15,03,0531,1.2,spring\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadWide(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "03", rows[0].Month)
	assert.Equal(t, "15", rows[0].Day)
	assert.Equal(t, domain.TidePair{Time: "0531", Height: "1.2"}, rows[0].Pairs[0])
	assert.True(t, rows[0].Pairs[3].Blank())
}

func TestReadWide_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadWide(filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ReadWide(empty)
	require.ErrorIs(t, err, domain.ErrNoData)

	noMonth := filepath.Join(dir, "nomonth.csv")
	require.NoError(t, os.WriteFile(noMonth, []byte("a,b\n1,2\n"), 0o644))
	_, err = ReadWide(noMonth)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "month"`)
}

func TestLongRoundTrip(t *testing.T) {
	hkt := time.FixedZone("HKT", 8*60*60)
	readings := []domain.Reading{
		{DateTime: time.Date(2023, 3, 15, 5, 31, 0, 0, hkt), TideM: 1.2, Pair: 1, Month: 3, Day: 15},
		{DateTime: time.Date(2023, 3, 15, 11, 45, 0, 0, hkt), TideM: 0.45, Pair: 2, Month: 3, Day: 15},
	}
	path := filepath.Join(t.TempDir(), "long.csv")

	require.NoError(t, WriteLong(path, readings))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"datetime,tide_m,pair,month,day\n"+
			"2023-03-15T05:31:00,1.2,1,3,15\n"+
			"2023-03-15T11:45:00,0.45,2,3,15\n",
		string(raw))

	got, err := ReadLong(path, hkt)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range readings {
		assert.True(t, readings[i].DateTime.Equal(got[i].DateTime))
		assert.Equal(t, readings[i].TideM, got[i].TideM)
		assert.Equal(t, readings[i].Pair, got[i].Pair)
	}
}

func TestReadLong_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.csv")
	content := "datetime,tide_m,pair,month,day\n2023-03-15T05:31:00,1.2,1,3,15\nnot-a-date,1.0,1,3,15\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := ReadLong(path, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestWriteRecords_NoHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data1.csv")

	require.NoError(t, WriteRecords(path, nil, [][]string{{"01", "01", "0512", "1.9"}, {"a,b", ""}}))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "01,01,0512,1.9\n\"a,b\",\n", string(got))
}

func TestSinks(t *testing.T) {
	dir := t.TempDir()
	wide := NewWideSink(filepath.Join(dir, "wide.csv"))
	long := NewLongSink(filepath.Join(dir, "long.csv"))

	require.NoError(t, wide.SaveRows(context.Background(), wideRows()))
	assert.FileExists(t, filepath.Join(dir, "wide.csv"))

	err := long.LoadBatch(context.Background(), domain.ReadingBatch{})
	require.ErrorIs(t, err, domain.ErrNoData)
	assert.NoFileExists(t, filepath.Join(dir, "long.csv"))
	assert.Equal(t, "csv:"+filepath.Join(dir, "long.csv"), long.Name())
}
