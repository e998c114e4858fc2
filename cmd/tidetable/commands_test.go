package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestExtractThenReshape(t *testing.T) {
	dir := withPaths(t)

	out, _, err := execute(t, "extract")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 5 rows")
	assert.Contains(t, out, "2 tables, 4 rows skipped")

	wide := readLines(t, filepath.Join(dir, "wide.csv"))
	require.Len(t, wide, 6)
	assert.Equal(t, "month,day,t1,h1,t2,h2,t3,h3,t4,h4", wide[0])
	assert.Equal(t, "01,02,0548,2.0,1341,0.5,2035,1.6,,", wide[2])
	assert.Equal(t, "12,31,23,2.1,0645,0.8,,,,", wide[5])

	out, _, err = execute(t, "reshape")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 15 readings")

	long := readLines(t, filepath.Join(dir, "long.csv"))
	require.Len(t, long, 16)
	assert.Equal(t, "datetime,tide_m,pair,month,day", long[0])
	assert.Equal(t, "2023-01-01T05:12:00,1.9,1,1,1", long[1])
	assert.Equal(t, "2023-12-31T00:23:00,2.1,1,12,31", long[14])
	assert.Equal(t, "2023-12-31T06:45:00,0.8,2,12,31", long[15])
}

func TestReshape_YearFlag(t *testing.T) {
	dir := withPaths(t)
	_, _, err := execute(t, "extract")
	require.NoError(t, err)

	_, _, err = execute(t, "reshape", "--year", "2024")
	require.NoError(t, err)

	long := readLines(t, filepath.Join(dir, "long.csv"))
	assert.True(t, strings.HasPrefix(long[1], "2024-01-01T05:12:00,"), long[1])
}

func TestExtract_NoTablesWritesNothing(t *testing.T) {
	dir := withPaths(t)
	page := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(page, []byte("<html><body><p>No data</p></body></html>"), 0o644))

	_, errOut, err := execute(t, "extract", "--html", page)
	require.NoError(t, err)
	assert.Contains(t, errOut, "warning")
	assert.NoFileExists(t, filepath.Join(dir, "wide.csv"))
}

func TestExtract_MissingPage(t *testing.T) {
	withPaths(t)

	_, _, err := execute(t, "extract", "--html", filepath.Join(t.TempDir(), "missing.html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load page")
}

func TestScript(t *testing.T) {
	dir := withPaths(t)

	out, _, err := execute(t, "script", "--list")
	require.NoError(t, err)
	assert.Equal(t, "data1\n", out)

	out, _, err = execute(t, "script")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 records from data1")

	lines := readLines(t, filepath.Join(dir, "data1.csv"))
	assert.Equal(t, []string{
		"01,01,0512,1.9,1304,0.6,1955,1.6,2329,1.4",
		"01,02,0548,2.0,1341,0.5,2035,1.6,,",
	}, lines)

	_, _, err = execute(t, "script", "--var", "data9")
	require.ErrorIs(t, err, domain.ErrScriptArrayNotFound)
}

func TestSummarize(t *testing.T) {
	withPaths(t)
	_, _, err := execute(t, "run", "--offline")
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(t, "summarize", "--format", "json")
		require.NoError(t, err)

		var s domain.Summary
		require.NoError(t, json.Unmarshal([]byte(out), &s))
		assert.Equal(t, 15, s.Count)
		assert.Equal(t, 0.3, s.MinM)
		assert.Equal(t, 2.1, s.MaxM)
		assert.Equal(t, "2023-01-01T05:12:00", s.First)
		assert.Equal(t, "2023-12-31T06:45:00", s.Last)
		require.Len(t, s.Monthly, 3)
		assert.Equal(t, 7, s.Monthly[0].Count)
	})

	t.Run("yaml", func(t *testing.T) {
		out, _, err := execute(t, "summarize", "-f", "yaml")
		require.NoError(t, err)

		var s domain.Summary
		require.NoError(t, yaml.Unmarshal([]byte(out), &s))
		assert.Equal(t, 15, s.Count)
	})

	t.Run("text", func(t *testing.T) {
		out, _, err := execute(t, "summarize")
		require.NoError(t, err)
		assert.Contains(t, out, "readings  15")
		assert.Contains(t, out, "MONTH")
		assert.Contains(t, out, "HOUR")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute(t, "summarize", "--format", "xml")
		require.Error(t, err)
		assert.Equal(t, ExitInvalidArgs, exitCode(t, err))
	})
}

func TestRun_Offline(t *testing.T) {
	dir := withPaths(t)

	out, _, err := execute(t, "run", "--offline")
	require.NoError(t, err)
	assert.Contains(t, out, "5 rows")
	assert.Contains(t, out, "15 readings")
	assert.Contains(t, out, "page from cache")
	assert.FileExists(t, filepath.Join(dir, "wide.csv"))
	assert.FileExists(t, filepath.Join(dir, "long.csv"))
}

func TestFetch(t *testing.T) {
	dir := withPaths(t)
	body, err := os.ReadFile(samplePage)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	htmlPath := filepath.Join(dir, "page.html")
	t.Setenv("TIDE_SOURCE_URL", srv.URL)
	t.Setenv("TIDE_HTML_PATH", htmlPath)

	out, _, err := execute(t, "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "saved")

	saved, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Equal(t, body, saved)

	out, _, err = execute(t, "extract")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 5 rows")
}

func TestValidate(t *testing.T) {
	t.Run("consistent outputs pass", func(t *testing.T) {
		withPaths(t)
		_, _, err := execute(t, "run", "--offline")
		require.NoError(t, err)

		out, _, err := execute(t, "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "Phase 1: Page Parity")
		assert.NotContains(t, out, "FAIL")
		assert.Contains(t, out, "All validations passed.")
	})

	t.Run("tampered long CSV fails", func(t *testing.T) {
		dir := withPaths(t)
		_, _, err := execute(t, "run", "--offline")
		require.NoError(t, err)

		longPath := filepath.Join(dir, "long.csv")
		lines := readLines(t, longPath)
		lines[1], lines[2] = lines[2], lines[1]
		require.NoError(t, os.WriteFile(longPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

		out, _, err := execute(t, "validate")
		require.Error(t, err)
		assert.Equal(t, ExitInvalid, exitCode(t, err))
		assert.Contains(t, out, "Phase 3: Long Order")
		assert.Contains(t, out, "sorts before previous line")
		assert.Contains(t, out, "Validation FAILED.")
	})

	t.Run("missing page skips parity", func(t *testing.T) {
		withPaths(t)
		_, _, err := execute(t, "run", "--offline")
		require.NoError(t, err)

		out, _, err := execute(t, "validate", "--html", filepath.Join(t.TempDir(), "gone.html"))
		require.NoError(t, err)
		assert.Contains(t, out, "SKIP (no saved page)")
	})
}
