package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/tide-data-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/tide-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	skipped string
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd(opts *cliOptions) *cobra.Command {
	var htmlPath, widePath, longPath string
	var year int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the wide and long CSVs against each other and the saved page",
		Long: `Validate re-derives each output from its input and reports every
mismatch: the saved page against the wide CSV, the wide CSV's dates and
pairs, the long CSV's ordering, and the wide CSV reshaped against the long
CSV. The page check is skipped when no saved page exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := validateInputs{
				html: stringOr(htmlPath, opts.cfg.HTMLPath),
				wide: stringOr(widePath, opts.cfg.WideCSV),
				long: stringOr(longPath, opts.cfg.LongCSV),
				year: intOr(year, opts.cfg.Year),
				loc:  opts.cfg.Location,
			}
			return runValidate(cmd.OutOrStdout(), in)
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "saved page path (default $TIDE_HTML_PATH)")
	cmd.Flags().StringVar(&widePath, "wide", "", "wide CSV path (default $TIDE_WIDE_CSV)")
	cmd.Flags().StringVar(&longPath, "long", "", "long CSV path (default $TIDE_LONG_CSV)")
	cmd.Flags().IntVar(&year, "year", 0, "calendar year of the table (default $TIDE_YEAR)")
	return cmd
}

type validateInputs struct {
	html string
	wide string
	long string
	year int
	loc  *time.Location
}

func runValidate(w io.Writer, in validateInputs) error {
	fmt.Fprintln(w, "=== Tide Table Integrity Validation ===")
	fmt.Fprintln(w)

	rows, err := csvfile.ReadWide(in.wide)
	if err != nil {
		return exitError(ExitFailure, "tidetable: load wide CSV: %v", err)
	}
	readings, err := csvfile.ReadLong(in.long, in.loc)
	if err != nil {
		return exitError(ExitFailure, "tidetable: load long CSV: %v", err)
	}

	phases := []*phase{
		validatePageParity(in.html, rows),
		validateWideRows(rows, in.year),
		validateLongOrder(readings, in.year),
		validateReshapeParity(rows, readings, in.year, in.loc),
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	allPassed := true
	for _, p := range phases {
		var status string
		switch {
		case p.skipped != "":
			status = yellow("SKIP (" + p.skipped + ")")
		case p.passed():
			status = green("PASS")
		default:
			status = red(fmt.Sprintf("FAIL (%d errors)", len(p.errors)))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-40s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d wide rows, %d long readings\n", len(rows), len(readings))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return nil
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return exitError(ExitInvalid, "")
}

// ── Phase 1: Page parity ──
// Re-extracts the saved page and compares it row by row with the wide CSV.

func validatePageParity(htmlPath string, rows []domain.TableRow) *phase {
	p := &phase{name: "Phase 1: Page Parity (HTML vs wide)"}

	body, err := os.ReadFile(htmlPath)
	if errors.Is(err, fs.ErrNotExist) {
		p.skipped = "no saved page"
		return p
	}
	if err != nil {
		p.errorf("read %s: %v", htmlPath, err)
		return p
	}

	extracted, _, err := domain.ExtractRows(bytes.NewReader(body))
	if err != nil {
		p.errorf("extract %s: %v", htmlPath, err)
		return p
	}
	if len(extracted) != len(rows) {
		p.errorf("row count: page has %d, wide CSV has %d", len(extracted), len(rows))
	}
	for i := 0; i < len(extracted) && i < len(rows); i++ {
		want, got := extracted[i].Fields(), rows[i].Fields()
		for j := range want {
			if want[j] != got[j] {
				p.errorf("row %d column %s: page=%q, wide=%q", i+1, domain.WideHeader[j], want[j], got[j])
			}
		}
	}
	return p
}

// ── Phase 2: Wide rows ──
// Every row must name a real date and every pair must be complete or blank.

func validateWideRows(rows []domain.TableRow, year int) *phase {
	p := &phase{name: "Phase 2: Wide Rows (dates and pairs)"}
	dates := domain.NewReshaper(year, nil)

	for i, row := range rows {
		line := i + 2
		if _, _, ok := dates.ParseDate(row.Month, row.Day); !ok {
			p.errorf("line %d: %s/%s is not a date in %d", line, row.Month, row.Day, year)
		}
		for j, pair := range row.Pairs {
			if (pair.Time == "") != (pair.Height == "") {
				p.errorf("line %d pair %d: half-filled (time=%q, height=%q)", line, j+1, pair.Time, pair.Height)
			}
		}
	}
	return p
}

// ── Phase 3: Long ordering ──

func validateLongOrder(readings []domain.Reading, year int) *phase {
	p := &phase{name: "Phase 3: Long Order (sorted, in year)"}

	perDay := make(map[string]int)
	for i, r := range readings {
		line := i + 2
		if r.DateTime.Year() != year {
			p.errorf("line %d: %s is outside %d", line, r.DateTime.Format(domain.DateTimeLayout), year)
		}
		if i > 0 && r.DateTime.Before(readings[i-1].DateTime) {
			p.errorf("line %d: %s sorts before previous line", line, r.DateTime.Format(domain.DateTimeLayout))
		}
		day := r.DateTime.Format(time.DateOnly)
		perDay[day]++
		if perDay[day] == domain.PairsPerDay+1 {
			p.errorf("line %d: more than %d readings on %s", line, domain.PairsPerDay, day)
		}
	}
	return p
}

// ── Phase 4: Reshape parity ──
// Reshapes the wide CSV again and compares with the long CSV.

func validateReshapeParity(rows []domain.TableRow, long []domain.Reading, year int, loc *time.Location) *phase {
	p := &phase{name: "Phase 4: Reshape Parity (wide vs long)"}

	want, _, err := domain.NewReshaper(year, loc).Reshape(rows)
	if err != nil && !errors.Is(err, domain.ErrNoData) {
		p.errorf("reshape wide CSV: %v", err)
		return p
	}
	if len(want) != len(long) {
		p.errorf("reading count: wide reshapes to %d, long CSV has %d", len(want), len(long))
	}
	for i := 0; i < len(want) && i < len(long); i++ {
		if !want[i].DateTime.Equal(long[i].DateTime) || want[i].TideM != long[i].TideM || want[i].Pair != long[i].Pair {
			p.errorf("line %d: expected %s %g pair %d, got %s %g pair %d", i+2,
				want[i].DateTime.Format(domain.DateTimeLayout), want[i].TideM, want[i].Pair,
				long[i].DateTime.Format(domain.DateTimeLayout), long[i].TideM, long[i].Pair)
		}
	}
	return p
}
