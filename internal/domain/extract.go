package domain

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/width"
)

// Row skip reasons reported in ExtractStats.
const (
	RowSkipHeader = "header"
	RowSkipEmpty  = "empty"
	RowSkipShort  = "short"
)

// minRowCells is the smallest number of cells a data row can have.
const minRowCells = 2

// ExtractStats summarizes one extraction pass.
type ExtractStats struct {
	Tables  int
	Rows    int
	Skipped map[string]int
}

func (s *ExtractStats) skip(reason string) {
	if s.Skipped == nil {
		s.Skipped = make(map[string]int)
	}
	s.Skipped[reason]++
}

// SkippedTotal returns the number of rows skipped for any reason.
func (s ExtractStats) SkippedTotal() int {
	n := 0
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

// ExtractRows parses an HTML document and returns every data row of every
// table in document order. Rows of a nested table belong to that table only
// and follow the rows of the enclosing table. When no row survives,
// ExtractRows returns ErrNoData along with the stats.
func ExtractRows(r io.Reader) ([]TableRow, ExtractStats, error) {
	var stats ExtractStats

	doc, err := html.Parse(r)
	if err != nil {
		return nil, stats, fmt.Errorf("parse html: %w", err)
	}

	var rows []TableRow
	for _, table := range findAll(doc, atom.Table) {
		stats.Tables++
		for _, tr := range tableRows(table) {
			fields, reason := rowFields(tr)
			if reason != "" {
				stats.skip(reason)
				continue
			}
			rows = append(rows, TableRowFromFields(fields))
		}
	}
	stats.Rows = len(rows)

	if len(rows) == 0 {
		return nil, stats, ErrNoData
	}
	return rows, stats, nil
}

// rowFields returns the normalized cell texts of a data row, or the reason
// the row is not one.
func rowFields(tr *html.Node) ([]string, string) {
	var fields []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Th:
			return nil, RowSkipHeader
		case atom.Td:
			fields = append(fields, NormalizeCellText(textContent(c)))
		}
	}

	switch {
	case len(fields) == 0:
		return nil, RowSkipEmpty
	case len(fields) < minRowCells:
		return nil, RowSkipShort
	}
	return fields, ""
}

// NormalizeCellText folds full-width characters to ASCII, turns
// non-breaking spaces into plain spaces, trims, and collapses runs of
// whitespace to a single space.
func NormalizeCellText(s string) string {
	s = width.Fold.String(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// findAll returns every element with the given tag in pre-order.
func findAll(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// tableRows returns the tr elements owned by table, looking through
// thead/tbody/tfoot but not into nested tables.
func tableRows(table *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				out = append(out, c)
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br:
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
