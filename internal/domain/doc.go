// Package domain models Hong Kong Observatory (HKO) tide table data.
//
// # Data Source
//
// Tide tables are published per station and year as HTML pages, e.g.
// https://www.hko.gov.hk/tide/eCLKtext2023.html for Chek Lap Kok (E) in
// 2023. Each page carries one or more <table> elements with one data row
// per calendar day. The same page also embeds the table as a JavaScript
// array literal (var data1 = [...]), see [ExtractScriptArray].
//
// # HKO Table Conventions
//
// Row layout:
//
//	MM DD  T1 H1  T2 H2  T3 H3  T4 H4
//	"03" "15" "0531" "1.2" "1145" "0.4" "1758" "1.5" "2310" "0.3"
//	Days with fewer than four tide events leave trailing pairs blank.
//	Header rows use <th> cells and are skipped.
//
// Time format:
//
//	HHMM in 24-hour local time (HKT, UTC+8), e.g. "1758" = 17:58.
//	Three-digit values drop the leading zero: "531" → "0531".
//
// Height format:
//
//	Metres above Chart Datum as a decimal string, e.g. "1.2".
//
// Cell text:
//
//	Cells may contain non-breaking spaces and, on the Chinese-language
//	pages, full-width digits. Both are folded to plain ASCII before the
//	text is stored, see [NormalizeCellText].
//
// # Wide and Long Forms
//
// The extractor keeps cell text verbatim in a [TableRow] so leading zeros
// survive into the wide CSV. The reshaper turns each (time, height) pair
// into a [Reading] anchored to a fixed calendar year, since the page itself
// never states the year inside the table.
package domain
