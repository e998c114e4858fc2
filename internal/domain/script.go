package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultScriptVar is the JavaScript variable HKO pages use for the
// embedded tide table.
const DefaultScriptVar = "data1"

var (
	scriptVarRe        = regexp.MustCompile(`var\s+([A-Za-z_$][\w$]*)\s*=\s*\[`)
	lineCommentRe      = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRe     = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingCommaRe    = regexp.MustCompile(`,\s*([\]}])`)
	undefinedLiteralRe = regexp.MustCompile(`\bundefined\b`)
)

// ScriptArrayNames lists the variables assigned an array literal in page,
// in order of appearance.
func ScriptArrayNames(page string) []string {
	var names []string
	for _, m := range scriptVarRe.FindAllStringSubmatch(page, -1) {
		names = append(names, m[1])
	}
	return names
}

// ExtractScriptArray finds `var name = [...];` in page and returns its
// elements as string records. Nested arrays become one record each; scalars
// become single-field records. null and undefined become empty strings.
func ExtractScriptArray(page, name string) ([][]string, error) {
	re, err := regexp.Compile(`var\s+` + regexp.QuoteMeta(name) + `\s*=\s*(\[[\s\S]*?\]);`)
	if err != nil {
		return nil, fmt.Errorf("compile script pattern: %w", err)
	}
	m := re.FindStringSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptArrayNotFound, name)
	}

	elems, err := decodeJSArray(m[1])
	if err != nil {
		return nil, fmt.Errorf("decode script array %s: %w", name, err)
	}

	records := make([][]string, 0, len(elems))
	for _, e := range elems {
		if inner, ok := e.([]any); ok {
			rec := make([]string, len(inner))
			for i, v := range inner {
				rec[i] = scalarText(v)
			}
			records = append(records, rec)
			continue
		}
		records = append(records, []string{scalarText(e)})
	}
	return records, nil
}

// decodeJSArray loosens a JavaScript array literal into JSON and decodes it.
func decodeJSArray(js string) ([]any, error) {
	js = blockCommentRe.ReplaceAllString(js, "")
	js = lineCommentRe.ReplaceAllString(js, "")
	js = trailingCommaRe.ReplaceAllString(js, "$1")
	js = strings.ReplaceAll(js, "'", `"`)
	js = undefinedLiteralRe.ReplaceAllString(js, "null")

	dec := json.NewDecoder(strings.NewReader(js))
	dec.UseNumber()
	var out []any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
