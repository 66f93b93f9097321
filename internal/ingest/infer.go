package ingest

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
)

// Accepted layouts. Only ISO forms are recognized so that day/month order
// is never guessed.
var (
	dateLayouts = []string{"2006-01-02"}

	timestampLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999999999",
	}
)

// inferType picks the narrowest type every non-empty value satisfies, trying
// integer, real, boolean, date and timestamp in that order.
func inferType(values []string) catalog.ColumnType {
	nonEmpty := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		return catalog.TypeText
	}

	for _, t := range []catalog.ColumnType{
		catalog.TypeInteger,
		catalog.TypeReal,
		catalog.TypeBoolean,
		catalog.TypeDate,
		catalog.TypeTimestamp,
	} {
		if allMatch(nonEmpty, t) {
			return t
		}
	}
	return catalog.TypeText
}

func allMatch(vals []string, t catalog.ColumnType) bool {
	for _, v := range vals {
		if _, ok := parseValue(v, t); !ok {
			return false
		}
	}
	return true
}

// parseValue converts a non-empty field to the Go value for t.
func parseValue(s string, t catalog.ColumnType) (any, bool) {
	s = strings.TrimSpace(s)
	switch t {
	case catalog.TypeInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	case catalog.TypeReal:
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case catalog.TypeBoolean:
		switch strings.ToLower(s) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return nil, false
	case catalog.TypeDate:
		return parseTime(s, dateLayouts)
	case catalog.TypeTimestamp:
		return parseTime(s, timestampLayouts)
	default:
		return s, true
	}
}

func parseTime(s string, layouts []string) (any, bool) {
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return nil, false
}

// normalizeFieldName converts arbitrary header text into a lowercase ASCII
// identifier: accents stripped, space/dash/dot to underscore, anything else
// dropped, "col" when nothing is left.
func normalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// uniqueNames normalizes headers and suffixes repeats with _2, _3, ...
func uniqueNames(headers []string) []string {
	seen := make(map[string]int, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		name := normalizeFieldName(h)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
		}
		out[i] = name
	}
	return out
}
