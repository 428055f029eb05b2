package schema

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// noneTokens are string cells that mean "no value"
var noneTokens = map[string]struct{}{
	"None": {},
	"none": {},
	"NULL": {},
	"":     {},
	"-":    {},
}

// dateRe matches the first ISO date inside a cell
var dateRe = regexp.MustCompile(`((?:00|19|20)\d{2}-\d{2}-\d{2})`)

func isNone(s string) bool {
	_, ok := noneTokens[strings.TrimSpace(s)]
	return ok
}

// ParseNumber converts a raw cell to float64; anything unparseable is null (NaN)
func ParseNumber(v interface{}) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		if math.IsInf(x, 0) {
			return math.NaN()
		}
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		if isNone(x) {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsInf(f, 0) {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// ParseInteger converts a raw cell to a whole number; fractional or
// unparseable values are null (NaN)
func ParseInteger(v interface{}) float64 {
	f := ParseNumber(v)
	if math.IsNaN(f) || f != math.Trunc(f) {
		return math.NaN()
	}
	return f
}

// ParseDate extracts the first ISO date from a raw cell. Markup is
// stripped first and a 00YY year is read as 20YY. ok is false for
// unparseable cells.
func ParseDate(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	if strings.ContainsRune(s, '<') {
		s = stripMarkup(s)
	}
	s = strings.Join(strings.Fields(s), " ")
	if isNone(s) {
		return time.Time{}, false
	}

	m := dateRe.FindString(s)
	if m == "" {
		return time.Time{}, false
	}
	if strings.HasPrefix(m, "00") {
		m = "20" + m[2:]
	}

	t, err := time.Parse("2006-01-02", m)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseText returns the trimmed cell as text; none tokens become ""
func ParseText(v interface{}) string {
	switch x := v.(type) {
	case string:
		if isNone(x) {
			return ""
		}
		return strings.TrimSpace(x)
	case nil:
		return ""
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func stripMarkup(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
