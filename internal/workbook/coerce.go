package workbook

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]`)
	numericPrefix = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// CoerceString trims surrounding whitespace.
func CoerceString(raw string) string {
	return strings.TrimSpace(raw)
}

// CoerceNumber parses a cell as a number and never fails: a plain numeric
// value (including exponent notation) is taken as is; otherwise every
// character other than digits, dot and minus is stripped and the leading
// numeric part is parsed. Anything else, including values outside the
// float64 range, is 0.
func CoerceNumber(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	if d, err := decimal.NewFromString(trimmed); err == nil {
		return finite(d)
	}
	stripped := nonNumeric.ReplaceAllString(trimmed, "")
	prefix := numericPrefix.FindString(stripped)
	if prefix == "" {
		return 0
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(prefix, "."))
	if err != nil {
		return 0
	}
	return finite(d)
}

func finite(d decimal.Decimal) float64 {
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
