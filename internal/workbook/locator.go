package workbook

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Locate resolves a sheet name from an ordered list of aliases. It tries an
// exact alias match, then a case-insensitive containment of any alias in any
// sheet name, then the same containment with diacritics removed. Sheets are
// scanned in workbook order and aliases in the given order.
func Locate(sheetNames, aliases []string) (string, bool) {
	present := make(map[string]struct{}, len(sheetNames))
	for _, name := range sheetNames {
		present[name] = struct{}{}
	}
	for _, alias := range aliases {
		if _, ok := present[alias]; ok {
			return alias, true
		}
	}
	if name, ok := locateContaining(sheetNames, aliases, fold); ok {
		return name, true
	}
	return locateContaining(sheetNames, aliases, foldUnaccented)
}

func locateContaining(sheetNames, aliases []string, normalize func(string) string) (string, bool) {
	for _, name := range sheetNames {
		haystack := normalize(name)
		for _, alias := range aliases {
			needle := normalize(alias)
			if needle == "" {
				continue
			}
			if strings.Contains(haystack, needle) {
				return name, true
			}
		}
	}
	return "", false
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func foldUnaccented(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return fold(s)
	}
	return fold(out)
}
