// Package resolve normalizes identifiers and free text so records from different
// registries can be compared.
package resolve

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonDigitRe = regexp.MustCompile(`\D`)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// NormalizeProtocol strips every non-digit character from a case or process identifier.
// The case system and the execution registry format the same number with different
// separators ("23543.000123/2026-11" vs "23543000123/2026"), so only digits are compared.
//
// NormalizeProtocol is idempotent and returns "" for empty input.
func NormalizeProtocol(id string) string {
	if id == "" {
		return ""
	}
	return nonDigitRe.ReplaceAllString(id, "")
}

// SameProcess reports whether two identifiers refer to the same process. Identifiers without
// any digits never match, not even each other.
func SameProcess(a, b string) bool {
	na := NormalizeProtocol(a)
	return na != "" && na == NormalizeProtocol(b)
}

// OverrideKey builds the document key for an official plan item: "{year}-{officialID}",
// with slashes replaced so the key is safe as a single path segment.
func OverrideKey(year, officialID string) string {
	key := strings.TrimSpace(year) + "-" + strings.TrimSpace(officialID)
	return strings.ReplaceAll(key, "/", "-")
}

// DFDNumber extracts the demand-document number from a contracting group code: everything
// after the first dash ("100-9/2026" -> "9/2026"). Codes without a dash yield "".
func DFDNumber(code string) string {
	_, after, found := strings.Cut(strings.TrimSpace(code), "-")
	if !found {
		return ""
	}
	return strings.TrimSpace(after)
}

// Fold upper-cases s, strips diacritics and collapses whitespace, so keyword tables can be
// written once in plain ASCII ("SERVIC" matches "Serviços").
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToUpper(folded)
	return multiSpaceRe.ReplaceAllString(folded, " ")
}

// ContainsAny reports whether folded text contains any of the keywords.
func ContainsAny(folded string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}
