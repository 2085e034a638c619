package tokenize

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// Words splits display text into embedding-lookup tokens:
// - Unicode NFKC
// - transliteration to ASCII (best-effort)
// - lowercase
// - letter/number runs; everything else separates
//
// It is intentionally language-agnostic and conservative: the goal is that a
// title and a pretrained embedding vocabulary agree on token boundaries
// (e.g. "U.S. Stocks" -> ["u", "s", "stocks"], "Ángel" -> ["angel"]).
func Words(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	s = norm.NFKC.String(s)
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)

	var out []string
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
