package stats

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Letters without a canonical decomposition.
var foldLetters = strings.NewReplacer(
	"Ø", "O", "ø", "o",
	"Đ", "D", "đ", "d",
	"Ł", "L", "ł", "l",
	"Æ", "AE", "æ", "ae",
	"Œ", "OE", "œ", "oe",
	"ß", "ss", "ẞ", "SS",
	"Þ", "TH", "þ", "th",
)

// NormalizeKey turns a department label into the form used to join the
// statistics table with the boundary file: upper case, no surrounding
// whitespace and no accent marks. "  Bogotá D.C. " becomes "BOGOTA D.C.".
//
// Spelling variants and abbreviations are left alone, so "VALLE" and
// "VALLE DEL CAUCA" stay distinct keys.
func NormalizeKey(s string) string {
	s = strings.TrimSpace(s)

	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	// Upper case last; letters like "ǰ" have no single-rune upper case.
	return strings.ToUpper(foldLetters.Replace(folded))
}
