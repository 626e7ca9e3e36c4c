package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldSearchText lowercases text and strips Vietnamese diacritics so
// keyword matching is accent-insensitive. "Nước Giặt" and "nuoc giat"
// fold to the same string.
func FoldSearchText(text string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, text)
	if err != nil {
		folded = text
	}
	folded = strings.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		}
		return r
	}, folded)
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// BuildSearchKeyword produces the denormalized search text persisted on
// each product row. It concatenates code, name, brand name and
// description, folded for accent-insensitive substring matching.
func BuildSearchKeyword(code, name, brandName, description string) string {
	return FoldSearchText(code + " " + name + " " + brandName + " " + description)
}
