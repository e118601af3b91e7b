package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Tokenize case-folds text and splits it on anything that is not a letter or
// digit. Tokens shorter than two runes are dropped unless they belong to a
// script written without spaces.
func Tokenize(text string) []string {
	folded := folder.String(text)
	raw := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		runes := []rune(token)
		if len(runes) < 2 && !isUnspacedScript(runes[0]) {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// CharNGrams returns the overlapping rune n-grams of the folded text with
// whitespace and punctuation removed. Text shorter than n yields itself as a
// single gram.
func CharNGrams(text string, n int) []string {
	if n < 1 {
		n = 1
	}
	var runes []rune
	for _, r := range folder.String(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			runes = append(runes, r)
		}
	}
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= n {
		return []string{string(runes)}
	}
	grams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}

func isUnspacedScript(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Thai, r)
}
