package results

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	snowballeng "github.com/kljensen/snowball/english"
)

// Highlight wraps every word of text matching a query term with mark.
// Words match by snowball stem when language is one snowball supports
// ("english", "french", "russian", "spanish", ...) and by case-insensitive
// equality otherwise, which covers Arabic summaries. English stop words in
// the query are never marked.
func Highlight(text, query, language string, mark func(string) string) string {
	terms := make(map[string]struct{})
	for _, w := range words(query) {
		if language == "english" && snowballeng.IsStopWord(strings.ToLower(w)) {
			continue
		}
		terms[normalize(w, language)] = struct{}{}
	}
	if len(terms) == 0 || mark == nil {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		w := text[start:end]
		if _, ok := terms[normalize(w, language)]; ok {
			b.WriteString(mark(w))
		} else {
			b.WriteString(w)
		}
		start = -1
	}

	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(text))

	return b.String()
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) })
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}

func normalize(w, language string) string {
	w = strings.ToLower(w)
	if language == "" {
		return w
	}
	stemmed, err := snowball.Stem(w, language, true)
	if err != nil || stemmed == "" {
		return w
	}
	return stemmed
}
