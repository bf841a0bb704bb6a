package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeToken lowercases and strips all whitespace, for loose
// comparisons between scraped labels.
func NormalizeToken(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// CollapseWhitespace trims and squashes inner whitespace runs to one
// space.
func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// TitleCase uppercases the first letter of every word, lowercasing the
// rest. "machine learning" -> "Machine Learning".
func TitleCase(s string) string {
	words := strings.Fields(strings.TrimSpace(s))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

var nonWord = regexp.MustCompile(`[^a-z0-9\s-]`)
var hyphenRuns = regexp.MustCompile(`[\s-]+`)

const maxSlugLength = 80

// Slugify derives a lowercase url-safe identifier from a title.
// Non-word characters are stripped, runs of spaces and hyphens collapse
// to a single hyphen, and the result is bounded in length.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonWord.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.Trim(s[:maxSlugLength], "-")
	}
	return s
}
