package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var numberRegex = regexp.MustCompile(`[$€£]?\d+(?:[.,]\d+)*\s?%?`)

// WordCount counts whitespace-separated tokens that contain a letter or digit.
// Markup tokens such as "##" or "-" are not words.
func WordCount(text string) int {
	n := 0
	for _, tok := range strings.Fields(text) {
		for _, r := range tok {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				n++
				break
			}
		}
	}
	return n
}

// Numbers returns numeric tokens such as "42", "3.5%", "$1,200".
func Numbers(text string) []string {
	matches := numberRegex.FindAllString(text, -1)
	for i, m := range matches {
		matches[i] = strings.TrimSpace(m)
	}
	return matches
}

// Sentences splits text into trimmed sentences.
func Sentences(text string) []string {
	var out []string
	for _, s := range splitSentences(text) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitSentences splits text into sentences.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				// Likely an abbreviation like "Dr."
				if i > 0 && unicode.IsUpper(runes[i-1]) && (i == 1 || !unicode.IsLetter(runes[i-2])) {
					continue
				}
				sentences = append(sentences, current.String())
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}

// CountWholeWord counts occurrences of word in text that are not part of a longer word.
// Both arguments are compared as-is; lowercase them first for a case-insensitive count.
func CountWholeWord(text, word string) int {
	if word == "" {
		return 0
	}
	n := 0
	for start := 0; start < len(text); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			break
		}
		idx += start
		end := idx + len(word)
		if wordBoundaryBefore(text, idx) && wordBoundaryAfter(text, end) {
			n++
		}
		start = idx + 1
	}
	return n
}

func wordBoundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !isWordRune(r)
}

func wordBoundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
