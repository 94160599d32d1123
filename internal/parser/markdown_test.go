package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSections(t *testing.T) {
	body := "Intro paragraph.\n\n## First\n\nFirst body.\n\n### Detail\n\nNested.\n\n## Second\n\n- a\n- b\n"

	preamble, sections := SplitSections(body)

	assert.Equal(t, "Intro paragraph.", preamble)
	require.Len(t, sections, 2)
	assert.Equal(t, "First", sections[0].Heading)
	assert.Equal(t, "First body.\n\n### Detail\n\nNested.", sections[0].Body)
	assert.Equal(t, "Second", sections[1].Heading)
	assert.Equal(t, "- a\n- b", sections[1].Body)
}

func TestSplitSections_IgnoresFencedHeadings(t *testing.T) {
	body := "## Code\n\n```md\n## not a heading\n```\n\n## Next\n\nText."

	_, sections := SplitSections(body)

	require.Len(t, sections, 2)
	assert.Contains(t, sections[0].Body, "## not a heading")
	assert.Equal(t, "Next", sections[1].Heading)
}

func TestSplitSections_NoHeadings(t *testing.T) {
	preamble, sections := SplitSections("Just text.\nMore text.")
	assert.Equal(t, "Just text.\nMore text.", preamble)
	assert.Empty(t, sections)
}

func TestJoinSections_RoundTrip(t *testing.T) {
	sections := []Section{
		{Heading: "Why it matters", Body: "Body one.\n\n- point\n- point"},
		{Heading: "Getting started", Body: "Body two with {{supportHours}}."},
		{Heading: "Empty", Body: ""},
	}

	joined := JoinSections("The intro.", sections)
	preamble, got := SplitSections(joined)

	assert.Equal(t, "The intro.", preamble)
	assert.Equal(t, sections, got)
}

func TestHeadings(t *testing.T) {
	body := "# Title\n\n## What is it?\n\ntext\n\n### Sub ###\n\n```\n# code\n```\n#nospace"

	got := Headings(body)

	assert.Equal(t, []Heading{
		{Level: 1, Text: "Title"},
		{Level: 2, Text: "What is it?"},
		{Level: 3, Text: "Sub"},
	}, got)
}

func TestLinks(t *testing.T) {
	body := `See [pricing](/pricing) and [docs](https://example.com/docs "Docs"), or ![img](x.png).`

	got := Links(body)

	require.Len(t, got, 2)
	assert.Equal(t, Link{Text: "pricing", URL: "/pricing"}, got[0])
	assert.Equal(t, Link{Text: "docs", URL: "https://example.com/docs"}, got[1])
}

func TestListBlocks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"none", "Just a paragraph.", 0},
		{"one bullet list", "- a\n- b\n- c", 1},
		{"loose list counts once", "- a\n\n- b", 1},
		{"two lists", "- a\n- b\n\nParagraph.\n\n1. one\n2. two", 2},
		{"fenced lists ignored", "```\n- a\n```", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ListBlocks(tt.body))
		})
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"plain", "one two three", 3},
		{"markup excluded", "## Heading here\n\n- item one\n- item two", 6},
		{"numbers count", "We saw 42 % growth", 4},
		{"unicode", "café déjà vu", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WordCount(tt.text))
		})
	}
}

func TestWordCount_Boundary(t *testing.T) {
	assert.Equal(t, 1200, WordCount(strings.Repeat("word ", 1200)))
	assert.Equal(t, 1199, WordCount(strings.Repeat("word ", 1199)))
}

func TestNumbers(t *testing.T) {
	got := Numbers("Revenue grew 12.5% to $1,200 across 3 regions in 2024.")
	assert.Equal(t, []string{"12.5%", "$1,200", "3", "2024"}, got)
}

func TestSentences(t *testing.T) {
	got := Sentences("First one. Second one! Is this third? Ask J. Smith about it.")
	assert.Equal(t, []string{
		"First one.",
		"Second one!",
		"Is this third?",
		"Ask J. Smith about it.",
	}, got)
}

func TestCountWholeWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		word string
		want int
	}{
		{"simple", "the cat sat", "cat", 1},
		{"inside word", "concatenate", "cat", 0},
		{"punctuation boundary", "cat, cat. (cat)", "cat", 3},
		{"multi word", "customer support and customer supporters", "customer support", 1},
		{"unicode boundary", "écat cat", "cat", 1},
		{"empty word", "anything", "", 0},
		{"multibyte neighbours", "ñcat ümcat café cat—cat", "cat", 2},
		{"trailing multibyte", "cat€", "cat", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountWholeWord(tt.text, tt.word))
		})
	}
}

func TestCountWholeWordLongBody(t *testing.T) {
	body := strings.Repeat("our support team answers fast. ", 20000)
	assert.Equal(t, 20000, CountWholeWord(body, "support"))
	assert.Zero(t, CountWholeWord(body, "port"))
}
