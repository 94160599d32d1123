// Package parser provides Markdown structure extraction for generated articles.
package parser

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	headingRegex  = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	h2Regex       = regexp.MustCompile(`^##\s+(.+?)\s*$`)
	linkRegex     = regexp.MustCompile(`\[([^\]]*)\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)
	listItemRegex = regexp.MustCompile(`^\s{0,3}(?:[-*+]|\d{1,3}[.)])\s+\S`)
)

// Section is a level-2 heading and the text under it.
type Section struct {
	Heading string
	Body    string
}

// Heading is any ATX heading found in a document.
type Heading struct {
	Level int
	Text  string
}

// Link is an inline Markdown link.
type Link struct {
	Text string
	URL  string
}

// SplitSections splits a body on level-2 heading boundaries.
// Text before the first level-2 heading is returned as the preamble.
// Headings inside fenced code blocks are ignored.
func SplitSections(body string) (string, []Section) {
	var preamble strings.Builder
	var sections []Section
	var current *Section
	var content strings.Builder

	flushSection := func() {
		if current != nil {
			current.Body = strings.TrimSpace(content.String())
			sections = append(sections, *current)
			content.Reset()
		}
	}

	inFence := false
	scanner := newLineScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if isFence(line) {
			inFence = !inFence
		}

		if !inFence {
			if match := h2Regex.FindStringSubmatch(line); match != nil {
				flushSection()
				current = &Section{Heading: match[1]}
				continue
			}
		}

		if current == nil {
			preamble.WriteString(line)
			preamble.WriteString("\n")
		} else {
			content.WriteString(line)
			content.WriteString("\n")
		}
	}
	flushSection()

	return strings.TrimSpace(preamble.String()), sections
}

// JoinSections is the inverse of SplitSections.
func JoinSections(preamble string, sections []Section) string {
	parts := make([]string, 0, len(sections)+1)
	if p := strings.TrimSpace(preamble); p != "" {
		parts = append(parts, p)
	}
	for _, s := range sections {
		unit := "## " + strings.TrimSpace(s.Heading)
		if b := strings.TrimSpace(s.Body); b != "" {
			unit += "\n\n" + b
		}
		parts = append(parts, unit)
	}
	return strings.Join(parts, "\n\n")
}

// Headings returns every heading outside fenced code blocks, in order.
func Headings(body string) []Heading {
	var headings []Heading
	inFence := false
	scanner := newLineScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if isFence(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if match := headingRegex.FindStringSubmatch(line); match != nil {
			headings = append(headings, Heading{Level: len(match[1]), Text: match[2]})
		}
	}
	return headings
}

// Links finds inline [text](url) links. Images are not links.
func Links(body string) []Link {
	matches := linkRegex.FindAllStringSubmatchIndex(body, -1)
	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		if m[0] > 0 && body[m[0]-1] == '!' {
			continue
		}
		links = append(links, Link{
			Text: strings.TrimSpace(body[m[2]:m[3]]),
			URL:  body[m[4]:m[5]],
		})
	}
	return links
}

// ListBlocks counts runs of consecutive list-item lines.
func ListBlocks(body string) int {
	blocks := 0
	inList := false
	inFence := false
	scanner := newLineScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if isFence(line) {
			inFence = !inFence
			inList = false
			continue
		}
		switch {
		case inFence:
		case listItemRegex.MatchString(line):
			if !inList {
				blocks++
			}
			inList = true
		case strings.TrimSpace(line) == "":
			// blank lines may separate items of a loose list
		case inList && strings.HasPrefix(line, "  "):
			// continuation of an item
		default:
			inList = false
		}
	}
	return blocks
}

func isFence(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~")
}

func newLineScanner(s string) *bufio.Scanner {
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
