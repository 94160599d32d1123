package parser

import "strings"

// ChunkText splits text into pieces of at most maxChars, preferring paragraph boundaries.
// Paragraphs larger than maxChars are split at sentence boundaries.
// A single sentence longer than maxChars is kept whole.
// Joining the pieces with "\n\n" restores the paragraph structure.
func ChunkText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len()+len(para)+2 > maxChars && current.Len() > 0 {
			flush()
		}

		if len(para) > maxChars {
			flush()
			chunks = append(chunks, chunkBySentences(para, maxChars)...)
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

// chunkBySentences splits text by sentence boundaries.
func chunkBySentences(text string, maxChars int) []string {
	var chunks []string
	var current strings.Builder

	for _, sentence := range Sentences(text) {
		if current.Len()+len(sentence)+1 > maxChars && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
