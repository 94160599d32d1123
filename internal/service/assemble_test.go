package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/parser"
)

func TestAssembleSplitRoundTrip(t *testing.T) {
	intro := "Support keeps customers productive."
	sections := []models.GeneratedSection{
		{Title: "What is included", Body: "Email and chat.\n\n### Hours\n\nWeekdays."},
		{Title: "How to get started", Body: "1. Sign up\n2. Invite the team"},
		{Title: "Pricing", Body: "Plans start at $10."},
	}
	conclusion := "Pick a plan today."

	body := Assemble(intro, sections, conclusion)

	preamble, split := parser.SplitSections(body)
	assert.Equal(t, intro, preamble)
	require.Len(t, split, len(sections)+1)
	for i, s := range sections {
		assert.Equal(t, s.Title, split[i].Heading)
		assert.Equal(t, s.Body, split[i].Body)
	}
	assert.Equal(t, ConclusionHeading, split[len(sections)].Heading)
	assert.Equal(t, conclusion, split[len(sections)].Body)

	assert.Equal(t, body, parser.JoinSections(preamble, split))
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name       string
		intro      string
		sections   []models.GeneratedSection
		conclusion string
		want       string
	}{
		{
			name:  "untitled section has no heading",
			intro: "Intro.",
			sections: []models.GeneratedSection{
				{Body: "Loose text."},
				{Title: "A", Body: "Alpha."},
			},
			want: "Intro.\n\nLoose text.\n\n## A\n\nAlpha.",
		},
		{
			name:       "normalizes whitespace",
			intro:      "Intro  with   spaces.",
			sections:   []models.GeneratedSection{{Title: "A", Body: "Alpha.\n\n\n\nMore."}},
			conclusion: "Done.",
			want:       "Intro with spaces.\n\n## A\n\nAlpha.\n\nMore.\n\n## Conclusion\n\nDone.",
		},
		{
			name: "empty input",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assemble(tt.intro, tt.sections, tt.conclusion))
		})
	}
}
