package templates

import (
	"strings"

	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/parser"
)

const (
	singleWordPoints = 2
	multiWordPoints  = 3
)

// BestMatch scores each candidate's keywords against input and returns the winner.
// Each whole-word, case-insensitive occurrence scores 2 points (3 for multi-word keywords).
// Ties go to the lower usage count, then to the name. Returns nil when nothing scores.
func BestMatch(candidates []models.ContentTemplate, input string) (*models.ContentTemplate, int) {
	text := strings.ToLower(input)

	var best *models.ContentTemplate
	bestScore := 0
	for i := range candidates {
		c := &candidates[i]
		score := Score(c.Keywords, text)
		if score == 0 {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && (c.UsageCount < best.UsageCount ||
				(c.UsageCount == best.UsageCount && c.Name < best.Name))) {
			best = c
			bestScore = score
		}
	}
	if best == nil {
		return nil, 0
	}
	match := *best
	return &match, bestScore
}

// Score sums keyword points for input.
func Score(keywords []string, input string) int {
	text := strings.ToLower(input)
	total := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.Join(strings.Fields(kw), " "))
		if kw == "" {
			continue
		}
		points := singleWordPoints
		if strings.Contains(kw, " ") {
			points = multiWordPoints
		}
		total += points * parser.CountWholeWord(text, kw)
	}
	return total
}
