package service

import (
	"regexp"
	"strings"

	"github.com/raphaelgruber/contentmill/internal/models"
)

// ConclusionHeading titles the closing section of every assembled body.
const ConclusionHeading = "Conclusion"

var (
	blankRunRegex    = regexp.MustCompile(`\n{3,}`)
	doubleSpaceRegex = regexp.MustCompile(`  +`)
)

// Assemble joins the introduction, the sections in outline order and the
// conclusion into one Markdown body. It is deterministic and makes no calls.
func Assemble(intro string, sections []models.GeneratedSection, conclusion string) string {
	parts := make([]string, 0, len(sections)+2)
	if s := strings.TrimSpace(intro); s != "" {
		parts = append(parts, s)
	}
	for _, sec := range sections {
		body := strings.TrimSpace(sec.Body)
		if sec.Title == "" {
			if body != "" {
				parts = append(parts, body)
			}
			continue
		}
		parts = append(parts, "## "+strings.TrimSpace(sec.Title)+"\n\n"+body)
	}
	if s := strings.TrimSpace(conclusion); s != "" {
		parts = append(parts, "## "+ConclusionHeading+"\n\n"+s)
	}
	return normalizeBody(strings.Join(parts, "\n\n"))
}

// normalizeBody collapses runs of blank lines and repeated spaces.
func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = blankRunRegex.ReplaceAllString(body, "\n\n")
	body = doubleSpaceRegex.ReplaceAllString(body, " ")
	return strings.TrimSpace(body)
}
