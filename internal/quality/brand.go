package quality

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/parser"
)

const (
	informalPenalty    = 5
	exclamationPenalty = 3
	repeatedPenalty    = 5
	capsPenalty        = 3
	ellipsisPenalty    = 2
	minBrandScore      = 70
)

var (
	repeatedPunctRegex = regexp.MustCompile(`!!|\?\?|\?!`)
	ellipsisRegex      = regexp.MustCompile(`\.\.\.|…`)
)

// BrandRules configures the brand/style evaluator.
type BrandRules struct {
	ForbiddenTerms  []string `yaml:"forbidden_terms"`
	InformalTerms   []string `yaml:"informal_terms"`
	EmojiWhitelist  []string `yaml:"emoji_whitelist"`
	MaxExclamations int      `yaml:"max_exclamations"`
	MaxCapsWords    int      `yaml:"max_caps_words"`
	CapsAllowlist   []string `yaml:"caps_allowlist"`
	MaxEllipses     int      `yaml:"max_ellipses"`
	CTAPhrases      []string `yaml:"cta_phrases"`
}

// DefaultBrandRules returns the built-in rule set.
func DefaultBrandRules() BrandRules {
	return BrandRules{
		ForbiddenTerms:  []string{"guaranteed results", "cheap", "risk-free", "miracle"},
		InformalTerms:   []string{"gonna", "wanna", "kinda", "awesome", "super easy", "stuff", "lol"},
		EmojiWhitelist:  []string{"✅", "👉"},
		MaxExclamations: 2,
		MaxCapsWords:    2,
		CapsAllowlist: []string{
			"AI", "API", "B2B", "B2C", "CEO", "CRM", "CTA", "EU", "FAQ", "GDPR",
			"HR", "HTML", "IT", "KPI", "PDF", "ROI", "SEO", "SLA", "SMS", "UK", "URL", "US", "USA",
		},
		MaxEllipses: 3,
		CTAPhrases:  DefaultCTAPhrases,
	}
}

// EvaluateBrand checks text against brand rules.
// Errors are blockers and do not lower the score; warnings subtract from 100.
func EvaluateBrand(text string, rules BrandRules) models.BrandReport {
	report := models.BrandReport{Errors: []string{}, Warnings: []string{}}
	lower := strings.ToLower(text)
	penalty := 0

	for _, term := range rules.ForbiddenTerms {
		if n := parser.CountWholeWord(lower, strings.ToLower(term)); n > 0 {
			report.Errors = append(report.Errors, fmt.Sprintf("forbidden term %q used %d time(s)", term, n))
		}
	}

	for _, e := range disallowedEmoji(text, rules.EmojiWhitelist) {
		report.Errors = append(report.Errors, fmt.Sprintf("emoji %q is not allowed", e))
	}

	for _, term := range rules.InformalTerms {
		if n := parser.CountWholeWord(lower, strings.ToLower(term)); n > 0 {
			penalty += n * informalPenalty
			report.Warnings = append(report.Warnings, fmt.Sprintf("informal term %q used %d time(s)", term, n))
		}
	}

	if n := strings.Count(text, "!"); n > rules.MaxExclamations {
		extra := n - rules.MaxExclamations
		penalty += extra * exclamationPenalty
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d exclamation marks (limit %d)", n, rules.MaxExclamations))
	}

	if n := len(repeatedPunctRegex.FindAllString(text, -1)); n > 0 {
		penalty += n * repeatedPenalty
		report.Warnings = append(report.Warnings, fmt.Sprintf("repeated punctuation %d time(s)", n))
	}

	if caps := capsWords(text, rules.CapsAllowlist); len(caps) > rules.MaxCapsWords {
		extra := len(caps) - rules.MaxCapsWords
		penalty += extra * capsPenalty
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d all-caps words (limit %d): %s",
			len(caps), rules.MaxCapsWords, strings.Join(caps, ", ")))
	}

	if n := len(ellipsisRegex.FindAllString(text, -1)); n > rules.MaxEllipses {
		extra := n - rules.MaxEllipses
		penalty += extra * ellipsisPenalty
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d ellipses (limit %d)", n, rules.MaxEllipses))
	}

	report.Score = max(0, 100-penalty)
	return report
}

// Decide routes a document to published or pendingReview.
func Decide(report models.QualityReport, brand models.BrandReport, threshold int) models.DocumentStatus {
	if report.WeightedTotal >= threshold &&
		len(report.Errors) == 0 &&
		len(brand.Errors) == 0 &&
		brand.Score >= minBrandScore {
		return models.StatusPublished
	}
	return models.StatusPendingReview
}

func capsWords(text string, allow []string) []string {
	allowed := make(map[string]bool, len(allow))
	for _, a := range allow {
		allowed[a] = true
	}
	var out []string
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		letters, upper := 0, 0
		for _, r := range tok {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
				}
			}
		}
		if letters >= 2 && letters == upper && !allowed[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// disallowedEmoji returns distinct emoji outside the whitelist, in order of appearance.
func disallowedEmoji(text string, whitelist []string) []string {
	allowed := make(map[rune]bool)
	for _, w := range whitelist {
		for _, r := range w {
			allowed[r] = true
		}
	}
	seen := make(map[rune]bool)
	var out []string
	for _, r := range text {
		if isEmoji(r) && !allowed[r] && !seen[r] {
			seen[r] = true
			out = append(out, string(r))
		}
	}
	return out
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		// pictographs, emoticons, transport, flags, supplemental symbols
		return !(r >= 0x1F3FB && r <= 0x1F3FF)
	case r >= 0x2600 && r <= 0x27BF:
		// misc symbols and dingbats
		return true
	case r == 0x2B50 || r == 0x2B55 || r == 0x2B1B || r == 0x2B1C:
		return true
	case r >= 0x231A && r <= 0x231B, r >= 0x23E9 && r <= 0x23FA:
		return true
	}
	return false
}
