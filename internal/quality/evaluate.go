// Package quality scores documents for structure, SEO and brand compliance.
// Every function here is pure; identical input always yields an identical report.
package quality

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/parser"
)

// Criterion names.
const (
	CriterionLength         = "length"
	CriterionStructure      = "structure"
	CriterionFAQ            = "faq"
	CriterionLinks          = "links"
	CriterionMetadata       = "metadata"
	CriterionCTA            = "cta"
	CriterionStructuredData = "structured_data"
	CriterionAnswerEngine   = "answer_engine"
)

// Criteria lists every criterion with its weight. Weights sum to 100.
var Criteria = []struct {
	Name   string
	Weight int
}{
	{CriterionLength, 15},
	{CriterionStructure, 15},
	{CriterionFAQ, 10},
	{CriterionLinks, 15},
	{CriterionMetadata, 15},
	{CriterionCTA, 10},
	{CriterionStructuredData, 10},
	{CriterionAnswerEngine, 10},
}

const (
	minWords       = 1200
	maxWords       = 2000
	warnBelow      = 60
	maxIntroWords  = 60
	minFAQAnswer   = 20
	maxFAQAnswer   = 80
	minTitleLen    = 30
	maxTitleLen    = 60
	minDescLen     = 120
	maxDescLen     = 160
	targetH2       = 6
	targetH3       = 2
	targetLists    = 2
	targetFAQs     = 5
	targetInternal = 3
	targetExternal = 2
	targetCTAs     = 2
	targetQHeads   = 2
	targetNumbers  = 3
)

// DefaultCTAPhrases are the call-to-action markers counted when none are configured.
var DefaultCTAPhrases = []string{
	"contact us",
	"get started",
	"book a demo",
	"sign up",
	"free trial",
	"request a quote",
	"learn more",
}

// Input is everything the evaluator looks at.
type Input struct {
	Title           string
	MetaDescription string
	FocusKeyword    string
	Body            string
	FAQs            []models.FAQItem
	Sources         []models.SourceRecord
	// Host treated as internal for absolute links, e.g. "example.com"
	SiteHost   string
	CTAPhrases []string
}

// Evaluate scores in against every criterion and combines them into a weighted total.
func Evaluate(in Input) models.QualityReport {
	scores := map[string]int{
		CriterionLength:         scoreLength(parser.WordCount(in.Body)),
		CriterionStructure:      scoreStructure(in.Body),
		CriterionFAQ:            scoreFAQ(in.FAQs),
		CriterionLinks:          scoreLinks(in.Body, in.SiteHost),
		CriterionMetadata:       scoreMetadata(in.Title, in.MetaDescription, in.FocusKeyword),
		CriterionCTA:            scoreCTA(in.Body, in.CTAPhrases),
		CriterionStructuredData: scoreStructuredData(in),
		CriterionAnswerEngine:   scoreAnswerEngine(in.Body),
	}

	report := models.QualityReport{
		CriterionScores: scores,
		Errors:          []string{},
		Warnings:        []string{},
	}

	sum := 0
	for _, c := range Criteria {
		s := scores[c.Name]
		sum += s * c.Weight
		if s < warnBelow {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s scored %d (below %d)", c.Name, s, warnBelow))
		}
	}
	report.WeightedTotal = int(math.Round(float64(sum) / 100))
	report.Level = Level(report.WeightedTotal)

	if strings.TrimSpace(in.Title) == "" {
		report.Errors = append(report.Errors, "missing title")
	}
	if strings.TrimSpace(in.Body) == "" {
		report.Errors = append(report.Errors, "empty body")
	}

	return report
}

// Level maps a weighted total to its band.
func Level(total int) models.QualityLevel {
	switch {
	case total >= 90:
		return models.LevelExcellent
	case total >= 75:
		return models.LevelGood
	case total >= 60:
		return models.LevelAcceptable
	case total >= 40:
		return models.LevelPoor
	default:
		return models.LevelVeryPoor
	}
}

func scoreLength(words int) int {
	switch {
	case words < minWords:
		return 100 * words / minWords
	case words <= maxWords:
		return 100
	default:
		over := (words - maxWords + 99) / 100
		return max(0, 100-over)
	}
}

func scoreStructure(body string) int {
	h2, h3 := 0, 0
	for _, h := range parser.Headings(body) {
		switch h.Level {
		case 2:
			h2++
		case 3:
			h3++
		}
	}
	lists := parser.ListBlocks(body)
	return floor(60*ratio(h2, targetH2) + 20*ratio(h3, targetH3) + 20*ratio(lists, targetLists))
}

func scoreFAQ(faqs []models.FAQItem) int {
	if len(faqs) == 0 {
		return 0
	}
	good := 0
	for _, f := range faqs {
		words := parser.WordCount(f.Answer)
		if strings.HasSuffix(strings.TrimSpace(f.Question), "?") && words >= minFAQAnswer && words <= maxFAQAnswer {
			good++
		}
	}
	return floor(50*ratio(len(faqs), targetFAQs) + 50*float64(good)/float64(len(faqs)))
}

func scoreLinks(body, siteHost string) int {
	internal, external := 0, 0
	for _, l := range parser.Links(body) {
		switch classifyLink(l.URL, siteHost) {
		case linkInternal:
			internal++
		case linkExternal:
			external++
		}
	}
	return floor(50*ratio(internal, targetInternal) + 50*ratio(external, targetExternal))
}

type linkKind int

const (
	linkIgnored linkKind = iota
	linkInternal
	linkExternal
)

func classifyLink(raw, siteHost string) linkKind {
	if strings.HasPrefix(raw, "#") {
		return linkIgnored
	}
	u, err := url.Parse(raw)
	if err != nil {
		return linkIgnored
	}
	switch u.Scheme {
	case "":
		if u.Host == "" {
			return linkInternal
		}
	case "http", "https":
	default:
		// mailto:, tel: and the like
		return linkIgnored
	}
	if siteHost != "" && sameHost(u.Hostname(), siteHost) {
		return linkInternal
	}
	return linkExternal
}

func sameHost(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b
}

func scoreMetadata(title, desc, keyword string) int {
	score := 0
	if n := utf8.RuneCountInString(strings.TrimSpace(title)); n >= minTitleLen && n <= maxTitleLen {
		score += 30
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(desc)); n >= minDescLen && n <= maxDescLen {
		score += 30
	}
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw != "" {
		if strings.Contains(strings.ToLower(title), kw) {
			score += 20
		}
		if strings.Contains(strings.ToLower(desc), kw) {
			score += 20
		}
	}
	return score
}

func scoreCTA(body string, phrases []string) int {
	if len(phrases) == 0 {
		phrases = DefaultCTAPhrases
	}
	lower := strings.ToLower(body)
	markers := 0
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			markers += strings.Count(lower, p)
		}
	}
	return floor(100 * ratio(markers, targetCTAs))
}

func scoreStructuredData(in Input) int {
	score := 0
	if len(in.FAQs) > 0 {
		score += 40
	}
	if strings.TrimSpace(in.MetaDescription) != "" {
		score += 30
	}
	if len(in.Sources) > 0 {
		score += 30
	}
	return score
}

func scoreAnswerEngine(body string) int {
	preamble, _ := parser.SplitSections(body)
	score := 0.0
	if n := parser.WordCount(preamble); n > 0 && n <= maxIntroWords {
		score += 30
	}

	questions := 0
	for _, h := range parser.Headings(body) {
		if h.Level >= 2 && strings.HasSuffix(h.Text, "?") {
			questions++
		}
	}
	score += 25 * ratio(questions, targetQHeads)

	if parser.ListBlocks(body) > 0 {
		score += 20
	}
	score += 25 * ratio(len(parser.Numbers(body)), targetNumbers)
	return floor(score)
}

func ratio(n, target int) float64 {
	if n >= target {
		return 1
	}
	return float64(n) / float64(target)
}

// floor rounds down, tolerating float error on exact fractions such as 60*5/6.
func floor(x float64) int {
	return int(math.Floor(x + 1e-9))
}
