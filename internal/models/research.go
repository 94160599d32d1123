package models

import "time"

// Source kinds.
const (
	SourceKindSearchSummary = "search_summary"
	SourceKindWeb           = "web"
)

// Statistic kinds.
const (
	StatPercentage = "percentage"
	StatCurrency   = "currency"
	StatCount      = "count"
)

// ResearchDigest is the condensed research context for one generation run.
// Only Sources and Queries outlive the run, as document provenance.
type ResearchDigest struct {
	Queries      []string       `json:"queries"`
	Sources      []SourceRecord `json:"sources"`
	Statistics   []Statistic    `json:"statistics"`
	KeyPoints    []string       `json:"key_points"`
	CostEstimate float64        `json:"cost_estimate"`
}

// Empty reports whether the digest carries no usable research.
func (d ResearchDigest) Empty() bool {
	return len(d.Sources) == 0 && len(d.Statistics) == 0 && len(d.KeyPoints) == 0
}

// SourceRecord describes one source consulted during research.
type SourceRecord struct {
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Excerpt        string    `json:"excerpt"`
	URL            *string   `json:"url,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
	RelevanceScore int       `json:"relevance_score"`
}

// Statistic is a numeric token extracted from research text.
type Statistic struct {
	Value   string `json:"value"`
	Kind    string `json:"kind"`
	Context string `json:"context"`
	Query   string `json:"query"`
}
