package models

// QualityLevel is a named band of the weighted quality score.
type QualityLevel string

const (
	LevelExcellent  QualityLevel = "excellent"
	LevelGood       QualityLevel = "good"
	LevelAcceptable QualityLevel = "acceptable"
	LevelPoor       QualityLevel = "poor"
	LevelVeryPoor   QualityLevel = "very_poor"
)

// QualityReport is the structural/SEO evaluation of a document.
// Reports are never mutated; re-evaluation produces a new one.
type QualityReport struct {
	CriterionScores map[string]int `json:"criterion_scores"`
	WeightedTotal   int            `json:"weighted_total"`
	Errors          []string       `json:"errors"`
	Warnings        []string       `json:"warnings"`
	Level           QualityLevel   `json:"level"`
}

// BrandReport is the brand/style evaluation of a document.
// Errors block publication regardless of Score.
type BrandReport struct {
	Score    int      `json:"score"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
