// Package models defines data structures for contentmill documents, batches and translations.
package models

import "time"

// DocumentStatus is the publication state of a document.
type DocumentStatus string

const (
	StatusDraft         DocumentStatus = "draft"
	StatusPendingReview DocumentStatus = "pendingReview"
	StatusPublished     DocumentStatus = "published"
)

// Document is a generated long-form article.
// Title, Body and MetaDescription are rendered from their *Source counterparts,
// which keep {{key}} placeholders for shared template variables.
type Document struct {
	ID               string         `json:"id"`
	Topic            string         `json:"topic"`
	Locale           string         `json:"locale"`
	Language         string         `json:"language"`
	TemplateID       *string        `json:"template_id,omitempty"`
	Title            string         `json:"title"`
	TitleFingerprint string         `json:"title_fingerprint"`
	Body             string         `json:"body"`
	WordCount        int            `json:"word_count"`
	Status           DocumentStatus `json:"status"`

	TitleSource           string `json:"title_source"`
	BodySource            string `json:"body_source"`
	MetaDescription       string `json:"meta_description"`
	MetaDescriptionSource string `json:"meta_description_source"`
	FocusKeyword          string `json:"focus_keyword"`

	// Values of every shared variable referenced at last render time
	VariableSnapshot map[string]string `json:"variable_snapshot"`

	FAQ             []FAQItem      `json:"faq"`
	Sources         []SourceRecord `json:"sources"`
	ResearchQueries []string       `json:"research_queries"`
	FeaturedImage   *string        `json:"featured_image,omitempty"`

	QualityScore   int           `json:"quality_score"`
	QualityReport  QualityReport `json:"quality_report"`
	BrandReport    BrandReport   `json:"brand_report"`
	GenerationCost float64       `json:"generation_cost"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FAQItem is a question/answer pair attached to a document.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RenderedContent is the result of re-rendering a document against the current variables.
// It is persisted atomically together with the refreshed snapshot.
type RenderedContent struct {
	Title            string            `json:"title"`
	Body             string            `json:"body"`
	MetaDescription  string            `json:"meta_description"`
	WordCount        int               `json:"word_count"`
	VariableSnapshot map[string]string `json:"variable_snapshot"`
	QualityScore     int               `json:"quality_score"`
	QualityReport    QualityReport     `json:"quality_report"`
	BrandReport      BrandReport       `json:"brand_report"`
}
