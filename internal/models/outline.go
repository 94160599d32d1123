package models

// OutlinePlan is the structured writing plan for one document.
type OutlinePlan struct {
	Title           string        `json:"title"`
	MetaDescription string        `json:"metaDescription"`
	FocusKeyword    string        `json:"focusKeyword"`
	Sections        []SectionSpec `json:"sections"`
}

// SectionSpec describes a single section the writer must produce.
type SectionSpec struct {
	Title           string   `json:"title"`
	Objective       string   `json:"objective"`
	KeyPoints       []string `json:"keyPoints"`
	StatsToInclude  []string `json:"statsToInclude"`
	TargetWordCount int      `json:"targetWordCount"`
}

// GeneratedSection is the prose produced for one SectionSpec.
type GeneratedSection struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}
