package models

import "time"

// ContentTemplate steers generation for a family of topics.
// Instructions feed the outline prompt; CTABlock is appended to every body and may carry placeholders.
type ContentTemplate struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Keywords     []string `json:"keywords" yaml:"keywords"`
	Instructions string   `json:"instructions" yaml:"instructions"`
	CTABlock     string   `json:"cta_block" yaml:"cta_block"`
	UsageCount   int      `json:"usage_count" yaml:"-"`
}

// TemplateVariable is a shared named value referenced as {{key}} in document sources.
type TemplateVariable struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultTemplates returns the set of built-in templates.
func DefaultTemplates() []ContentTemplate {
	return []ContentTemplate{
		{
			ID:       "service-guide",
			Name:     "Service Guide",
			Keywords: []string{"service", "support", "customer support", "help desk", "onboarding"},
			Instructions: "Write for prospective customers evaluating the service. " +
				"Cover what is included, how to get started, and what support to expect.",
			CTABlock: "## Get in touch\n\nOur team is available {{supportHours}}. " +
				"Contact us today at {{supportEmail}} or book a demo to see it in action.",
		},
		{
			ID:       "how-to",
			Name:     "How-To Guide",
			Keywords: []string{"how to", "guide", "tutorial", "step by step", "setup"},
			Instructions: "Write a practical, step-by-step guide. " +
				"Prefer numbered lists for procedures and explain prerequisites first.",
			CTABlock: "## Next steps\n\nReady to try it yourself? Start your free trial at {{signupUrl}} " +
				"or contact us with any questions.",
		},
		{
			ID:       "comparison",
			Name:     "Comparison",
			Keywords: []string{"vs", "versus", "comparison", "alternative", "best"},
			Instructions: "Compare the options objectively with a table of criteria. " +
				"Close with a recommendation for each type of reader.",
			CTABlock: "## Make the switch\n\nSee why teams choose {{brandName}}. Book a demo today.",
		},
	}
}
