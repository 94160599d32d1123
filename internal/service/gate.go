package service

import (
	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/quality"
)

// Gate runs both evaluators and decides the publication status.
type Gate struct {
	Rules     quality.BrandRules
	Threshold int
	SiteHost  string
}

// Verdict is the outcome of one gate pass.
type Verdict struct {
	Quality models.QualityReport
	Brand   models.BrandReport
	Status  models.DocumentStatus
}

// Check evaluates a document's rendered content. It never calls out.
func (g Gate) Check(doc *models.Document) Verdict {
	report := quality.Evaluate(quality.Input{
		Title:           doc.Title,
		MetaDescription: doc.MetaDescription,
		FocusKeyword:    doc.FocusKeyword,
		Body:            doc.Body,
		FAQs:            doc.FAQ,
		Sources:         doc.Sources,
		SiteHost:        g.SiteHost,
		CTAPhrases:      g.Rules.CTAPhrases,
	})
	brand := quality.EvaluateBrand(doc.Title+"\n\n"+doc.Body, g.Rules)
	return Verdict{
		Quality: report,
		Brand:   brand,
		Status:  quality.Decide(report, brand, g.Threshold),
	}
}
