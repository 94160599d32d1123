package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/contentmill/internal/models"
)

func TestEvaluateBrand(t *testing.T) {
	rules := DefaultBrandRules()

	tests := []struct {
		name       string
		text       string
		wantScore  int
		wantErrors int
	}{
		{"clean", "Our team answers every request within one business day.", 100, 0},
		{"forbidden term is an error, not a penalty", "Guaranteed results for everyone.", 100, 1},
		{"forbidden term whole word only", "Cheaper plans exist.", 100, 0},
		{"whitelisted emoji", "Done ✅", 100, 0},
		{"disallowed emoji", "Party time 🎉 🎉", 100, 1},
		{"informal terms", "This is gonna be awesome stuff.", 85, 0},
		{"exclamations within limit", "Great! Thanks!", 100, 0},
		{"exclamations beyond limit", "One! Two! Three! Four!", 94, 0},
		{"repeated punctuation", "Really?? Yes!!", 90, 0},
		{"caps within limit", "We love SEO and FAQ and BIG news.", 100, 0},
		{"caps beyond limit", "THIS IS VERY LOUD indeed", 94, 0},
		{"ellipses beyond three", "a... b... c... d... e…", 96, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := EvaluateBrand(tt.text, rules)
			assert.Equal(t, tt.wantScore, report.Score)
			assert.Len(t, report.Errors, tt.wantErrors)
		})
	}
}

func TestEvaluateBrand_ScoreFloorsAtZero(t *testing.T) {
	report := EvaluateBrand("gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna gonna", DefaultBrandRules())
	assert.Equal(t, 0, report.Score)
	require.Len(t, report.Warnings, 1)
}

func TestEvaluateBrand_Deterministic(t *testing.T) {
	text := "WOW!! This is gonna be 🎉 awesome... really..."
	first := EvaluateBrand(text, DefaultBrandRules())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, EvaluateBrand(text, DefaultBrandRules()))
	}
}

func TestDecide(t *testing.T) {
	okBrand := models.BrandReport{Score: 100}

	tests := []struct {
		name   string
		report models.QualityReport
		brand  models.BrandReport
		want   models.DocumentStatus
	}{
		{"above threshold", models.QualityReport{WeightedTotal: 92}, okBrand, models.StatusPublished},
		{"at threshold", models.QualityReport{WeightedTotal: 70}, okBrand, models.StatusPublished},
		{"below threshold", models.QualityReport{WeightedTotal: 69}, okBrand, models.StatusPendingReview},
		{"brand error blocks", models.QualityReport{WeightedTotal: 95}, models.BrandReport{Score: 100, Errors: []string{"x"}}, models.StatusPendingReview},
		{"low brand score blocks", models.QualityReport{WeightedTotal: 95}, models.BrandReport{Score: 69}, models.StatusPendingReview},
		{"brand score at minimum", models.QualityReport{WeightedTotal: 95}, models.BrandReport{Score: 70}, models.StatusPublished},
		{"report error blocks", models.QualityReport{WeightedTotal: 95, Errors: []string{"missing title"}}, okBrand, models.StatusPendingReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.report, tt.brand, 70))
		})
	}
}
