package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/contentmill/internal/llm"
	"github.com/raphaelgruber/contentmill/internal/models"
)

func planWith(sections ...models.SectionSpec) string {
	data, _ := json.Marshal(models.OutlinePlan{
		Title:        "Customer support explained",
		FocusKeyword: "customer support",
		Sections:     sections,
	})
	return string(data)
}

func fixedLLM(text string) *scriptedLLM {
	return &scriptedLLM{respond: func(int, llm.Request) (string, error) { return text, nil }}
}

func TestPlanOutline(t *testing.T) {
	rng := SectionRange{Min: 2, Max: 4}

	tests := []struct {
		name    string
		answer  string
		wantErr error
	}{
		{
			name:   "valid plan",
			answer: outlineJSON("Customer support explained", 3),
		},
		{
			name:    "too few sections",
			answer:  outlineJSON("Customer support explained", 1),
			wantErr: ErrSectionCount,
		},
		{
			name:    "too many sections",
			answer:  outlineJSON("Customer support explained", 5),
			wantErr: ErrSectionCount,
		},
		{
			name: "overlapping sections",
			answer: planWith(
				models.SectionSpec{Title: "Pricing plans for teams", Objective: "Explain pricing plans for teams"},
				models.SectionSpec{Title: "Pricing plans for teams compared", Objective: "Explain pricing plans for teams"},
			),
			wantErr: ErrOverlappingSections,
		},
		{
			name: "empty section title",
			answer: planWith(
				models.SectionSpec{Title: "Setup", Objective: "Installation"},
				models.SectionSpec{Title: "  ", Objective: "Something"},
			),
			wantErr: llm.ErrStructuredOutput,
		},
		{
			name:    "not json",
			answer:  "I cannot help with that.",
			wantErr: llm.ErrStructuredOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := fixedLLM(tt.answer)
			plan, err := NewPlanner(gen, NewPacer(0), 0.6).PlanOutline(context.Background(), "customer support", models.ResearchDigest{}, rng, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, plan.Sections, 3)

			req := gen.request(0)
			assert.True(t, req.Structured)
			assert.Equal(t, llm.TierPremium, req.Tier)
			assert.Contains(t, req.Prompt, fallbackContext)
		})
	}
}

func TestPlanOutlineNormalizesPlan(t *testing.T) {
	answer := planWith(
		models.SectionSpec{Title: "## Onboarding steps", Objective: "Walk through onboarding", TargetWordCount: 0},
		models.SectionSpec{Title: "Security reviews", Objective: "Cover audits", TargetWordCount: 100},
		models.SectionSpec{Title: "Reporting", Objective: "Dashboards and exports", TargetWordCount: 900},
	)
	answer = strings.Replace(answer, `"Customer support explained"`, `"  "`, 1)

	plan, err := NewPlanner(fixedLLM(answer), NewPacer(0), 0).PlanOutline(
		context.Background(), "customer support", models.ResearchDigest{}, SectionRange{Min: 1, Max: 5}, nil)
	require.NoError(t, err)

	assert.Equal(t, "customer support", plan.Title, "empty title falls back to the topic")
	assert.Equal(t, "Onboarding steps", plan.Sections[0].Title)
	assert.Equal(t, []int{400, 350, 450}, []int{
		plan.Sections[0].TargetWordCount,
		plan.Sections[1].TargetWordCount,
		plan.Sections[2].TargetWordCount,
	})
}

func TestPlanOutlineUsesTemplateInstructions(t *testing.T) {
	gen := fixedLLM(outlineJSON("Customer support explained", 2))
	tpl := &models.ContentTemplate{Name: "Service Guide", Instructions: "Write for prospective customers."}

	_, err := NewPlanner(gen, NewPacer(0), 0).PlanOutline(
		context.Background(), "customer support", models.ResearchDigest{}, SectionRange{Min: 2, Max: 2}, tpl)
	require.NoError(t, err)
	assert.Contains(t, gen.request(0).Prompt, "Write for prospective customers.")
}

func TestJaccard(t *testing.T) {
	a := contentTokens("Pricing plans for teams")
	b := contentTokens("Team pricing plans")
	assert.InDelta(t, 2.0/4.0, jaccard(a, b), 1e-9)
	assert.Zero(t, jaccard(contentTokens("the and"), contentTokens("for you")))
}
