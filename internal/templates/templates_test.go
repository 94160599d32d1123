package templates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/contentmill/internal/models"
)

func TestRender(t *testing.T) {
	vars := map[string]string{"supportHours": "9am-5pm", "brand": "Acme"}

	tests := []struct {
		name    string
		source  string
		want    string
		wantErr bool
	}{
		{"no placeholders", "plain text", "plain text", false},
		{"single", "Open {{supportHours}}.", "Open 9am-5pm.", false},
		{"spaces inside braces", "{{ brand }} is open {{  supportHours }}", "Acme is open 9am-5pm", false},
		{"repeated", "{{brand}} {{brand}}", "Acme Acme", false},
		{"unknown key", "Call {{phone}}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.source, vars)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMissingVariable))
				assert.Contains(t, err.Error(), "phone")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{b}} and {{ a }}", "{{b}} again {{c}}", "none")
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSnapshot(t *testing.T) {
	vars := map[string]string{"supportHours": "9am-5pm", "brand": "Acme", "unused": "x"}

	snap := Snapshot(vars, "Title {{brand}}", "Body {{supportHours}} {{missing}}")

	assert.Equal(t, map[string]string{"supportHours": "9am-5pm", "brand": "Acme"}, snap)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		input    string
		want     int
	}{
		{"single word", []string{"support"}, "Customer support basics", 2},
		{"case insensitive", []string{"Support"}, "SUPPORT and support", 4},
		{"whole word only", []string{"port"}, "support portal", 0},
		{"multi-word", []string{"customer support"}, "Customer Support for teams", 3},
		{"multi-word and single word overlap", []string{"customer support", "support"}, "customer support", 5},
		{"no match", []string{"pricing"}, "support hours", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.keywords, tt.input))
		})
	}
}

func TestBestMatch(t *testing.T) {
	candidates := []models.ContentTemplate{
		{ID: "a", Name: "Beta", Keywords: []string{"support"}, UsageCount: 5},
		{ID: "b", Name: "Alpha", Keywords: []string{"support"}, UsageCount: 5},
		{ID: "c", Name: "Gamma", Keywords: []string{"support"}, UsageCount: 2},
		{ID: "d", Name: "Delta", Keywords: []string{"pricing"}, UsageCount: 0},
	}

	t.Run("tie broken by usage count", func(t *testing.T) {
		got, score := BestMatch(candidates, "support guide")
		require.NotNil(t, got)
		assert.Equal(t, "c", got.ID)
		assert.Equal(t, 2, score)
	})

	t.Run("tie broken by name", func(t *testing.T) {
		got, _ := BestMatch(candidates[:2], "support guide")
		require.NotNil(t, got)
		assert.Equal(t, "Alpha", got.Name)
	})

	t.Run("highest score wins", func(t *testing.T) {
		got, score := BestMatch(candidates, "pricing pricing support")
		require.NotNil(t, got)
		assert.Equal(t, "d", got.ID)
		assert.Equal(t, 4, score)
	})

	t.Run("zero score returns nil", func(t *testing.T) {
		got, score := BestMatch(candidates, "weather forecast")
		assert.Nil(t, got)
		assert.Zero(t, score)
	})

	t.Run("defaults pick service guide", func(t *testing.T) {
		got, _ := BestMatch(models.DefaultTemplates(), "Customer support hours explained")
		require.NotNil(t, got)
		assert.Equal(t, "service-guide", got.ID)
	})
}
