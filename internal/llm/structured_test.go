package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type plan struct {
		Title    string   `json:"title"`
		Sections []string `json:"sections"`
	}

	tests := []struct {
		name    string
		text    string
		want    plan
		wantErr bool
	}{
		{"plain", `{"title":"A","sections":["x"]}`, plan{Title: "A", Sections: []string{"x"}}, false},
		{"fenced", "```json\n{\"title\":\"B\"}\n```", plan{Title: "B"}, false},
		{"prose around", "Here you go:\n{\"title\":\"C\"}\nHope this helps.", plan{Title: "C"}, false},
		{"no json", "I cannot help with that.", plan{}, true},
		{"truncated", `{"title":"D","sections":["x"`, plan{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got plan
			err := DecodeJSON(tt.text, &got)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrStructuredOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON_Array(t *testing.T) {
	var got []map[string]string
	require.NoError(t, DecodeJSON("```\n[{\"question\":\"Q?\",\"answer\":\"A\"}]\n```", &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Q?", got[0]["question"])
}
