package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/raphaelgruber/contentmill/internal/metrics"
)

// scriptedLLM is an llms.Model that returns a fixed response and records call options.
type scriptedLLM struct {
	text    string
	info    map[string]any
	err     error
	opts    llms.CallOptions
	entries []llms.MessageContent
}

func (s *scriptedLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	s.entries = messages
	s.opts = llms.CallOptions{}
	for _, opt := range options {
		opt(&s.opts)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s.text, GenerationInfo: s.info}}}, nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

var testTiers = map[Tier]string{
	TierFast:     "small",
	TierStandard: "medium",
	TierPremium:  "large",
}

func TestIsFatalAPIError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("connection reset"), false},
		{"credit balance", errors.New("insufficient credit balance"), true},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"quota exceeded", errors.New("quota exceeded for model"), true},
		{"billing issue", errors.New("billing account inactive"), true},
		{"invalid api key", errors.New("invalid api key"), true},
		{"authentication failed", errors.New("authentication failed"), true},
		{"unauthorized", errors.New("unauthorized request"), true},
		{"401 status", errors.New("HTTP 401: not allowed"), true},
		{"403 status", errors.New("HTTP 403: forbidden"), true},
		{"wrapped error", fmt.Errorf("generate: %w", errors.New("credit balance too low")), true},
		{"404 not fatal", errors.New("HTTP 404: not found"), false},
		{"timeout not fatal", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, isFatalAPIError(tt.err))
		})
	}
}

func TestWrapFatalError(t *testing.T) {
	t.Run("wraps fatal error", func(t *testing.T) {
		err := errors.New("invalid api key provided")
		wrapped := wrapFatalError(err)
		assert.ErrorIs(t, wrapped, ErrFatalAPI)
		assert.ErrorIs(t, wrapped, err)
	})

	t.Run("passes through non-fatal error", func(t *testing.T) {
		err := errors.New("network timeout")
		result := wrapFatalError(err)
		assert.NotErrorIs(t, result, ErrFatalAPI)
		assert.Equal(t, err, result)
	})

	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, wrapFatalError(nil))
	})
}

func TestGenerate(t *testing.T) {
	fake := &scriptedLLM{
		text: `{"ok":true}`,
		info: map[string]any{"PromptTokens": 1000, "CompletionTokens": 500},
	}
	collector := metrics.NewCollector()
	m := NewModelWithLLM(fake, testTiers, Pricing{InputPer1K: 0.002, OutputPer1K: 0.01}, collector)

	resp, err := m.Generate(context.Background(), Request{
		System:      "You write JSON.",
		Prompt:      "Plan it.",
		Tier:        TierPremium,
		Temperature: 0.3,
		MaxTokens:   800,
		Structured:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, "large", resp.Model)
	assert.Equal(t, 1000, resp.InputTokens)
	assert.Equal(t, 500, resp.OutputTokens)
	assert.InDelta(t, 0.002+0.005, resp.CostEstimate, 1e-9)

	assert.Equal(t, "large", fake.opts.Model)
	assert.InDelta(t, 0.3, fake.opts.Temperature, 1e-9)
	assert.Equal(t, 800, fake.opts.MaxTokens)
	assert.True(t, fake.opts.JSONMode)
	require.Len(t, fake.entries, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.entries[0].Role)

	snap := collector.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	assert.Equal(t, int64(1), snap.LLMGenerate.Count)
}

func TestGenerate_AnthropicUsageKeysAndDefaults(t *testing.T) {
	fake := &scriptedLLM{text: "hello", info: map[string]any{"InputTokens": 10, "OutputTokens": 2}}
	m := NewModelWithLLM(fake, testTiers, Pricing{}, nil)

	resp, err := m.Generate(context.Background(), Request{Prompt: "hi", Tier: "unknown"})
	require.NoError(t, err)

	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 2, resp.OutputTokens)
	assert.Equal(t, "medium", resp.Model, "unknown tier falls back to standard")
	assert.False(t, fake.opts.JSONMode)
	assert.Len(t, fake.entries, 1, "no system message when System is empty")
}

func TestGenerate_EstimatesTokensWithoutUsage(t *testing.T) {
	fake := &scriptedLLM{text: "12345678"}
	m := NewModelWithLLM(fake, testTiers, Pricing{InputPer1K: 1, OutputPer1K: 1}, nil)

	resp, err := m.Generate(context.Background(), Request{Prompt: "abcd"})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.InputTokens)
	assert.Equal(t, 2, resp.OutputTokens)
	assert.InDelta(t, 0.003, resp.CostEstimate, 1e-9)
}

func TestGenerate_FatalError(t *testing.T) {
	fake := &scriptedLLM{err: errors.New("HTTP 401: invalid api key")}
	collector := metrics.NewCollector()
	m := NewModelWithLLM(fake, testTiers, Pricing{}, collector)

	_, err := m.Generate(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalAPI)

	snap := collector.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	assert.Equal(t, int64(1), snap.LLMGenerate.Failures)
}

func TestGenerate_TransientError(t *testing.T) {
	fake := &scriptedLLM{err: errors.New("connection reset by peer")}
	m := NewModelWithLLM(fake, testTiers, Pricing{}, nil)

	_, err := m.Generate(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFatalAPI)
}
