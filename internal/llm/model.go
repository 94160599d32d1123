// Package llm provides the generative-text service on top of langchaingo.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/raphaelgruber/contentmill/internal/config"
	"github.com/raphaelgruber/contentmill/internal/metrics"
)

// Tier selects a model by capability and price.
type Tier string

const (
	TierFast     Tier = "fast"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Request is a single blocking generation call.
type Request struct {
	System      string
	Prompt      string
	Tier        Tier
	Temperature float64
	MaxTokens   int
	// Structured asks the provider for a JSON object; decode the text with DecodeJSON.
	Structured bool
}

// Response is the generated text and its usage.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	CostEstimate float64
}

// Pricing is USD per 1K tokens.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Cost estimates the price of a call.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.InputPer1K/1000 + float64(outputTokens)*p.OutputPer1K/1000
}

// Model wraps a langchaingo model with tier selection, cost estimation and error classification.
type Model struct {
	llm     llms.Model
	tiers   map[Tier]string
	pricing Pricing
	metrics *metrics.Collector
}

// NewModel creates a model for the configured provider.
func NewModel(cfg config.Config, collector *metrics.Collector) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModelDefault),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModelDefault),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModelDefault),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	tiers := map[Tier]string{
		TierFast:     cfg.LLMModelFast,
		TierStandard: cfg.LLMModelDefault,
		TierPremium:  cfg.LLMModelPremium,
	}
	pricing := Pricing{InputPer1K: cfg.LLMInputPrice, OutputPer1K: cfg.LLMOutputPrice}
	return NewModelWithLLM(model, tiers, pricing, collector), nil
}

// NewModelWithLLM wraps an existing langchaingo model.
func NewModelWithLLM(model llms.Model, tiers map[Tier]string, pricing Pricing, collector *metrics.Collector) *Model {
	return &Model{llm: model, tiers: tiers, pricing: pricing, metrics: collector}
}

// ModelFor returns the model name for a tier, falling back to the standard tier.
func (m *Model) ModelFor(tier Tier) string {
	if name := m.tiers[tier]; name != "" {
		return name
	}
	return m.tiers[TierStandard]
}

// Generate runs one generation call. Provider errors that cannot succeed on retry wrap ErrFatalAPI.
func (m *Model) Generate(ctx context.Context, req Request) (Response, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	modelName := m.ModelFor(req.Tier)
	var opts []llms.CallOption
	if modelName != "" {
		opts = append(opts, llms.WithModel(modelName))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Structured {
		opts = append(opts, llms.WithJSONMode())
	}

	start := time.Now()
	resp, err := m.llm.GenerateContent(ctx, messages, opts...)
	duration := time.Since(start)
	if err != nil {
		slog.Warn("generation failed", "model", modelName, "tier", req.Tier, "duration_ms", duration.Milliseconds(), "error", err)
		if m.metrics != nil {
			m.metrics.RecordFailure(metrics.OpLLMGenerate)
		}
		return Response{}, fmt.Errorf("generate: %w", wrapFatalError(err))
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("generate: no response choices")
	}

	choice := resp.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	if in == 0 {
		in = estimateTokens(req.System) + estimateTokens(req.Prompt)
	}
	if out == 0 {
		out = estimateTokens(choice.Content)
	}
	cost := m.pricing.Cost(in, out)

	if m.metrics != nil {
		m.metrics.RecordCall(metrics.OpLLMGenerate, duration, int64(in), int64(out), cost)
	}
	slog.Debug("generation complete",
		"model", modelName,
		"tier", req.Tier,
		"input_tokens", in,
		"output_tokens", out,
		"duration_ms", duration.Milliseconds(),
	)

	return Response{
		Text:         choice.Content,
		Model:        modelName,
		InputTokens:  in,
		OutputTokens: out,
		CostEstimate: cost,
	}, nil
}

// tokenUsage reads token counts from provider-specific generation info keys.
func tokenUsage(info map[string]any) (int, int) {
	in := firstInt(info, "PromptTokens", "InputTokens", "prompt_tokens", "input_tokens")
	out := firstInt(info, "CompletionTokens", "OutputTokens", "completion_tokens", "output_tokens")
	return in, out
}

func firstInt(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

// estimateTokens approximates token count at four characters per token.
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}
