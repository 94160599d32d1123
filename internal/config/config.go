package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Generative-text service
	LLMProvider     string
	LLMModelFast    string
	LLMModelDefault string
	LLMModelPremium string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// USD per 1K tokens, used for cost estimates
	LLMInputPrice  float64
	LLMOutputPrice float64

	// Deep-search service
	SearchURL         string
	SearchAPIKey      string
	SearchModel       string
	SearchInputPrice  float64
	SearchOutputPrice float64
	EnrichSources     int
	UserAgent         string

	// Image generation (AWS Bedrock)
	ImageEnabled bool
	ImageModelID string
	ImageDir     string
	AWSRegion    string
	ImageCost    float64

	// Pipeline
	CallDelay        time.Duration
	MaxQueries       int
	MinSections      int
	MaxSections      int
	OverlapThreshold float64
	SectionRetries   int
	QualityThreshold int
	SiteHost         string

	// Dispatcher
	DispatchWorkers     int
	DispatchMaxAttempts int

	// Rule files (YAML); empty uses built-in defaults
	BrandRulesFile string
	TemplatesFile  string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "contentmill"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "content"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     getEnv("CONTENTMILL_LLM_PROVIDER", ProviderOpenAI),
		LLMModelFast:    getEnv("CONTENTMILL_LLM_MODEL_FAST", "gpt-4o-mini"),
		LLMModelDefault: getEnv("CONTENTMILL_LLM_MODEL", "gpt-4o"),
		LLMModelPremium: getEnv("CONTENTMILL_LLM_MODEL_PREMIUM", "gpt-4.1"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		LLMInputPrice:   getEnvFloat("CONTENTMILL_LLM_INPUT_PRICE", 0.0025),
		LLMOutputPrice:  getEnvFloat("CONTENTMILL_LLM_OUTPUT_PRICE", 0.01),

		SearchURL:         getEnv("CONTENTMILL_SEARCH_URL", "https://api.perplexity.ai/chat/completions"),
		SearchAPIKey:      getEnv("CONTENTMILL_SEARCH_API_KEY", ""),
		SearchModel:       getEnv("CONTENTMILL_SEARCH_MODEL", "sonar"),
		SearchInputPrice:  getEnvFloat("CONTENTMILL_SEARCH_INPUT_PRICE", 0.001),
		SearchOutputPrice: getEnvFloat("CONTENTMILL_SEARCH_OUTPUT_PRICE", 0.001),
		EnrichSources:     getEnvInt("CONTENTMILL_ENRICH_SOURCES", 5),
		UserAgent:         getEnv("CONTENTMILL_USER_AGENT", "contentmill/0.1"),

		ImageEnabled: getEnv("CONTENTMILL_IMAGE_ENABLED", "false") == "true",
		ImageModelID: getEnv("CONTENTMILL_IMAGE_MODEL", "amazon.titan-image-generator-v2:0"),
		ImageDir:     getEnv("CONTENTMILL_IMAGE_DIR", "./images"),
		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		ImageCost:    getEnvFloat("CONTENTMILL_IMAGE_COST", 0.01),

		CallDelay:        getEnvDuration("CONTENTMILL_CALL_DELAY", time.Second),
		MaxQueries:       getEnvInt("CONTENTMILL_MAX_QUERIES", 3),
		MinSections:      getEnvInt("CONTENTMILL_MIN_SECTIONS", 8),
		MaxSections:      getEnvInt("CONTENTMILL_MAX_SECTIONS", 12),
		OverlapThreshold: getEnvFloat("CONTENTMILL_OVERLAP_THRESHOLD", 0.8),
		SectionRetries:   getEnvInt("CONTENTMILL_SECTION_RETRIES", 1),
		QualityThreshold: getEnvInt("CONTENTMILL_QUALITY_THRESHOLD", 70),
		SiteHost:         getEnv("CONTENTMILL_SITE_HOST", ""),

		DispatchWorkers:     getEnvInt("CONTENTMILL_DISPATCH_WORKERS", 8),
		DispatchMaxAttempts: getEnvInt("CONTENTMILL_DISPATCH_MAX_ATTEMPTS", 3),

		BrandRulesFile: getEnv("CONTENTMILL_BRAND_RULES", ""),
		TemplatesFile:  getEnv("CONTENTMILL_TEMPLATES", ""),

		LogFile:  getEnv("CONTENTMILL_LOG_FILE", "/tmp/contentmill.log"),
		LogLevel: parseLogLevel(getEnv("CONTENTMILL_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		slog.Warn("invalid integer in environment, using default", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		slog.Warn("invalid number in environment, using default", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		slog.Warn("invalid duration in environment, using default", "key", key, "value", val)
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
