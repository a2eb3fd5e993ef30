package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel          OTelConfig
	OpenAI        OpenAIConfig
	ClassifierLLM LLMConfig
	IntentLLM     LLMConfig
	DraftLLM      LLMConfig
	Typesense     TypesenseConfig
	Ticketing     TicketingConfig
	Pipeline      PipelineConfig
	Queue         QueueConfig
	RateLimit     RateLimitConfig
	Env           string
	Port          string
	AdminAPIKey   string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
}

type LLMConfig struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	BaseURL  string // Optional: for custom endpoints
	Model    string
}

type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type TicketingConfig struct {
	BaseURL         string
	Email           string
	APIToken        string
	WebhookSecret   string
	CategoryFieldID int64
}

type PipelineConfig struct {
	MinConfidenceForDraft float64
	AutoRespond           bool
	BatchConcurrency      int
}

type QueueConfig struct {
	RedisURL         string
	Stream           string
	Group            string
	DLQStream        string
	DeadLetterStream string
	Consumer         string
	MaxAttempts      int
}

type RateLimitConfig struct {
	RequestsPerWindow int
	WindowSeconds     int
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the API server
//   - .env.worker for the background worker
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("TRIAGE_ENV", "development") == "development" {
		// Try service-specific env file first, fall back to .env
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:         getEnv("TRIAGE_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "triage"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		ClassifierLLM: LLMConfig{
			Provider: getEnv("CLASSIFIER_LLM_PROVIDER", "openai"),
			APIKey:   getEnv("CLASSIFIER_LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:  getEnv("CLASSIFIER_LLM_BASE_URL", ""),
			Model:    getEnv("CLASSIFIER_LLM_MODEL", "gpt-4o-mini"),
		},
		IntentLLM: LLMConfig{
			Provider: getEnv("INTENT_LLM_PROVIDER", "openai"),
			APIKey:   getEnv("INTENT_LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:  getEnv("INTENT_LLM_BASE_URL", ""),
			Model:    getEnv("INTENT_LLM_MODEL", "gpt-4o-mini"),
		},
		DraftLLM: LLMConfig{
			Provider: getEnv("DRAFT_LLM_PROVIDER", "openai"),
			APIKey:   getEnv("DRAFT_LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:  getEnv("DRAFT_LLM_BASE_URL", ""),
			Model:    getEnv("DRAFT_LLM_MODEL", "gpt-4o"),
		},
		Typesense: TypesenseConfig{
			URL:        getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:     getEnv("TYPESENSE_API_KEY", ""),
			Collection: getEnv("TYPESENSE_COLLECTION", "knowledge_articles"),
		},
		Ticketing: TicketingConfig{
			BaseURL:         getEnv("TICKETING_BASE_URL", ""),
			Email:           getEnv("TICKETING_EMAIL", ""),
			APIToken:        getEnv("TICKETING_API_TOKEN", ""),
			WebhookSecret:   getEnv("TICKETING_WEBHOOK_SECRET", ""),
			CategoryFieldID: getEnvInt64("TICKETING_CATEGORY_FIELD_ID", 0),
		},
		Pipeline: PipelineConfig{
			MinConfidenceForDraft: getEnvFloat("PIPELINE_MIN_CONFIDENCE", 0.6),
			AutoRespond:           getEnvBool("PIPELINE_AUTO_RESPOND", false),
			BatchConcurrency:      getEnvInt("PIPELINE_BATCH_CONCURRENCY", 5),
		},
		Queue: QueueConfig{
			RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Stream:           getEnv("REDIS_STREAM", "triage_tickets"),
			Group:            getEnv("REDIS_CONSUMER_GROUP", "triage_group"),
			DLQStream:        getEnv("REDIS_DLQ_STREAM", "triage_tickets_dlq"),
			DeadLetterStream: getEnv("REDIS_DEAD_LETTER_STREAM", "triage_effects_dead_letter"),
			Consumer:         getEnv("REDIS_CONSUMER_NAME", "api-server"),
			MaxAttempts:      getEnvInt("QUEUE_MAX_ATTEMPTS", 3),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 60),
			WindowSeconds:     getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
	}

	if cfg.Ticketing.BaseURL == "" {
		return Config{}, fmt.Errorf("TICKETING_BASE_URL is required")
	}

	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func (c TypesenseConfig) Enabled() bool {
	return c.URL != "" && c.APIKey != ""
}

func (c TicketingConfig) Enabled() bool {
	return c.BaseURL != "" && c.Email != "" && c.APIToken != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
