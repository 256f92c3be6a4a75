package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the full router configuration: storage, cache behavior,
// selector tuning, pipeline quality gates, batch concurrency, and the
// LLM/embedding collaborators.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Selector SelectorConfig `mapstructure:"selector"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Batch    BatchConfig    `mapstructure:"batch"`
	AI       AIConfig       `mapstructure:"ai"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// DatabaseConfig holds the sqlite path backing the cache, decision log,
// and performance records.
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Timeout string `mapstructure:"timeout"`
}

// CacheConfig tunes the two-tier routing cache.
type CacheConfig struct {
	TTL                 string  `mapstructure:"ttl"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	UseSemanticCache    bool    `mapstructure:"use_semantic_cache"`
}

// TTLDuration parses TTL, defaulting to one week on a bad or empty value.
func (c CacheConfig) TTLDuration() time.Duration {
	if d, err := time.ParseDuration(c.TTL); err == nil {
		return d
	}
	return 168 * time.Hour
}

// SelectorConfig tunes the epsilon-greedy backend/agent selector.
type SelectorConfig struct {
	Epsilon         float64 `mapstructure:"epsilon"`
	MinExplorations int     `mapstructure:"min_explorations"`
	PreferLowCost   bool    `mapstructure:"prefer_low_cost"`
}

// PipelineConfig tunes the nine-stage pipeline's quality gates and
// per-stage enablement.
type PipelineConfig struct {
	MinRetrievalQuality        float64 `mapstructure:"min_retrieval_quality"`
	MinGroundingScore          float64 `mapstructure:"min_grounding_score"`
	MaxUngroundedClaims        int     `mapstructure:"max_ungrounded_claims"`
	EnableFallbackOnLowQuality bool    `mapstructure:"enable_fallback_on_low_quality"`
	MaxRetrievalRetries        int     `mapstructure:"max_retrieval_retries"`
	RequireCitations           bool    `mapstructure:"require_citations"`

	EnableIntentAnalysis      bool `mapstructure:"enable_intent_analysis"`
	EnableRetrievalParams     bool `mapstructure:"enable_retrieval_params"`
	EnableRetrieval           bool `mapstructure:"enable_retrieval"`
	EnableRetrievalEvaluation bool `mapstructure:"enable_retrieval_evaluation"`
	EnableAgentSelection      bool `mapstructure:"enable_agent_selection"`
	EnableResponseGeneration  bool `mapstructure:"enable_response_generation"`
	EnableGroundingEvaluation bool `mapstructure:"enable_grounding_evaluation"`
	EnableOutputValidation    bool `mapstructure:"enable_output_validation"`
	EnableMetricsRecording    bool `mapstructure:"enable_metrics_recording"`
}

// DefaultPipelineConfig returns the stock pipeline tuning: every stage
// enabled, quality gates at their documented defaults. Callers that
// construct a PipelineConfig directly (rather than through Load)
// should start from this so the zero-value stage flags don't silently
// disable the whole pipeline.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MinRetrievalQuality:        0.5,
		MinGroundingScore:          0.6,
		MaxUngroundedClaims:        2,
		EnableFallbackOnLowQuality: true,
		MaxRetrievalRetries:        2,
		EnableIntentAnalysis:       true,
		EnableRetrievalParams:      true,
		EnableRetrieval:            true,
		EnableRetrievalEvaluation:  true,
		EnableAgentSelection:       true,
		EnableResponseGeneration:   true,
		EnableGroundingEvaluation:  true,
		EnableOutputValidation:     true,
		EnableMetricsRecording:     true,
	}
}

// BatchConfig tunes the bounded-concurrency batch dispatcher.
type BatchConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// AIConfig holds the classifier-LLM and embedding provider settings.
type AIConfig struct {
	Primary    string         `mapstructure:"primary"`
	Classifier ProviderConfig `mapstructure:"classifier"`
	Embedding  ProviderConfig `mapstructure:"embedding"`
}

// ProviderConfig holds provider-specific settings.
type ProviderConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// VectorConfig holds the optional ANN similarity backend settings. When
// Host is empty the similarity tier falls back to an in-memory
// brute-force cosine scan.
type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	EnableLog bool   `mapstructure:"enable_log"`
	LogDir    string `mapstructure:"log_dir"`
}

// PatternsPath is where the classifier's hot-reloadable feature/category
// pattern file lives, separate from the main viper-managed config.
const PatternsPath = "config/patterns.yaml"

// Load loads configuration from environment, .env, and config.yaml, in
// that order of increasing precedence inversion: defaults first, then
// file, then environment override.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.SetDefault("app.name", "introute")
	viper.SetDefault("app.version", "1.0.0")

	viper.SetDefault("database.path", "storage/introute.db")
	viper.SetDefault("database.timeout", "30s")

	viper.SetDefault("cache.ttl", "168h")
	viper.SetDefault("cache.similarity_threshold", 0.85)
	viper.SetDefault("cache.use_semantic_cache", true)

	viper.SetDefault("selector.epsilon", 0.1)
	viper.SetDefault("selector.min_explorations", 5)
	viper.SetDefault("selector.prefer_low_cost", false)

	viper.SetDefault("pipeline.min_retrieval_quality", 0.5)
	viper.SetDefault("pipeline.min_grounding_score", 0.6)
	viper.SetDefault("pipeline.max_ungrounded_claims", 2)
	viper.SetDefault("pipeline.enable_fallback_on_low_quality", true)
	viper.SetDefault("pipeline.max_retrieval_retries", 2)
	viper.SetDefault("pipeline.require_citations", false)
	viper.SetDefault("pipeline.enable_intent_analysis", true)
	viper.SetDefault("pipeline.enable_retrieval_params", true)
	viper.SetDefault("pipeline.enable_retrieval", true)
	viper.SetDefault("pipeline.enable_retrieval_evaluation", true)
	viper.SetDefault("pipeline.enable_agent_selection", true)
	viper.SetDefault("pipeline.enable_response_generation", true)
	viper.SetDefault("pipeline.enable_grounding_evaluation", true)
	viper.SetDefault("pipeline.enable_output_validation", true)
	viper.SetDefault("pipeline.enable_metrics_recording", true)

	viper.SetDefault("batch.max_concurrency", 16)

	viper.SetDefault("ai.primary", "openai")
	viper.SetDefault("ai.classifier.model", "gpt-4o-mini")
	viper.SetDefault("ai.classifier.max_tokens", 500)
	viper.SetDefault("ai.classifier.temperature", 0.0)
	viper.SetDefault("ai.embedding.model", "text-embedding-3-small")

	viper.SetDefault("vector.host", "")
	viper.SetDefault("vector.port", 6333)
	viper.SetDefault("vector.collection", "routing_cache")
	viper.SetDefault("vector.dimension", 1536)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.enable_log", true)
	viper.SetDefault("logging.log_dir", "./logs")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("ai.classifier.api_key", apiKey)
		viper.Set("ai.embedding.api_key", apiKey)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetTimeout parses the database timeout string to a duration.
func (c *Config) GetTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Database.Timeout); err == nil {
		return d
	}
	return 30 * time.Second
}
