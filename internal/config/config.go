// Package config loads the research engine's configuration from a YAML file
// with environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ObsConfig controls OpenTelemetry tracing and metrics export.
type ObsConfig struct {
	OTLP           string `yaml:"otlp_endpoint"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
}

// LLMProviderConfig configures a single reasoning model backend used to drive
// search strategies and relevance filtering.
type LLMProviderConfig struct {
	Provider string `yaml:"provider"` // anthropic|openai|google
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// EmbeddingConfig configures the embedding backend used by the local index.
type EmbeddingConfig struct {
	Host       string `yaml:"host"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

// VectorStoreConfig configures the local index's embedding backend.
type VectorStoreConfig struct {
	Backend    string `yaml:"backend"` // memory|postgres|auto
	DSN        string `yaml:"dsn,omitempty"`
	Metric     string `yaml:"metric,omitempty"` // cosine|l2|ip
}

// StoreConfig configures a backend that can either persist to Postgres or
// fall back to an in-process store.
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory|postgres
	DSN     string `yaml:"dsn,omitempty"`
}

// RateLimitConfig seeds the adaptive rate limit tracker.
type RateLimitConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Profile        string  `yaml:"profile"` // conservative|balanced|aggressive
	MemoryWindow   int     `yaml:"memory_window"`
	ExplorationP   float64 `yaml:"exploration_rate"`
	LearningRate   float64 `yaml:"learning_rate"`
	DecayPerDay    float64 `yaml:"decay_per_day"`
	Store          StoreConfig `yaml:"store"`
}

// EngineConfig enables and parameterizes a single search engine adapter.
type EngineConfig struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"` // web|academic|archival|code|local|retriever|elasticsearch
	Enabled  bool              `yaml:"enabled"`
	APIKey   string            `yaml:"api_key,omitempty"`
	BaseURL  string            `yaml:"base_url,omitempty"`
	Options  map[string]string `yaml:"options,omitempty"`
}

// OrchestratorConfig bounds the research orchestrator's concurrency and
// defaults.
type OrchestratorConfig struct {
	MaxConcurrentEngines int    `yaml:"max_concurrent_engines"`
	MaxIterations        int    `yaml:"max_iterations"`
	DefaultStrategy       string `yaml:"default_strategy"`
}

// EventBusConfig configures the optional Kafka-backed progress publisher.
type EventBusConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers,omitempty"`
	ProgressTopic string   `yaml:"progress_topic,omitempty"`
}

// Config is the root configuration object for cmd/research and cmd/researchd.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LogPath  string `yaml:"log_path,omitempty"`

	LLM        LLMProviderConfig `yaml:"llm"`
	Embedding  EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Settings   StoreConfig       `yaml:"settings"`
	RateLimit  RateLimitConfig   `yaml:"rate_limit"`
	Engines    []EngineConfig    `yaml:"engines"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	EventBus   EventBusConfig    `yaml:"event_bus,omitempty"`
	OTel       ObsConfig         `yaml:"otel"`
}

// Load reads filename as YAML, applies defaults, and overlays secrets from
// the environment (and, if present, a .env file next to the process).
func Load(filename string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overlayEnv(&cfg)
	return &cfg, nil
}

// Default returns a Config with defaults and environment overlays applied
// but no file read, for surfaces that can run without a config file.
func Default() *Config {
	_ = godotenv.Load()
	var cfg Config
	applyDefaults(&cfg)
	overlayEnv(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimit.Profile == "" {
		cfg.RateLimit.Profile = "balanced"
	}
	if cfg.RateLimit.MemoryWindow <= 0 {
		cfg.RateLimit.MemoryWindow = 100
	}
	if cfg.RateLimit.ExplorationP <= 0 {
		cfg.RateLimit.ExplorationP = 0.1
	}
	if cfg.RateLimit.LearningRate <= 0 {
		cfg.RateLimit.LearningRate = 0.3
	}
	if cfg.RateLimit.DecayPerDay <= 0 {
		cfg.RateLimit.DecayPerDay = 0.95
	}
	if cfg.Orchestrator.MaxConcurrentEngines <= 0 {
		cfg.Orchestrator.MaxConcurrentEngines = 5
	}
	if cfg.Orchestrator.MaxIterations <= 0 {
		cfg.Orchestrator.MaxIterations = 3
	}
	if cfg.Orchestrator.DefaultStrategy == "" {
		cfg.Orchestrator.DefaultStrategy = "adaptive"
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 16
	}
	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "research-engine"
	}
	log.Debug().Str("profile", cfg.RateLimit.Profile).Msg("config defaults applied")
}

// overlayEnv lets secrets live outside the config file. Env vars win over
// whatever the YAML file set.
func overlayEnv(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.LLM.Provider == "anthropic" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" && cfg.LLM.Provider == "google" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		if cfg.VectorStore.DSN == "" {
			cfg.VectorStore.DSN = v
		}
		if cfg.Settings.DSN == "" {
			cfg.Settings.DSN = v
		}
		if cfg.RateLimit.Store.DSN == "" {
			cfg.RateLimit.Store.DSN = v
		}
	}
}
