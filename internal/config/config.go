// Package config loads runtime settings from defaults, an optional YAML file,
// a .env file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by LLM.Provider.
const (
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderHeuristic = "heuristic"
)

// Storage backends accepted by Storage.Backend.
const (
	StorageMemory   = "memory"
	StorageBigQuery = "bigquery"
	StoragePostgres = "postgres"
)

// Config holds every setting the binaries read.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Storage StorageConfig `yaml:"storage"`
	GCS     GCSConfig     `yaml:"gcs"`
	Notion  NotionConfig  `yaml:"notion"`
	Log     LogConfig     `yaml:"log"`
	Budget  BudgetConfig  `yaml:"budget"`
	Jobs    JobsConfig    `yaml:"jobs"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	GCPProject   string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`

	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`

	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	AnthropicURL     string `yaml:"anthropic_url"`
	AnthropicModel   string `yaml:"anthropic_model"`
	AnthropicMaxToks int    `yaml:"anthropic_max_tokens"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	BQProject   string `yaml:"bigquery_project"`
	BQDataset   string `yaml:"bigquery_dataset"`
	PostgresURL string `yaml:"postgres_url"`
}

type GCSConfig struct {
	Bucket string `yaml:"bucket"`
}

type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type BudgetConfig struct {
	// Mode forces "trends" or "zero_based"; empty picks by whether income is given.
	Mode          string  `yaml:"mode"`
	Tolerance     float64 `yaml:"tolerance"`
	HistoryMonths int     `yaml:"history_months"`
}

type JobsConfig struct {
	QueueSize  int `yaml:"queue_size"`
	Workers    int `yaml:"workers"`
	MaxRetries int `yaml:"max_retries"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8000", ShutdownTimeout: 30 * time.Second},
		LLM: LLMConfig{
			Provider:         ProviderGemini,
			MaxAttempts:      3,
			Timeout:          120 * time.Second,
			GeminiModel:      "gemini-2.5-flash",
			GCPLocation:      "us-central1",
			OllamaURL:        "http://localhost:11434",
			OllamaModel:      "llama3.1",
			AnthropicURL:     "https://api.anthropic.com",
			AnthropicModel:   "claude-sonnet-4-5",
			AnthropicMaxToks: 4096,
		},
		Storage: StorageConfig{Backend: StorageMemory, BQDataset: "fintrack"},
		Log:     LogConfig{Level: "info", Format: "console"},
		Budget:  BudgetConfig{HistoryMonths: 6},
		Jobs:    JobsConfig{QueueSize: 100, Workers: 2, MaxRetries: 3},
	}
}

// Load builds the configuration. A .env file in the working directory is read
// if present; FINTRACK_CONFIG may point at a YAML file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("Load: reading .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("FINTRACK_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("mergeFile: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("mergeFile: parsing %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []string
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, key)
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, key)
				return
			}
			*dst = f
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, key)
				return
			}
			*dst = d
		}
	}

	str("PORT", &c.Server.Port)
	dur("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	str("LLM_PROVIDER", &c.LLM.Provider)
	num("LLM_MAX_ATTEMPTS", &c.LLM.MaxAttempts)
	dur("LLM_TIMEOUT", &c.LLM.Timeout)
	str("GEMINI_API_KEY", &c.LLM.GeminiAPIKey)
	str("GEMINI_MODEL", &c.LLM.GeminiModel)
	str("GOOGLE_CLOUD_PROJECT", &c.LLM.GCPProject)
	str("GOOGLE_CLOUD_LOCATION", &c.LLM.GCPLocation)
	str("OLLAMA_URL", &c.LLM.OllamaURL)
	str("OLLAMA_MODEL", &c.LLM.OllamaModel)
	str("ANTHROPIC_API_KEY", &c.LLM.AnthropicAPIKey)
	str("ANTHROPIC_URL", &c.LLM.AnthropicURL)
	str("ANTHROPIC_MODEL", &c.LLM.AnthropicModel)
	num("ANTHROPIC_MAX_TOKENS", &c.LLM.AnthropicMaxToks)

	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("BQ_PROJECT", &c.Storage.BQProject)
	str("BQ_DATASET", &c.Storage.BQDataset)
	str("DATABASE_URL", &c.Storage.PostgresURL)

	str("GCS_BUCKET", &c.GCS.Bucket)
	str("NOTION_TOKEN", &c.Notion.Token)
	str("NOTION_DATABASE_ID", &c.Notion.DatabaseID)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	str("BUDGET_MODE", &c.Budget.Mode)
	float("BUDGET_TOLERANCE", &c.Budget.Tolerance)
	num("BUDGET_HISTORY_MONTHS", &c.Budget.HistoryMonths)

	num("JOBS_QUEUE_SIZE", &c.Jobs.QueueSize)
	num("JOBS_WORKERS", &c.Jobs.Workers)
	num("JOBS_MAX_RETRIES", &c.Jobs.MaxRetries)

	if len(errs) > 0 {
		return fmt.Errorf("applyEnv: invalid values for %s", strings.Join(errs, ", "))
	}
	if c.Storage.BQProject == "" {
		c.Storage.BQProject = c.LLM.GCPProject
	}
	return nil
}

// Validate rejects unknown enum values and non-positive limits.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOllama, ProviderAnthropic, ProviderHeuristic:
	default:
		return fmt.Errorf("Validate: unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Storage.Backend {
	case StorageMemory, StorageBigQuery, StoragePostgres:
	default:
		return fmt.Errorf("Validate: unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Budget.Mode {
	case "", "trends", "zero_based":
	default:
		return fmt.Errorf("Validate: unknown budget mode %q", c.Budget.Mode)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("Validate: llm max_attempts must be at least 1")
	}
	if c.Budget.HistoryMonths < 1 {
		return fmt.Errorf("Validate: budget history_months must be at least 1")
	}
	if c.Budget.Tolerance < 0 {
		return fmt.Errorf("Validate: budget tolerance must not be negative")
	}
	if c.Storage.Backend == StoragePostgres && c.Storage.PostgresURL == "" {
		return fmt.Errorf("Validate: postgres backend requires DATABASE_URL")
	}
	if c.Storage.Backend == StorageBigQuery && c.Storage.BQProject == "" {
		return fmt.Errorf("Validate: bigquery backend requires BQ_PROJECT")
	}
	return nil
}
