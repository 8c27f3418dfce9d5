package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Queue    QueueConfig    `yaml:"queue"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // postgres | sqlite
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"-"`
	BaseURL         string        `yaml:"base_url"`
	Temperature     float64       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	MaxRetries      int           `yaml:"max_retries"`
	Timeout         time.Duration `yaml:"timeout"`
	TokensPerSecond int           `yaml:"tokens_per_second"`
	BurstTokens     int           `yaml:"burst_tokens"`
}

// PipelineConfig holds chunking, scoring and review thresholds.
type PipelineConfig struct {
	TargetTokens           int     `yaml:"target_tokens"`
	MaxTokens              int     `yaml:"max_tokens"`
	OverlapTokens          int     `yaml:"overlap_tokens"`
	ScannedThreshold       float64 `yaml:"scanned_threshold"`
	ClassificationWeight   float64 `yaml:"classification_weight"`
	PolicyWeight           float64 `yaml:"policy_weight"`
	CoverageWeight         float64 `yaml:"coverage_weight"`
	ReviewThreshold        float64 `yaml:"review_threshold"`
	ScannedPenalty         float64 `yaml:"scanned_penalty"`
	BlockScanned           bool    `yaml:"block_scanned"`
	CoverageConcurrency    int     `yaml:"coverage_concurrency"`
	ClassifierCharBudget   int     `yaml:"classifier_char_budget"`
	DeclarationsCharBudget int     `yaml:"declarations_char_budget"`
	CoverageCharBudget     int     `yaml:"coverage_char_budget"`
}

// QueueConfig holds background worker configuration.
type QueueConfig struct {
	Workers        int           `yaml:"workers"`
	Size           int           `yaml:"size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// StorageConfig holds the document storage root.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
			HTTPAddr: ":8081",
		},
		LLM: LLMConfig{
			Model:           "gpt-4o-mini",
			BaseURL:         "https://api.openai.com/v1",
			MaxOutputTokens: 2048,
			MaxRetries:      3,
			Timeout:         60 * time.Second,
			TokensPerSecond: 30000,
			BurstTokens:     60000,
		},
		Pipeline: PipelineConfig{
			TargetTokens:           500,
			MaxTokens:              1000,
			OverlapTokens:          50,
			ScannedThreshold:       40,
			ClassificationWeight:   0.15,
			PolicyWeight:           0.20,
			CoverageWeight:         0.65,
			ReviewThreshold:        0.70,
			ScannedPenalty:         0.85,
			CoverageConcurrency:    4,
			ClassifierCharBudget:   24000,
			DeclarationsCharBudget: 12000,
			CoverageCharBudget:     16000,
		},
		Queue: QueueConfig{
			Workers:        4,
			Size:           256,
			ProcessTimeout: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Root: "./data/documents",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from environment variables on top of defaults.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	applyEnv(cfg)
	return cfg
}

// LoadConfigFile overlays a YAML file on the defaults, then the environment.
// A missing file is not an error.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, NewAppError("CONFIG_ERROR", "invalid yaml in "+path, err)
			}
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)

	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat64("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxOutputTokens = getEnvAsInt("OPENAI_MAX_OUTPUT_TOKENS", c.LLM.MaxOutputTokens)
	c.LLM.MaxRetries = getEnvAsInt("OPENAI_MAX_RETRIES", c.LLM.MaxRetries)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.TokensPerSecond = getEnvAsInt("LLM_TOKENS_PER_SECOND", c.LLM.TokensPerSecond)
	c.LLM.BurstTokens = getEnvAsInt("LLM_BURST_TOKENS", c.LLM.BurstTokens)

	c.Pipeline.TargetTokens = getEnvAsInt("CHUNK_TARGET_TOKENS", c.Pipeline.TargetTokens)
	c.Pipeline.MaxTokens = getEnvAsInt("CHUNK_MAX_TOKENS", c.Pipeline.MaxTokens)
	c.Pipeline.OverlapTokens = getEnvAsInt("CHUNK_OVERLAP_TOKENS", c.Pipeline.OverlapTokens)
	c.Pipeline.ScannedThreshold = getEnvAsFloat64("SCANNED_THRESHOLD", c.Pipeline.ScannedThreshold)
	c.Pipeline.ClassificationWeight = getEnvAsFloat64("WEIGHT_CLASSIFICATION", c.Pipeline.ClassificationWeight)
	c.Pipeline.PolicyWeight = getEnvAsFloat64("WEIGHT_POLICY", c.Pipeline.PolicyWeight)
	c.Pipeline.CoverageWeight = getEnvAsFloat64("WEIGHT_COVERAGE", c.Pipeline.CoverageWeight)
	c.Pipeline.ReviewThreshold = getEnvAsFloat64("REVIEW_THRESHOLD", c.Pipeline.ReviewThreshold)
	c.Pipeline.ScannedPenalty = getEnvAsFloat64("SCANNED_PENALTY", c.Pipeline.ScannedPenalty)
	c.Pipeline.BlockScanned = getEnvAsBool("BLOCK_SCANNED_DOCUMENTS", c.Pipeline.BlockScanned)
	c.Pipeline.CoverageConcurrency = getEnvAsInt("COVERAGE_CONCURRENCY", c.Pipeline.CoverageConcurrency)
	c.Pipeline.CoverageCharBudget = getEnvAsInt("COVERAGE_CHAR_BUDGET", c.Pipeline.CoverageCharBudget)

	c.Queue.Workers = getEnvAsInt("QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.Size = getEnvAsInt("QUEUE_SIZE", c.Queue.Size)
	c.Queue.ProcessTimeout = getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", c.Queue.ProcessTimeout)

	c.Storage.Root = getEnv("STORAGE_ROOT", c.Storage.Root)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every binary depends on. requireLLM is false
// for tools that never call the model (export, dbhealth).
func (c *Config) Validate(requireLLM bool) error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if requireLLM && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}

	v := NewValidator()
	p := c.Pipeline
	v.Field("pipeline.max_tokens", p.MaxTokens, Positive)
	v.Field("pipeline.target_tokens", p.TargetTokens, Positive, AtMost(p.MaxTokens))
	v.Field("pipeline.overlap_tokens", p.OverlapTokens, AtMost(p.TargetTokens))
	v.Field("pipeline.scanned_threshold", p.ScannedThreshold, Between(0, 100))
	v.Field("pipeline.review_threshold", p.ReviewThreshold, Between(0, 1))
	v.Field("pipeline.classification_weight", p.ClassificationWeight, Between(0, 1))
	v.Field("pipeline.policy_weight", p.PolicyWeight, Between(0, 1))
	v.Field("pipeline.coverage_weight", p.CoverageWeight, Between(0, 1))
	v.Field("pipeline.scanned_penalty", p.ScannedPenalty, Between(0, 1))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
