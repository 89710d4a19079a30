package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ModelProfile configures one logical model profile. The primary
// profile handles generation, review, and fix; the analysis profile
// handles gap detection with a smaller output budget.
type ModelProfile struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

type Config struct {
	Port string

	// Auth
	DocforgeAPIKey string

	// SQLite database path
	DBPath string

	// Model profiles
	Primary  ModelProfile
	Analysis ModelProfile

	// Per-call timeouts
	GenerateTimeout time.Duration
	AnalysisTimeout time.Duration
	ReviewTimeout   time.Duration

	// Worker pool
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration

	// Content-source page lister
	PagesBaseURL string
	PagesToken   string
}

func Load() Config {
	// .env is optional; env vars win.
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocforgeAPIKey: os.Getenv("DOCFORGE_API_KEY"),

		DBPath: envOr("DOCFORGE_DB_PATH", "docforge.db"),

		Primary: ModelProfile{
			Provider:    envOr("PRIMARY_PROVIDER", "anthropic"),
			Model:       envOr("PRIMARY_MODEL", "claude-sonnet-4-5-20250929"),
			APIKey:      os.Getenv("PRIMARY_API_KEY"),
			BaseURL:     os.Getenv("PRIMARY_BASE_URL"),
			Temperature: envFloat("PRIMARY_TEMPERATURE", 0.3),
			MaxTokens:   envInt("PRIMARY_MAX_TOKENS", 8192),
		},
		Analysis: ModelProfile{
			Provider:    envOr("ANALYSIS_PROVIDER", ""),
			Model:       envOr("ANALYSIS_MODEL", ""),
			APIKey:      os.Getenv("ANALYSIS_API_KEY"),
			BaseURL:     os.Getenv("ANALYSIS_BASE_URL"),
			Temperature: envFloat("ANALYSIS_TEMPERATURE", 0.5),
			MaxTokens:   envInt("ANALYSIS_MAX_TOKENS", 1024),
		},

		GenerateTimeout: envDuration("GENERATE_TIMEOUT", 120*time.Second),
		AnalysisTimeout: envDuration("ANALYSIS_TIMEOUT", 60*time.Second),
		ReviewTimeout:   envDuration("REVIEW_TIMEOUT", 60*time.Second),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),
		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),

		PagesBaseURL: os.Getenv("PAGES_BASE_URL"),
		PagesToken:   os.Getenv("PAGES_TOKEN"),
	}

	// Analysis profile falls back to the primary credentials.
	if cfg.Analysis.Provider == "" {
		cfg.Analysis.Provider = cfg.Primary.Provider
	}
	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = cfg.Primary.Model
	}
	if cfg.Analysis.APIKey == "" {
		cfg.Analysis.APIKey = cfg.Primary.APIKey
	}
	if cfg.Analysis.BaseURL == "" {
		cfg.Analysis.BaseURL = cfg.Primary.BaseURL
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate is the only place the service hard-fails: configuration
// errors are detected at startup, outside the per-request path.
func (c Config) Validate() error {
	if c.DocforgeAPIKey == "" {
		return fmt.Errorf("DOCFORGE_API_KEY is required")
	}
	if c.Primary.APIKey == "" {
		return fmt.Errorf("PRIMARY_API_KEY is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DOCFORGE_DB_PATH is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
