// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database settings
	DatabaseURL string

	// Embedding provider settings
	GeminiAPIKey     string
	EmbeddingModel   string
	MaxEmbedRequests int // daily budget, 0 = unlimited

	// Feed settings
	FeedsConfigPath string
	FetchTimeout    time.Duration
	RefreshSchedule string // cron spec for the refresh cycle

	// Deduplication
	SimilarityThreshold float64 // cosine similarity above which titles are the same story

	// Search scoring
	LexicalWeight   float64
	SemanticWeight  float64
	HybridWeight    float64
	RecencyWeight   float64
	MinHybridScore  float64
	DecayWindowDays float64

	// Recommendation
	HistoryLength int
	DecayStrength float64
	RecencyFactor float64

	// Articles are normalized into this zone before storage
	DisplayTimeZone string

	// Provider call policy
	RetryAttempts int
	RetryDelay    time.Duration

	// Query embedding cache
	QueryCacheTTL time.Duration

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		FeedsConfigPath:     "configs/feeds.yaml",
		FetchTimeout:        30 * time.Second,
		RefreshSchedule:     "@every 30m",
		EmbeddingModel:      "text-embedding-004",
		SimilarityThreshold: 0.9,
		LexicalWeight:       0.6,
		SemanticWeight:      0.4,
		HybridWeight:        0.35,
		RecencyWeight:       0.65,
		MinHybridScore:      0.18,
		DecayWindowDays:     30,
		HistoryLength:       10,
		DecayStrength:       1.0,
		RecencyFactor:       0.3,
		DisplayTimeZone:     "Asia/Kolkata",
		RetryAttempts:       3,
		RetryDelay:          2 * time.Second,
		QueryCacheTTL:       15 * time.Minute,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Debug = os.Getenv("DEBUG") == "true"

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.RefreshSchedule = getEnvOrDefault("REFRESH_SCHEDULE", cfg.RefreshSchedule)
	cfg.EmbeddingModel = getEnvOrDefault("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.DisplayTimeZone = getEnvOrDefault("DISPLAY_TIMEZONE", cfg.DisplayTimeZone)

	cfg.MaxEmbedRequests = getEnvIntOrDefault("MAX_EMBED_REQUESTS", cfg.MaxEmbedRequests)
	cfg.HistoryLength = getEnvIntOrDefault("HISTORY_LENGTH", cfg.HistoryLength)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	cfg.SimilarityThreshold = getEnvFloatOrDefault("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.LexicalWeight = getEnvFloatOrDefault("LEXICAL_WEIGHT", cfg.LexicalWeight)
	cfg.SemanticWeight = getEnvFloatOrDefault("SEMANTIC_WEIGHT", cfg.SemanticWeight)
	cfg.HybridWeight = getEnvFloatOrDefault("HYBRID_WEIGHT", cfg.HybridWeight)
	cfg.RecencyWeight = getEnvFloatOrDefault("RECENCY_WEIGHT", cfg.RecencyWeight)
	cfg.MinHybridScore = getEnvFloatOrDefault("MIN_HYBRID_SCORE", cfg.MinHybridScore)
	cfg.DecayWindowDays = getEnvFloatOrDefault("DECAY_WINDOW_DAYS", cfg.DecayWindowDays)
	cfg.DecayStrength = getEnvFloatOrDefault("DECAY_STRENGTH", cfg.DecayStrength)
	cfg.RecencyFactor = getEnvFloatOrDefault("RECENCY_FACTOR", cfg.RecencyFactor)

	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.FetchTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("RETRY_DELAY_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RetryDelay = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("QUERY_CACHE_TTL_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.QueryCacheTTL = time.Duration(val) * time.Minute
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would make scoring nonsensical.
// Misconfigured weights are a programmer error and must stop startup.
func (c *Config) Validate() error {
	if err := checkWeightPair("lexical/semantic", c.LexicalWeight, c.SemanticWeight); err != nil {
		return err
	}
	if err := checkWeightPair("hybrid/recency", c.HybridWeight, c.RecencyWeight); err != nil {
		return err
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold %.2f out of (0,1]", c.SimilarityThreshold)
	}
	if c.MinHybridScore < 0 || c.MinHybridScore > 1 {
		return fmt.Errorf("min hybrid score %.2f out of [0,1]", c.MinHybridScore)
	}
	if c.DecayWindowDays <= 0 {
		return fmt.Errorf("decay window must be positive, got %.2f", c.DecayWindowDays)
	}
	if c.HistoryLength <= 0 {
		return fmt.Errorf("history length must be positive, got %d", c.HistoryLength)
	}
	if c.DecayStrength <= 0 {
		return fmt.Errorf("decay strength must be positive, got %.2f", c.DecayStrength)
	}
	if c.RecencyFactor < 0 || c.RecencyFactor > 1 {
		return fmt.Errorf("recency factor %.2f out of [0,1]", c.RecencyFactor)
	}
	return nil
}

func checkWeightPair(name string, a, b float64) error {
	if a < 0 || b < 0 {
		return fmt.Errorf("%s weights must be non-negative, got %.2f/%.2f", name, a, b)
	}
	if math.Abs(a+b-1.0) > 1e-6 {
		return fmt.Errorf("%s weights must sum to 1, got %.2f+%.2f", name, a, b)
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return def
}
