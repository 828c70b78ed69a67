package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/redinsight/agent/internal/validator"
)

// Config holds every runtime option the core consumes. Values come from
// environment variables with sensible defaults; only the Gemini key and the
// platform cookies are genuinely optional (the agent degrades without them).
type Config struct {
	Port string `validate:"required"`

	// Platform acquisition.
	PlatformBaseURL   string        `validate:"required,url"`
	RedbookCookies    string        // "name=value; name2=value2"
	RateLimitInterval time.Duration `validate:"gt=0"`
	MaxRetries        int           `validate:"gte=0,lte=10"`
	RetryBackoffBase  time.Duration `validate:"gt=0"`

	// Orchestration.
	RequestTimeout       time.Duration `validate:"gt=0"`
	AuthFailureThreshold int           `validate:"gte=1"`
	ContextWindowTurns   int           `validate:"gte=1"`

	// Aggregation defaults.
	TopKDefault     int `validate:"gte=1"`
	MaxItemsDefault int `validate:"gte=1"`

	// Completion collaborator.
	GeminiAPIKey string
	GeminiModel  string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            envOr("PORT", "8080"),
		PlatformBaseURL: envOr("PLATFORM_BASE_URL", "https://www.xiaohongshu.com"),
		RedbookCookies:  os.Getenv("REDBOOK_COOKIES"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     envOr("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	if cfg.RedbookCookies == "" {
		slog.Warn("REDBOOK_COOKIES not set, platform requests will fail authentication")
	}
	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, intent classification falls back to keyword rules and guides degrade to templates")
	}

	var err error
	if cfg.RateLimitInterval, err = durationOr("RATE_LIMIT_INTERVAL", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryBackoffBase, err = durationOr("RETRY_BACKOFF_BASE", time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = durationOr("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = intOr("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.AuthFailureThreshold, err = intOr("AUTH_FAILURE_THRESHOLD", 3); err != nil {
		return nil, err
	}
	if cfg.ContextWindowTurns, err = intOr("CONTEXT_WINDOW_TURNS", 5); err != nil {
		return nil, err
	}
	if cfg.TopKDefault, err = intOr("TOP_K_DEFAULT", 10); err != nil {
		return nil, err
	}
	if cfg.MaxItemsDefault, err = intOr("MAX_ITEMS_DEFAULT", 10); err != nil {
		return nil, err
	}

	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func intOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
