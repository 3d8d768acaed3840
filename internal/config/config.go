// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port             string
	FrontendURL      string
	DBPath           string
	JournalRetention time.Duration // 0 keeps journal rows forever
	Detector         DetectorConfig
	Assets           AssetConfig
	Coach            CoachConfig
}

// DetectorConfig controls the connection to the detector service.
type DetectorConfig struct {
	Addr    string
	Stub    bool // serve an empty in-process detector instead of dialing Addr
	Timeout time.Duration
}

// AssetConfig locates reference images and demonstration videos.
type AssetConfig struct {
	VideoBaseURL string
	ImageDir     string
}

// CoachConfig tunes the session state machine.
type CoachConfig struct {
	BufferCapacity     int
	StableThreshold    float64
	CompareThreshold   float64
	TimeUnit           time.Duration
	IncludeLayoutSteps bool
	ClassVote          string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", ""),
		DBPath:           getEnv("DB_PATH", "./data/coach.db"),
		JournalRetention: getEnvDuration("JOURNAL_RETENTION", 7*24*time.Hour),
		Detector: DetectorConfig{
			Addr:    getEnv("DETECTOR_ADDR", ""),
			Stub:    getEnvBool("DETECTOR_STUB", false),
			Timeout: getEnvDuration("DETECTOR_TIMEOUT", 5*time.Second),
		},
		Assets: AssetConfig{
			VideoBaseURL: getEnv("ASSET_BASE_URL", "http://localhost:9095/"),
			ImageDir:     getEnv("IMAGE_DIR", "./resources/images"),
		},
		Coach: CoachConfig{
			BufferCapacity:     getEnvInt("COACH_BUFFER_CAPACITY", 5),
			StableThreshold:    getEnvFloat("COACH_STABLE_THRESHOLD", 20),
			CompareThreshold:   getEnvFloat("COACH_COMPARE_THRESHOLD", 15),
			TimeUnit:           getEnvDuration("COACH_TIME_UNIT", time.Second),
			IncludeLayoutSteps: getEnvBool("COACH_INCLUDE_LAYOUT_STEPS", false),
			ClassVote:          getEnv("STABILITY_CLASS_VOTE", "first_seen"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Detector.Addr == "" && !c.Detector.Stub {
		return fmt.Errorf("DETECTOR_ADDR must be set unless DETECTOR_STUB is enabled")
	}
	if c.Detector.Timeout <= 0 {
		return fmt.Errorf("DETECTOR_TIMEOUT must be > 0")
	}
	if c.Coach.BufferCapacity <= 0 {
		return fmt.Errorf("COACH_BUFFER_CAPACITY must be > 0")
	}
	if c.Coach.StableThreshold <= 0 {
		return fmt.Errorf("COACH_STABLE_THRESHOLD must be > 0")
	}
	if c.Coach.CompareThreshold <= 0 {
		return fmt.Errorf("COACH_COMPARE_THRESHOLD must be > 0")
	}
	if c.Coach.TimeUnit <= 0 {
		return fmt.Errorf("COACH_TIME_UNIT must be > 0")
	}
	switch strings.ToLower(c.Coach.ClassVote) {
	case "", "first_seen", "majority":
	default:
		return fmt.Errorf("STABILITY_CLASS_VOTE must be first_seen or majority, got %q", c.Coach.ClassVote)
	}
	if c.JournalRetention < 0 {
		return fmt.Errorf("JOURNAL_RETENTION must be >= 0 (0 disables pruning)")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
