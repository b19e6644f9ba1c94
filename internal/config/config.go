// Package config loads runtime settings from the environment and an optional
// YAML file with pipeline tuning.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dubai-rentals/internal/reconcile"
	"dubai-rentals/internal/scraper"
	"dubai-rentals/internal/validate"
)

var (
	ErrInvalidConcurrency = errors.New("MAX_CONCURRENT_REQUESTS must be at least 1")
	ErrInvalidTimeout     = errors.New("REQUEST_TIMEOUT must be positive")
	ErrInvalidThreshold   = errors.New("cross-validation threshold must be between 0 and 1")
	ErrInvalidBounds      = errors.New("validator bounds are inconsistent")
	ErrInvalidPort        = errors.New("SERVER_PORT must be between 1 and 65535")
	ErrNoSources          = errors.New("every source is disabled")
)

// Pipeline holds the tuning knobs read from PIPELINE_CONFIG
type Pipeline struct {
	Validator      validate.Config `yaml:"validator"`
	Threshold      float64         `yaml:"cross_validation_threshold"`
	Adapter        scraper.Options `yaml:"adapter"`
	FallbackCount  int             `yaml:"fallback_count"`
	FallbackSeed   uint64          `yaml:"fallback_seed"`
	DisableSources []string        `yaml:"disable_sources"`
}

// DefaultPipeline returns the built-in tuning
func DefaultPipeline() Pipeline {
	return Pipeline{
		Validator:     validate.DefaultConfig(),
		Threshold:     reconcile.DefaultThreshold,
		Adapter:       scraper.DefaultOptions(),
		FallbackCount: 6,
	}
}

// Enabled reports whether a source has not been disabled
func (p Pipeline) Enabled(source string) bool {
	for _, s := range p.DisableSources {
		if strings.EqualFold(strings.TrimSpace(s), source) {
			return false
		}
	}
	return true
}

// Config holds all application configuration
type Config struct {
	ScrapingBeeAPIKey string
	DLDAPIKey         string
	DLDBaseURL        string

	RequestTimeout        time.Duration
	MaxConcurrentRequests int
	RequestDelay          time.Duration
	HostRPS               float64
	UseFallbackData       bool

	UseBrowser  bool
	Headless    bool
	BrowserPath string

	DatabaseURL string
	ServerPort  int
	LogLevel    string

	PipelineFile string
	Pipeline     Pipeline
}

// Load reads .env (if present), the environment and the pipeline file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		ScrapingBeeAPIKey: getEnv("SCRAPINGBEE_API_KEY", ""),
		DLDAPIKey:         getEnv("DLD_API_KEY", ""),
		DLDBaseURL:        getEnv("DLD_BASE_URL", ""),

		RequestTimeout:        getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxConcurrentRequests: getEnvAsInt("MAX_CONCURRENT_REQUESTS", 3),
		RequestDelay:          getEnvAsDuration("REQUEST_DELAY", 1500*time.Millisecond),
		HostRPS:               getEnvAsFloat("HOST_RPS", 0.5),
		UseFallbackData:       getEnvAsBool("USE_FALLBACK_DATA", true),

		UseBrowser:  getEnvAsBool("USE_BROWSER", false),
		Headless:    getEnvAsBool("BROWSER_HEADLESS", true),
		BrowserPath: getEnv("CHROME_PATH", ""),

		DatabaseURL: getEnv("DATABASE_URL", "data/dubai-rentals.db"),
		ServerPort:  getEnvAsInt("SERVER_PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		PipelineFile: getEnv("PIPELINE_CONFIG", ""),
		Pipeline:     DefaultPipeline(),
	}

	if cfg.PipelineFile != "" {
		p, err := LoadPipeline(cfg.PipelineFile)
		if err != nil {
			return nil, err
		}
		cfg.Pipeline = p
	}

	// Environment wins over the file for the shared knobs
	cfg.Pipeline.Adapter.Timeout = cfg.RequestTimeout
	cfg.Pipeline.Adapter.UseFallback = cfg.Pipeline.Adapter.UseFallback && cfg.UseFallbackData

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPipeline reads a YAML tuning file. Fields missing from the file keep their defaults.
func LoadPipeline(path string) (Pipeline, error) {
	p := DefaultPipeline()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing pipeline config %s: %w", path, err)
	}
	return p, nil
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.MaxConcurrentRequests < 1 {
		return ErrInvalidConcurrency
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidPort
	}
	return c.Pipeline.Validate()
}

// Validate checks the tuning values
func (p Pipeline) Validate() error {
	if p.Threshold <= 0 || p.Threshold >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, p.Threshold)
	}

	v := p.Validator
	switch {
	case v.MinRent <= 0 || v.MaxRent <= v.MinRent:
		return fmt.Errorf("%w: rent band %v-%v", ErrInvalidBounds, v.MinRent, v.MaxRent)
	case v.MinPricePerSqft < 0 || v.MaxPricePerSqft <= v.MinPricePerSqft:
		return fmt.Errorf("%w: price per sqft band %v-%v", ErrInvalidBounds, v.MinPricePerSqft, v.MaxPricePerSqft)
	case v.MaxBedrooms < 0:
		return fmt.Errorf("%w: max bedrooms %d", ErrInvalidBounds, v.MaxBedrooms)
	case v.ValidAbove < 0 || v.ValidAbove >= 1:
		return fmt.Errorf("%w: valid_above %v", ErrInvalidBounds, v.ValidAbove)
	}

	for _, name := range scraper.SourceNames {
		if p.Enabled(name) {
			return nil
		}
	}
	return ErrNoSources
}

// IsPostgres reports whether DatabaseURL points at PostgreSQL
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using %v", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s=%q, using %v", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("45s") or plain milliseconds ("1500")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if ms, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// Scraper builds the orchestrator settings from the loaded configuration
func (c *Config) Scraper() scraper.Config {
	sc := scraper.DefaultConfig()
	sc.ScrapingBeeAPIKey = c.ScrapingBeeAPIKey
	sc.DLDAPIKey = c.DLDAPIKey
	sc.DLDBaseURL = c.DLDBaseURL
	sc.MaxConcurrent = c.MaxConcurrentRequests
	sc.DelayBetween = c.RequestDelay
	sc.HostRPS = c.HostRPS
	sc.UseBrowser = c.UseBrowser
	sc.Headless = c.Headless
	sc.BrowserPath = c.BrowserPath

	sc.Sources = nil
	for _, name := range scraper.SourceNames {
		if c.Pipeline.Enabled(name) {
			sc.Sources = append(sc.Sources, name)
		}
	}
	sc.FallbackSeed = c.Pipeline.FallbackSeed
	sc.FallbackCount = c.Pipeline.FallbackCount
	sc.Validator = c.Pipeline.Validator
	sc.Threshold = c.Pipeline.Threshold
	sc.Options = c.Pipeline.Adapter
	return sc
}
