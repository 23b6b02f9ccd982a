package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by PAGESCOPE_BACKEND
const (
	BackendStatic   = "static"
	BackendRendered = "rendered"
)

// Config represents the application configuration
type Config struct {
	// Environment
	Environment string `yaml:"environment"`
	Backend     string `yaml:"backend"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	// Persistence
	OutputDir string `yaml:"output_dir"`

	// Static fetch configuration
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language"`
	FetchRetries   int           `yaml:"fetch_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`

	// Browser configuration
	Headless          bool          `yaml:"headless"`
	Stealth           bool          `yaml:"stealth"`
	BrowserBin        string        `yaml:"browser_bin"`
	BrowserRemoteURL  string        `yaml:"browser_remote_url"`
	Locale            string        `yaml:"locale"`
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	WaitLoad          bool          `yaml:"wait_load"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`

	// Query configuration
	LinkLimit      int `yaml:"link_limit"`
	PrettyMaxLines int `yaml:"pretty_max_lines"`

	// Memcache configuration
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	MemcacheAddr string        `yaml:"memcache_addr"`

	// Redis configuration
	RedisAddr            string `yaml:"redis_addr"`
	RedisDB              int    `yaml:"redis_db"`
	RedisStream          string `yaml:"redis_stream"`
	RedisStreamCount     int    `yaml:"redis_stream_count"`
	RedisStreamMaxLength int    `yaml:"redis_stream_max_length"`

	// Worker configuration
	WatchInterval time.Duration `yaml:"watch_interval"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Environment:          "development",
		Backend:              BackendStatic,
		LogFile:              "pagescope.log",
		OutputDir:            ".",
		FetchTimeout:         10 * time.Second,
		FetchRetries:         2,
		RetryDelay:           500 * time.Millisecond,
		Headless:             true,
		Locale:               "ja",
		ViewportWidth:        1920,
		ViewportHeight:       1080,
		SettleDelay:          2 * time.Second,
		LinkLimit:            10,
		PrettyMaxLines:       50,
		RedisDB:              0,
		RedisStream:          "pagescope_reports",
		RedisStreamCount:     1,
		RedisStreamMaxLength: 1000,
		WatchInterval:        60 * time.Second,
	}
}

// Load reads defaults, then the YAML file at path (if any), then environment variables
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("PAGESCOPE_ENVIRONMENT", c.Environment)
	c.Backend = strings.ToLower(getEnv("PAGESCOPE_BACKEND", c.Backend))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)

	c.FetchTimeout = getEnvSeconds("FETCH_TIMEOUT_SECONDS", c.FetchTimeout)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.AcceptLanguage = getEnv("ACCEPT_LANGUAGE", c.AcceptLanguage)
	c.FetchRetries = getEnvInt("FETCH_RETRIES", c.FetchRetries)
	c.RetryDelay = time.Duration(getEnvInt("RETRY_DELAY_MS", int(c.RetryDelay/time.Millisecond))) * time.Millisecond

	c.Headless = getEnvBool("BROWSER_HEADLESS", c.Headless)
	c.Stealth = getEnvBool("BROWSER_STEALTH", c.Stealth)
	c.BrowserBin = getEnv("BROWSER_BIN", c.BrowserBin)
	c.BrowserRemoteURL = getEnv("BROWSER_REMOTE_URL", c.BrowserRemoteURL)
	c.Locale = getEnv("BROWSER_LOCALE", c.Locale)
	c.ViewportWidth = getEnvInt("VIEWPORT_WIDTH", c.ViewportWidth)
	c.ViewportHeight = getEnvInt("VIEWPORT_HEIGHT", c.ViewportHeight)
	c.SettleDelay = time.Duration(getEnvInt("SETTLE_DELAY_MS", int(c.SettleDelay/time.Millisecond))) * time.Millisecond
	c.WaitLoad = getEnvBool("BROWSER_WAIT_LOAD", c.WaitLoad)
	c.NavigationTimeout = getEnvSeconds("NAVIGATION_TIMEOUT_SECONDS", c.NavigationTimeout)

	c.LinkLimit = getEnvInt("LINK_LIMIT", c.LinkLimit)
	c.PrettyMaxLines = getEnvInt("PRETTY_MAX_LINES", c.PrettyMaxLines)

	c.CacheTTL = getEnvSeconds("CACHE_TTL_SECONDS", c.CacheTTL)
	c.MemcacheAddr = getEnv("MEMCACHE_ADDR", c.MemcacheAddr)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisStream = getEnv("REDIS_STREAM", c.RedisStream)
	c.RedisStreamCount = getEnvInt("REDIS_STREAM_COUNT", c.RedisStreamCount)
	c.RedisStreamMaxLength = getEnvInt("REDIS_STREAM_MAX_LENGTH", c.RedisStreamMaxLength)

	c.WatchInterval = getEnvSeconds("WATCH_INTERVAL_SECONDS", c.WatchInterval)
}

// Validate checks the configuration for values no component can work with
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendStatic, BackendRendered:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendStatic, BackendRendered)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("fetch retries must not be negative, got %d", c.FetchRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay)
	}
	if c.NavigationTimeout < 0 {
		return fmt.Errorf("navigation timeout must not be negative, got %s", c.NavigationTimeout)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay must not be negative, got %s", c.SettleDelay)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.LinkLimit <= 0 {
		return fmt.Errorf("link limit must be positive, got %d", c.LinkLimit)
	}
	if c.PrettyMaxLines <= 0 {
		return fmt.Errorf("pretty max lines must be positive, got %d", c.PrettyMaxLines)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %s", c.CacheTTL)
	}
	if c.RedisAddr != "" && c.RedisStreamCount <= 0 {
		return fmt.Errorf("redis stream count must be positive, got %d", c.RedisStreamCount)
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", c.WatchInterval)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return time.Duration(n) * time.Second
}
