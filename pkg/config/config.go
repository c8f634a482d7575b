package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSearchURL is the directory search scraped when SEARCH_URL is unset.
const DefaultSearchURL = "https://www.doctoralia.com.br/pesquisa?q=&loc=S%C3%A3o%20Paulo&filters%5Bentity_type%5D%5B0%5D=doctor&filters%5Bdistricts%5D%5B0%5D=3631&filters%5Bdistricts%5D%5B1%5D=147&filters%5Bdistricts%5D%5B2%5D=51&filters%5Bdistricts%5D%5B3%5D=2813&filters%5Bdistricts%5D%5B4%5D=445&filters%5Bdistricts%5D%5B5%5D=353&filters%5Bdistricts%5D%5B6%5D=190&filters%5Bdistricts%5D%5B7%5D=615&filters%5Bdistricts%5D%5B8%5D=555&filters%5Bdistricts%5D%5B9%5D=127&filters%5Bdistricts%5D%5B10%5D=62&filters%5Bdistricts%5D%5B11%5D=7354&filters%5Bdistricts%5D%5B12%5D=79"

// listSeparator splits multi-valued settings. User agents contain commas.
const listSeparator = "|"

// Config stores all configuration for the application.
type Config struct {
	SearchURL string `mapstructure:"SEARCH_URL"`
	BaseURL   string `mapstructure:"BASE_URL"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"` // "sqlite" or "postgres"
	DBPath        string `mapstructure:"DB_PATH"`
	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	FailureLedger string `mapstructure:"FAILURE_LEDGER"` // "store" or "redis"

	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB"`
	FailureTTLHours int    `mapstructure:"FAILURE_TTL_HOURS"`

	Workers                  int     `mapstructure:"WORKERS"`
	MaxAttempts              int     `mapstructure:"MAX_ATTEMPTS"`
	RetryInitialDelaySeconds float64 `mapstructure:"RETRY_INITIAL_DELAY_SECONDS"`
	RetryMaxDelaySeconds     float64 `mapstructure:"RETRY_MAX_DELAY_SECONDS"`
	RetryMultiplier          float64 `mapstructure:"RETRY_MULTIPLIER"`
	RetryJitter              float64 `mapstructure:"RETRY_JITTER"`
	BlockedMultiplier        float64 `mapstructure:"BLOCKED_MULTIPLIER"`
	RequestTimeoutSeconds    int     `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	RequestsPerSecond        float64 `mapstructure:"REQUESTS_PER_SECOND"`
	RequestBurst             int     `mapstructure:"REQUEST_BURST"`

	ChallengeMarkers string `mapstructure:"CHALLENGE_MARKERS"`
	UserAgents       string `mapstructure:"USER_AGENTS"`
	Proxies          string `mapstructure:"PROXIES"`

	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"` // "json" or "console"
}

// Load reads configuration from an optional env file and the environment.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	// A missing file is fine: production is configured purely through the environment.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SEARCH_URL", DefaultSearchURL)
	v.SetDefault("BASE_URL", "https://www.doctoralia.com.br")
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "profiles.db")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("FAILURE_LEDGER", "store")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("FAILURE_TTL_HOURS", 24*7)
	v.SetDefault("WORKERS", 8)
	v.SetDefault("MAX_ATTEMPTS", 4)
	v.SetDefault("RETRY_INITIAL_DELAY_SECONDS", 10)
	v.SetDefault("RETRY_MAX_DELAY_SECONDS", 60)
	v.SetDefault("RETRY_MULTIPLIER", 2)
	v.SetDefault("RETRY_JITTER", 0.2)
	v.SetDefault("BLOCKED_MULTIPLIER", 2)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 15)
	v.SetDefault("REQUESTS_PER_SECOND", 2)
	v.SetDefault("REQUEST_BURST", 1)
	// Markers must only occur on interstitials. Cloudflare injects its
	// challenge-platform beacon into ordinary pages, and reCAPTCHA widgets
	// appear on normal forms, so neither is listed.
	v.SetDefault("CHALLENGE_MARKERS", strings.Join([]string{
		"<title>Just a moment...</title>",
		"cf-browser-verification",
		"window._cf_chl_opt",
		"captcha-delivery",
		"px-captcha",
	}, listSeparator))
	v.SetDefault("USER_AGENTS", strings.Join([]string{
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
	}, listSeparator))
	v.SetDefault("PROXIES", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.SearchURL); err != nil {
		return fmt.Errorf("SEARCH_URL: %w", err)
	}
	switch c.StoreDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite store")
		}
	case "postgres":
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be sqlite or postgres, got %q", c.StoreDriver)
	}
	if c.FailureLedger != "store" && c.FailureLedger != "redis" {
		return fmt.Errorf("FAILURE_LEDGER must be store or redis, got %q", c.FailureLedger)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be at least 1")
	}
	if c.RetryMultiplier < 1 || c.BlockedMultiplier < 1 {
		return fmt.Errorf("RETRY_MULTIPLIER and BLOCKED_MULTIPLIER must be at least 1")
	}
	if c.RetryJitter < 0 || c.RetryJitter >= 1 {
		return fmt.Errorf("RETRY_JITTER must be in [0, 1)")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("REQUESTS_PER_SECOND must not be negative")
	}
	return nil
}

func (c *Config) RetryInitialDelay() time.Duration {
	return secondsToDuration(c.RetryInitialDelaySeconds)
}

func (c *Config) RetryMaxDelay() time.Duration {
	return secondsToDuration(c.RetryMaxDelaySeconds)
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) FailureTTL() time.Duration {
	return time.Duration(c.FailureTTLHours) * time.Hour
}

func (c *Config) ChallengeMarkerList() []string { return splitList(c.ChallengeMarkers) }
func (c *Config) UserAgentList() []string       { return splitList(c.UserAgents) }
func (c *Config) ProxyList() []string           { return splitList(c.Proxies) }

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
