package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	UpstreamBaseURL string
	FetchTimeout    time.Duration
	IdentityPool    []string

	RequestTimeout time.Duration
	CacheTTL       time.Duration

	CoalesceEnabled bool
	CoalesceTimeout time.Duration

	BreakerEnabled          bool
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerCooldown         time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	LogLevel string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Upstream struct {
		BaseURL      string   `yaml:"base_url"`
		FetchTimeout string   `yaml:"fetch_timeout"`
		IdentityPool []string `yaml:"identity_pool"`
	} `yaml:"upstream"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`

	Reliability struct {
		CoalesceEnabled         bool   `yaml:"coalesce_enabled"`
		CoalesceTimeout         string `yaml:"coalesce_timeout"`
		BreakerEnabled          bool   `yaml:"breaker_enabled"`
		BreakerFailureThreshold int    `yaml:"breaker_failure_threshold"`
		BreakerSuccessThreshold int    `yaml:"breaker_success_threshold"`
		BreakerCooldown         string `yaml:"breaker_cooldown"`
	} `yaml:"reliability"`

	Lifecycle struct {
		DegradedWindow              string `yaml:"degraded_window"`
		DegradedErrorPct            int    `yaml:"degraded_error_pct"`
		ShutdownTimeout             string `yaml:"shutdown_timeout"`
		ShutdownInFlightTimeout     string `yaml:"shutdown_inflight_timeout"`
		ShutdownInFlightCheckEvery  string `yaml:"shutdown_inflight_check_interval"`
	} `yaml:"lifecycle"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// defaultIdentityPool is the set of browser identities presented upstream when
// the config file does not override them.
var defaultIdentityPool = []string{
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), with a
// .env file and process env applied on top. Call from project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.UpstreamBaseURL = strings.TrimSpace(os.Getenv("UPSTREAM_BASE_URL"))
	if cfg.UpstreamBaseURL == "" {
		cfg.UpstreamBaseURL = strings.TrimSpace(fc.Upstream.BaseURL)
	}
	if cfg.UpstreamBaseURL == "" {
		cfg.UpstreamBaseURL = "https://yandex.ru/pogoda"
	}
	cfg.FetchTimeout = parseDuration(fc.Upstream.FetchTimeout, 10*time.Second)
	cfg.IdentityPool = fc.Upstream.IdentityPool
	if len(cfg.IdentityPool) == 0 {
		cfg.IdentityPool = defaultIdentityPool
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 15*time.Minute)

	cfg.CoalesceEnabled = fc.Reliability.CoalesceEnabled
	cfg.CoalesceTimeout = parseDuration(fc.Reliability.CoalesceTimeout, 15*time.Second)
	cfg.BreakerEnabled = fc.Reliability.BreakerEnabled
	cfg.BreakerFailureThreshold = fc.Reliability.BreakerFailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerSuccessThreshold = fc.Reliability.BreakerSuccessThreshold
	if cfg.BreakerSuccessThreshold <= 0 {
		cfg.BreakerSuccessThreshold = 2
	}
	cfg.BreakerCooldown = parseDuration(fc.Reliability.BreakerCooldown, 30*time.Second)

	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}
	cfg.ShutdownTimeout = parseDuration(fc.Lifecycle.ShutdownTimeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Lifecycle.ShutdownInFlightTimeout, 20*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Lifecycle.ShutdownInFlightCheckEvery, 100*time.Millisecond)

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = strings.TrimSpace(fc.Logging.Level)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. The request timeout must cover at
// least one upstream fetch; it is auto-adjusted when the file says otherwise.
func validate(cfg *Config) error {
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("upstream.fetch_timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.FetchTimeout {
		cfg.RequestTimeout = cfg.FetchTimeout + time.Second
	}
	for _, identity := range cfg.IdentityPool {
		if strings.TrimSpace(identity) == "" {
			return fmt.Errorf("upstream.identity_pool must not contain empty entries")
		}
	}
	return nil
}
