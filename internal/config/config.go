// Package config loads the radar configuration from a YAML file, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	radar "github.com/krisalay/package-radar"
	"github.com/krisalay/package-radar/engine"
	"github.com/krisalay/package-radar/eviction"
	"github.com/krisalay/package-radar/internal/logging"
	"github.com/krisalay/package-radar/retry"
	"github.com/krisalay/package-radar/types"
)

// Environment variables that override the file.
const (
	EnvConfigPath   = "RADAR_CONFIG"
	EnvLogLevel     = "RADAR_LOG_LEVEL"
	EnvLogFormat    = "RADAR_LOG_FORMAT"
	EnvListenAddr   = "RADAR_LISTEN_ADDR"
	EnvMaxRetries   = "RADAR_MAX_RETRIES"
	EnvRetryDelay   = "RADAR_RETRY_DELAY"
	EnvSingleFlight = "RADAR_SINGLE_FLIGHT"
	EnvNpmURL       = "RADAR_NPM_URL"
	EnvGitHubURL    = "RADAR_GITHUB_URL"
	EnvGitHubToken  = "GITHUB_TOKEN"
)

// DefaultPath is read when no path is given and RADAR_CONFIG is unset.
const DefaultPath = "radar.yaml"

// Config errors.
var (
	ErrInvalidTTL      = errors.New("ttl must be positive")
	ErrInvalidRetry    = errors.New("retry settings must not be negative")
	ErrInvalidCapacity = errors.New("capacity must not be negative")
)

// Config is the whole radar configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Registry RegistryConfig `yaml:"registry"`
	Server   ServerConfig   `yaml:"server"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, console, json
}

// CacheConfig controls the radar store.
type CacheConfig struct {
	TTL           TTLConfig     `yaml:"ttl"`
	Retry         retry.Policy  `yaml:"retry"`
	SingleFlight  bool          `yaml:"single_flight"`
	Capacity      int           `yaml:"capacity"`
	Eviction      string        `yaml:"eviction"`
	SlidingExpiry bool          `yaml:"sliding_expiry"`
	MaxAge        time.Duration `yaml:"max_age"`
	JanitorEvery  time.Duration `yaml:"janitor_interval"`
}

// TTLConfig holds one TTL per namespace.
type TTLConfig struct {
	Dashboard time.Duration `yaml:"dashboard"`
	Timeline  time.Duration `yaml:"timeline"`
	Changelog time.Duration `yaml:"changelog"`
}

// RegistryConfig points the clients at their upstreams.
type RegistryConfig struct {
	NpmURL      string        `yaml:"npm_url"`
	GitHubURL   string        `yaml:"github_url"`
	GitHubToken string        `yaml:"github_token"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// ServerConfig controls `radar serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: logging.FormatAuto},
		Cache: CacheConfig{
			TTL: TTLConfig{
				Dashboard: types.Dashboard.DefaultTTL(),
				Timeline:  types.Timeline.DefaultTTL(),
				Changelog: types.Changelog.DefaultTTL(),
			},
			Retry:        retry.DefaultPolicy(),
			SingleFlight: true,
			Eviction:     string(eviction.LRU),
			JanitorEvery: time.Minute,
		},
		Registry: RegistryConfig{
			NpmURL:      "https://registry.npmjs.org",
			GitHubURL:   "https://api.github.com",
			Timeout:     15 * time.Second,
			Concurrency: 4,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

/*
Load reads path over the defaults, then applies environment overrides.

An empty path falls back to $RADAR_CONFIG, then DefaultPath. A missing file is
not an error when the path was not given explicitly.
*/
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfigPath); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultPath
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvNpmURL); ok && v != "" {
		c.Registry.NpmURL = v
	}
	if v, ok := lookup(EnvGitHubURL); ok && v != "" {
		c.Registry.GitHubURL = v
	}
	if v, ok := lookup(EnvGitHubToken); ok && v != "" && c.Registry.GitHubToken == "" {
		c.Registry.GitHubToken = v
	}
	if v, ok := lookup(EnvMaxRetries); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxRetries, err)
		}
		c.Cache.Retry.MaxRetries = n
	}
	if v, ok := lookup(EnvRetryDelay); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRetryDelay, err)
		}
		c.Cache.Retry.BaseDelay = d
	}
	if v, ok := lookup(EnvSingleFlight); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSingleFlight, err)
		}
		c.Cache.SingleFlight = b
	}
	return nil
}

// Validate checks the values the radar cannot run with.
func (c Config) Validate() error {
	ttls := map[string]time.Duration{
		"dashboard": c.Cache.TTL.Dashboard,
		"timeline":  c.Cache.TTL.Timeline,
		"changelog": c.Cache.TTL.Changelog,
	}
	for _, ns := range types.Namespaces() {
		if ttls[ns.String()] <= 0 {
			return fmt.Errorf("cache.ttl.%s: %w", ns, ErrInvalidTTL)
		}
	}
	if c.Cache.Retry.MaxRetries < 0 || c.Cache.Retry.BaseDelay < 0 {
		return ErrInvalidRetry
	}
	if c.Cache.Capacity < 0 {
		return ErrInvalidCapacity
	}
	if _, err := eviction.ParsePolicyType(c.Cache.Eviction); err != nil {
		return fmt.Errorf("cache.eviction: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatAuto, logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// Radar converts the cache section into the store configuration.
func (c Config) Radar() radar.Config {
	policy, _ := eviction.ParsePolicyType(c.Cache.Eviction)
	return radar.Config{
		TTLs: engine.TTLs{
			types.Dashboard: c.Cache.TTL.Dashboard,
			types.Timeline:  c.Cache.TTL.Timeline,
			types.Changelog: c.Cache.TTL.Changelog,
		},
		Retry:         c.Cache.Retry,
		SingleFlight:  c.Cache.SingleFlight,
		Capacity:      c.Cache.Capacity,
		Eviction:      policy,
		SlidingExpiry: c.Cache.SlidingExpiry,
		MaxAge:        c.Cache.MaxAge,
	}
}

// Logging converts the log section into the logger configuration.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Registry.GitHubToken != "" {
		c.Registry.GitHubToken = "********"
	}
	return c
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
