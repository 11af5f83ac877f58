package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. METAHUB_PROVIDERS_TMDB_API_KEY.
const EnvPrefix = "METAHUB"

// Config is the complete metahub configuration.
type Config struct {
	Logging   log.Config      `json:"logging" mapstructure:"logging"`
	Registry  registry.Config `json:"registry" mapstructure:"registry"`
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`
}

// ProvidersConfig holds the settings of the built-in providers.
type ProvidersConfig struct {
	TMDB    TMDBConfig    `json:"tmdb" mapstructure:"tmdb"`
	OMDB    OMDBConfig    `json:"omdb" mapstructure:"omdb"`
	TVDB    TVDBConfig    `json:"tvdb" mapstructure:"tvdb"`
	FFProbe FFProbeConfig `json:"ffprobe" mapstructure:"ffprobe"`
	Local   LocalConfig   `json:"local" mapstructure:"local"`
}

// TMDBConfig configures The Movie Database provider.
type TMDBConfig struct {
	Enabled       bool          `json:"enabled" mapstructure:"enabled"`
	APIKey        string        `json:"api_key" mapstructure:"api_key"`
	Language      string        `json:"language" mapstructure:"language"`
	Priority      int           `json:"priority" mapstructure:"priority"`
	CacheEnabled  bool          `json:"cache_enabled" mapstructure:"cache_enabled"`
	CacheDuration int           `json:"cache_duration" mapstructure:"cache_duration"` // hours
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
}

// OMDBConfig configures the Open Movie Database provider.
type OMDBConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	APIKey   string        `json:"api_key" mapstructure:"api_key"`
	BaseURL  string        `json:"base_url" mapstructure:"base_url"`
	Priority int           `json:"priority" mapstructure:"priority"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// TVDBConfig configures TheTVDB provider.
type TVDBConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	APIKey   string        `json:"api_key" mapstructure:"api_key"`
	Priority int           `json:"priority" mapstructure:"priority"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// FFProbeConfig configures the local ffprobe provider.
type FFProbeConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Binary   string        `json:"binary" mapstructure:"binary"`
	Priority int           `json:"priority" mapstructure:"priority"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// LocalConfig configures the filename parsing provider.
type LocalConfig struct {
	Enabled  bool `json:"enabled" mapstructure:"enabled"`
	Priority int  `json:"priority" mapstructure:"priority"`
}

// DefaultConfig returns the default configuration. Only ffprobe and the
// filename parser are enabled since the other providers need API keys.
func DefaultConfig() *Config {
	return &Config{
		Logging:  log.DefaultConfig(),
		Registry: registry.DefaultConfig(),
		Providers: ProvidersConfig{
			TMDB: TMDBConfig{
				Language:      "en-US",
				Priority:      10,
				CacheEnabled:  true,
				CacheDuration: 24,
			},
			OMDB: OMDBConfig{
				Priority: 20,
			},
			TVDB: TVDBConfig{
				Priority: 30,
			},
			FFProbe: FFProbeConfig{
				Enabled:  true,
				Binary:   "ffprobe",
				Priority: 50,
			},
			Local: LocalConfig{
				Enabled:  true,
				Priority: 90,
			},
		},
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".metahub", "config.json"), nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.development", cfg.Logging.Development)
	v.SetDefault("logging.output_paths", cfg.Logging.OutputPaths)

	r := cfg.Registry
	v.SetDefault("registry.health_check_interval", r.HealthCheckInterval)
	v.SetDefault("registry.health_check_timeout", r.HealthCheckTimeout)
	v.SetDefault("registry.health_check_concurrency", r.HealthCheckConcurrency)
	v.SetDefault("registry.max_retries", r.MaxRetries)
	v.SetDefault("registry.stale_cleanup_enabled", r.StaleCleanupEnabled)
	v.SetDefault("registry.stale_instance_max_age", r.StaleInstanceMaxAge)
	v.SetDefault("registry.resolve_timeout", r.ResolveTimeout)
	v.SetDefault("registry.max_providers", r.MaxProviders)

	p := cfg.Providers
	v.SetDefault("providers.tmdb.enabled", p.TMDB.Enabled)
	v.SetDefault("providers.tmdb.api_key", p.TMDB.APIKey)
	v.SetDefault("providers.tmdb.language", p.TMDB.Language)
	v.SetDefault("providers.tmdb.priority", p.TMDB.Priority)
	v.SetDefault("providers.tmdb.cache_enabled", p.TMDB.CacheEnabled)
	v.SetDefault("providers.tmdb.cache_duration", p.TMDB.CacheDuration)
	v.SetDefault("providers.tmdb.timeout", p.TMDB.Timeout)

	v.SetDefault("providers.omdb.enabled", p.OMDB.Enabled)
	v.SetDefault("providers.omdb.api_key", p.OMDB.APIKey)
	v.SetDefault("providers.omdb.base_url", p.OMDB.BaseURL)
	v.SetDefault("providers.omdb.priority", p.OMDB.Priority)
	v.SetDefault("providers.omdb.timeout", p.OMDB.Timeout)

	v.SetDefault("providers.tvdb.enabled", p.TVDB.Enabled)
	v.SetDefault("providers.tvdb.api_key", p.TVDB.APIKey)
	v.SetDefault("providers.tvdb.priority", p.TVDB.Priority)
	v.SetDefault("providers.tvdb.timeout", p.TVDB.Timeout)

	v.SetDefault("providers.ffprobe.enabled", p.FFProbe.Enabled)
	v.SetDefault("providers.ffprobe.binary", p.FFProbe.Binary)
	v.SetDefault("providers.ffprobe.priority", p.FFProbe.Priority)
	v.SetDefault("providers.ffprobe.timeout", p.FFProbe.Timeout)

	v.SetDefault("providers.local.enabled", p.Local.Enabled)
	v.SetDefault("providers.local.priority", p.Local.Priority)
}

// Load reads the configuration at path, or ConfigPath when path is empty.
// A missing file yields the defaults. METAHUB_* environment variables
// override file values.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadFile is Load without environment overrides. Use it before Save so
// values from the environment are not written to disk.
func LoadFile(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, env bool) (*Config, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to path, or ConfigPath when path is empty.
func (cfg *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Set assigns value to a dotted key such as providers.tmdb.api_key. The value
// is decoded into the field's type.
func (cfg *Config) Set(key, value string) error {
	v := viper.New()
	setDefaults(v, cfg)

	key = strings.ToLower(strings.TrimSpace(key))
	if !slices.Contains(v.AllKeys(), key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	v.Set(key, value)

	var updated Config
	if err := v.Unmarshal(&updated); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*cfg = updated
	return nil
}

// Redacted returns a copy with API keys masked, for display.
func (cfg Config) Redacted() Config {
	cfg.Providers.TMDB.APIKey = mask(cfg.Providers.TMDB.APIKey)
	cfg.Providers.OMDB.APIKey = mask(cfg.Providers.OMDB.APIKey)
	cfg.Providers.TVDB.APIKey = mask(cfg.Providers.TVDB.APIKey)
	cfg.Logging.OutputPaths = slices.Clone(cfg.Logging.OutputPaths)
	return cfg
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// ProviderConfig converts the TMDB section to a registry provider config.
func (c TMDBConfig) ProviderConfig() provider.ProviderConfig {
	return provider.ProviderConfig{
		ID:       "tmdb",
		Name:     "The Movie Database",
		Type:     "metadata",
		Enabled:  c.Enabled,
		Priority: c.Priority,
		Connection: provider.ConnectionConfig{
			APIKey:  c.APIKey,
			Timeout: c.Timeout,
		},
		Settings: map[string]interface{}{
			"language":       c.Language,
			"cache_enabled":  c.CacheEnabled,
			"cache_duration": c.CacheDuration,
		},
	}
}

// ProviderConfig converts the OMDb section to a registry provider config.
func (c OMDBConfig) ProviderConfig() provider.ProviderConfig {
	return provider.ProviderConfig{
		ID:       "omdb",
		Name:     "Open Movie Database",
		Type:     "metadata",
		Enabled:  c.Enabled,
		Priority: c.Priority,
		Connection: provider.ConnectionConfig{
			BaseURL: c.BaseURL,
			APIKey:  c.APIKey,
			Timeout: c.Timeout,
		},
	}
}

// ProviderConfig converts the TVDB section to a registry provider config.
func (c TVDBConfig) ProviderConfig() provider.ProviderConfig {
	return provider.ProviderConfig{
		ID:       "tvdb",
		Name:     "TheTVDB",
		Type:     "metadata",
		Enabled:  c.Enabled,
		Priority: c.Priority,
		Connection: provider.ConnectionConfig{
			APIKey:  c.APIKey,
			Timeout: c.Timeout,
		},
	}
}

// ProviderConfig converts the ffprobe section to a registry provider config.
func (c FFProbeConfig) ProviderConfig() provider.ProviderConfig {
	return provider.ProviderConfig{
		ID:       "ffprobe",
		Name:     "ffprobe",
		Type:     "local",
		Enabled:  c.Enabled,
		Priority: c.Priority,
		Connection: provider.ConnectionConfig{
			Timeout: c.Timeout,
		},
		Settings: map[string]interface{}{
			"binary": c.Binary,
		},
	}
}

// ProviderConfig converts the local section to a registry provider config.
func (c LocalConfig) ProviderConfig() provider.ProviderConfig {
	return provider.ProviderConfig{
		ID:       "local",
		Name:     "Filename parser",
		Type:     "local",
		Enabled:  c.Enabled,
		Priority: c.Priority,
	}
}
