package registry

import (
	"maps"
	"time"
)

// Config holds the registry tunables. Zero durations and counts are replaced
// by the defaults from DefaultConfig.
type Config struct {
	HealthCheckInterval    time.Duration `json:"health_check_interval" mapstructure:"health_check_interval"`
	HealthCheckTimeout     time.Duration `json:"health_check_timeout" mapstructure:"health_check_timeout"`
	HealthCheckConcurrency int           `json:"health_check_concurrency" mapstructure:"health_check_concurrency"`
	MaxRetries             int           `json:"max_retries" mapstructure:"max_retries"`
	StaleCleanupEnabled    bool          `json:"stale_cleanup_enabled" mapstructure:"stale_cleanup_enabled"`
	StaleInstanceMaxAge    time.Duration `json:"stale_instance_max_age" mapstructure:"stale_instance_max_age"`
	ResolveTimeout         time.Duration `json:"resolve_timeout" mapstructure:"resolve_timeout"`
	MaxProviders           int           `json:"max_providers" mapstructure:"max_providers"`
}

// DefaultConfig returns the registry defaults.
func DefaultConfig() Config {
	return Config{
		HealthCheckInterval:    5 * time.Minute,
		HealthCheckTimeout:     10 * time.Second,
		HealthCheckConcurrency: 4,
		MaxRetries:             3,
		StaleCleanupEnabled:    true,
		StaleInstanceMaxAge:    30 * time.Minute,
		ResolveTimeout:         30 * time.Second,
		MaxProviders:           5,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = def.HealthCheckInterval
	}
	if c.HealthCheckTimeout <= 0 {
		c.HealthCheckTimeout = def.HealthCheckTimeout
	}
	if c.HealthCheckConcurrency <= 0 {
		c.HealthCheckConcurrency = def.HealthCheckConcurrency
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.StaleInstanceMaxAge <= 0 {
		c.StaleInstanceMaxAge = def.StaleInstanceMaxAge
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = def.ResolveTimeout
	}
	if c.MaxProviders <= 0 {
		c.MaxProviders = def.MaxProviders
	}
	return c
}

// PriorityOrder selects the sort direction of candidates.
type PriorityOrder int

const (
	// Ascending prefers lower priority numbers.
	Ascending PriorityOrder = iota
	Descending
)

// ResolveOptions controls candidate selection for one resolution.
type ResolveOptions struct {
	EnabledOnly   bool
	HealthyOnly   bool
	MaxProviders  int // 0 means no limit
	Timeout       time.Duration
	PriorityOrder PriorityOrder
	Exclude       []string
	Include       []string
	Hints         map[string]string // opaque caller context, logged only
}

// ResolveOption adjusts ResolveOptions.
type ResolveOption func(*ResolveOptions)

func (r *Registry) resolveOptions(opts []ResolveOption) ResolveOptions {
	o := ResolveOptions{
		EnabledOnly:  true,
		HealthyOnly:  true,
		MaxProviders: r.cfg.MaxProviders,
		Timeout:      r.cfg.ResolveTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithEnabledOnly toggles skipping disabled providers. Default true.
func WithEnabledOnly(v bool) ResolveOption {
	return func(o *ResolveOptions) { o.EnabledOnly = v }
}

// WithHealthyOnly toggles skipping unhealthy providers. Default true.
// Providers that have not been checked yet are never skipped.
func WithHealthyOnly(v bool) ResolveOption {
	return func(o *ResolveOptions) { o.HealthyOnly = v }
}

// WithMaxProviders caps the number of candidates. Zero disables the cap.
func WithMaxProviders(n int) ResolveOption {
	return func(o *ResolveOptions) {
		if n >= 0 {
			o.MaxProviders = n
		}
	}
}

// WithTimeout sets the whole-batch deadline.
func WithTimeout(d time.Duration) ResolveOption {
	return func(o *ResolveOptions) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithPriorityOrder sets the sort direction.
func WithPriorityOrder(order PriorityOrder) ResolveOption {
	return func(o *ResolveOptions) { o.PriorityOrder = order }
}

// WithExclude drops the named providers.
func WithExclude(ids ...string) ResolveOption {
	return func(o *ResolveOptions) { o.Exclude = append(o.Exclude, ids...) }
}

// WithInclude restricts candidates to the named providers.
func WithInclude(ids ...string) ResolveOption {
	return func(o *ResolveOptions) { o.Include = append(o.Include, ids...) }
}

// WithHints attaches opaque caller context to the resolution.
func WithHints(hints map[string]string) ResolveOption {
	return func(o *ResolveOptions) {
		if o.Hints == nil {
			o.Hints = make(map[string]string, len(hints))
		}
		maps.Copy(o.Hints, hints)
	}
}
