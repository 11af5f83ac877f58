package tmdb

import (
	"context"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/patrickmn/go-cache"
	"github.com/ryanbradynd05/go-tmdb"
)

const (
	providerID   = "tmdb"
	imageBaseURL = "https://image.tmdb.org/t/p/original"

	defaultLanguage      = "en-US"
	defaultCacheHours    = 168 // 7 days
	defaultMaxRetries    = 2
	defaultHealthTimeout = 10 * time.Second
)

// Capabilities lists what a TMDB instance serves.
var Capabilities = []provider.Capability{
	provider.CapabilityMetadata,
	provider.CapabilitySearch,
	provider.CapabilityExternalIDs,
	provider.CapabilityImages,
}

// Client is the subset of *tmdb.TMDb the provider uses.
type Client interface {
	SearchMovie(name string, options map[string]string) (*tmdb.MovieSearchResults, error)
	SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	GetMovieInfo(id int, options map[string]string) (*tmdb.Movie, error)
	GetTvInfo(id int, options map[string]string) (*tmdb.TV, error)
	GetTvSeasonInfo(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error)
	GetTvEpisodeInfo(showID, seasonNum, episodeNum int, options map[string]string) (*tmdb.TvEpisode, error)
}

// Provider is a TMDB backed instance. The same type serves every capability
// in Capabilities; the registry builds one instance per capability.
type Provider struct {
	provider.Base

	client        Client
	cache         *cache.Cache
	limiter       *rateLimiter
	language      string
	maxRetries    int
	healthTimeout time.Duration
}

type options struct {
	client  Client
	limiter *rateLimiter
}

// Option customizes construction.
type Option func(*options)

// WithClient replaces the go-tmdb client, e.g. with a fake in tests.
func WithClient(c Client) Option {
	return func(o *options) { o.client = c }
}

func withLimiter(l *rateLimiter) Option {
	return func(o *options) { o.limiter = l }
}

// New creates a TMDB provider from cfg. Recognized settings: language,
// cache_enabled, cache_duration (hours) and max_retries.
func New(cfg provider.ProviderConfig, logger log.Logger, opts ...Option) (*Provider, error) {
	base, err := provider.NewBase(cfg, logger)
	if err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Provider{
		Base:          base,
		client:        o.client,
		limiter:       o.limiter,
		language:      cfg.StringSetting("language", defaultLanguage),
		maxRetries:    cfg.IntSetting("max_retries", defaultMaxRetries),
		healthTimeout: cfg.Connection.Timeout,
	}
	if p.healthTimeout <= 0 {
		p.healthTimeout = defaultHealthTimeout
	}

	if p.client == nil {
		if cfg.Connection.APIKey == "" {
			return nil, provider.NewError(cfg.ID, provider.CodeMissingConfig, "tmdb: api key is required")
		}
		p.client = tmdb.Init(tmdb.Config{
			APIKey:   cfg.Connection.APIKey,
			Proxies:  nil,
			UseProxy: false,
		})
	}

	if cfg.BoolSetting("cache_enabled", true) {
		hours := cfg.IntSetting("cache_duration", defaultCacheHours)
		p.cache = cache.New(time.Duration(hours)*time.Hour, 10*time.Minute)
	}

	if p.limiter == nil {
		p.limiter = newRateLimiter(38, 10*time.Second) // 38 requests per 10 seconds
	}

	return p, nil
}

// Constructor returns a registry constructor. Instances built by one
// constructor share a rate limiter, since TMDB limits per API key.
func Constructor(opts ...Option) provider.Constructor {
	limiter := newRateLimiter(38, 10*time.Second)
	opts = append([]Option{withLimiter(limiter)}, opts...)
	return func(ctx context.Context, cfg provider.ProviderConfig, logger log.Logger) (provider.Instance, error) {
		return New(cfg, logger, opts...)
	}
}

// Register registers every TMDB capability with r under cfg.
func Register(r *registry.Registry, cfg provider.ProviderConfig, opts ...Option) error {
	ctor := Constructor(opts...)
	ctors := make(map[provider.Capability]provider.Constructor, len(Capabilities))
	for _, c := range Capabilities {
		ctors[c] = ctor
	}
	return r.RegisterProviderWithCapabilities(providerID, ctors, cfg)
}

// HealthCheck searches for a well known title.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthResult {
	return p.CheckHealth(ctx, p.healthTimeout, func(ctx context.Context) error {
		if err := p.limiter.wait(ctx); err != nil {
			return err
		}
		if _, err := p.client.SearchMovie("The Matrix", map[string]string{"language": p.language}); err != nil {
			return p.mapError(err)
		}
		return nil
	})
}

// ValidateConfig requires an API key and warns about keys that do not look
// like a TMDB v3 key.
func (p *Provider) ValidateConfig(ctx context.Context) provider.ValidationResult {
	res := p.RequireAPIKey(p.ValidateConfigPresence())
	if key := p.Config().Connection.APIKey; key != "" && len(key) != 32 {
		res.Warnings = append(res.Warnings, "tmdb: api key should be the 32 character v3 key, not the read access token")
	}
	return res
}

// mapError classifies a go-tmdb error and adds retry hints.
func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}
	pe := provider.Classify(p.ID(), err)
	switch pe.Code {
	case provider.CodeRateLimited:
		pe.RetryAfter = 10
	case provider.CodeServerError:
		pe.RetryAfter = 30
	}
	return pe
}

// call waits for the rate limiter and runs fn, retrying retryable failures.
func call[T any](ctx context.Context, p *Provider, fn func() (T, error)) (T, error) {
	return provider.ExecuteWithRetry(ctx, &p.Base, p.maxRetries, func(ctx context.Context) (T, error) {
		var zero T
		if err := p.limiter.wait(ctx); err != nil {
			return zero, err
		}
		v, err := fn()
		if err != nil {
			return zero, p.mapError(err)
		}
		return v, nil
	})
}
