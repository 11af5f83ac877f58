package tvdb

import (
	"context"
	"strings"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/metahub/internal/registry"
	tvdbapi "github.com/dashotv/tvdb"
	"github.com/dashotv/tvdb/openapi/models/operations"
)

const (
	providerID = "tvdb"

	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 2
)

// Capabilities lists what a TVDB instance serves.
var Capabilities = []provider.Capability{
	provider.CapabilityMetadata,
	provider.CapabilitySearch,
	provider.CapabilityExternalIDs,
}

// Client captures the dashotv client methods used by this provider.
type Client interface {
	GetSearchResults(request operations.GetSearchResultsRequest) (*tvdbapi.GetSearchResultsResponse, error)
	GetSeriesExtended(id float64, meta *operations.GetSeriesExtendedQueryParamMeta, short *bool) (*tvdbapi.GetSeriesExtendedResponse, error)
	GetMovieExtended(id float64, meta *operations.QueryParamMeta, short *bool) (*tvdbapi.GetMovieExtendedResponse, error)
	GetSeriesEpisodes(request operations.GetSeriesEpisodesRequest) (*tvdbapi.GetSeriesEpisodesResponse, error)
}

// LoginFunc exchanges an API key for an authenticated client.
type LoginFunc func(apiKey string) (Client, error)

func defaultLogin(apiKey string) (Client, error) {
	return tvdbapi.Login(apiKey)
}

// Provider is a TVDB backed instance.
type Provider struct {
	provider.Base

	client     Client
	timeout    time.Duration
	maxRetries int
}

type options struct {
	login LoginFunc
}

// Option customizes construction.
type Option func(*options)

// WithLogin replaces tvdbapi.Login, e.g. with a fake in tests.
func WithLogin(fn LoginFunc) Option {
	return func(o *options) { o.login = fn }
}

// New logs in to TVDB and returns a provider. Login is a network round trip
// and is abandoned when ctx ends.
func New(ctx context.Context, cfg provider.ProviderConfig, logger log.Logger, opts ...Option) (*Provider, error) {
	base, err := provider.NewBase(cfg, logger)
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.Connection.APIKey)
	if apiKey == "" {
		return nil, provider.NewError(cfg.ID, provider.CodeMissingConfig, "tvdb: api key is required")
	}

	o := options{login: defaultLogin}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Provider{
		Base:       base,
		timeout:    cfg.Connection.Timeout,
		maxRetries: cfg.IntSetting("max_retries", defaultMaxRetries),
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}

	client, err := provider.ExecuteWithTimeout(ctx, p.timeout, "tvdb: login timed out", func(ctx context.Context) (Client, error) {
		return o.login(apiKey)
	})
	if err != nil {
		return nil, p.mapError(err)
	}
	p.client = client
	return p, nil
}

// Constructor returns a registry constructor for TVDB instances.
func Constructor(opts ...Option) provider.Constructor {
	return func(ctx context.Context, cfg provider.ProviderConfig, logger log.Logger) (provider.Instance, error) {
		return New(ctx, cfg, logger, opts...)
	}
}

// Register registers every TVDB capability with r under cfg.
func Register(r *registry.Registry, cfg provider.ProviderConfig, opts ...Option) error {
	ctor := Constructor(opts...)
	ctors := make(map[provider.Capability]provider.Constructor, len(Capabilities))
	for _, c := range Capabilities {
		ctors[c] = ctor
	}
	return r.RegisterProviderWithCapabilities(providerID, ctors, cfg)
}

// HealthCheck runs a small series search.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthResult {
	return p.CheckHealth(ctx, p.timeout, func(ctx context.Context) error {
		query := "The Office"
		kind := "series"
		_, err := p.client.GetSearchResults(operations.GetSearchResultsRequest{Query: &query, Type: &kind})
		return p.mapError(err)
	})
}

// ValidateConfig requires an API key.
func (p *Provider) ValidateConfig(ctx context.Context) provider.ValidationResult {
	return p.RequireAPIKey(p.ValidateConfigPresence())
}

// mapError classifies a TVDB failure. The dashotv client surfaces HTTP
// failures as formatted messages.
func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}
	pe := provider.Classify(p.ID(), err)
	switch pe.Code {
	case provider.CodeRateLimited:
		pe.RetryAfter = 5
	case provider.CodeServerError:
		pe.RetryAfter = 30
	}
	return pe
}

// call runs a blocking client call bounded by the request timeout, retrying
// retryable failures.
func call[T any](ctx context.Context, p *Provider, fn func() (T, error)) (T, error) {
	return provider.ExecuteWithRetry(ctx, &p.Base, p.maxRetries, func(ctx context.Context) (T, error) {
		v, err := provider.ExecuteWithTimeout(ctx, p.timeout, "tvdb: request timed out", func(ctx context.Context) (T, error) {
			return fn()
		})
		if err != nil {
			var zero T
			return zero, p.mapError(err)
		}
		return v, nil
	})
}
