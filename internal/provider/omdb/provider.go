package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/Digital-Shane/omdb"
)

const (
	providerID = "omdb"

	defaultTimeout = 10 * time.Second
	healthCheckID  = "tt0133093"
)

// Capabilities lists what an OMDb instance serves.
var Capabilities = []provider.Capability{
	provider.CapabilityMetadata,
	provider.CapabilitySearch,
	provider.CapabilityExternalIDs,
	provider.CapabilityRatings,
}

// Provider is an OMDb backed instance.
type Provider struct {
	provider.Base

	client     *omdb.Client
	httpClient *http.Client
	apiKey     string
	baseURL    string
	timeout    time.Duration
}

type options struct {
	httpClient *http.Client
}

// Option customizes construction.
type Option func(*options)

// WithHTTPClient sets the HTTP client used by the OMDb client and the search
// and health endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New creates an OMDb provider. cfg.Connection.BaseURL overrides the public
// endpoint for search and health requests.
func New(cfg provider.ProviderConfig, logger log.Logger, opts ...Option) (*Provider, error) {
	base, err := provider.NewBase(cfg, logger)
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.Connection.APIKey)
	if apiKey == "" {
		return nil, provider.NewError(cfg.ID, provider.CodeMissingConfig, "omdb: api key is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Provider{
		Base:       base,
		httpClient: o.httpClient,
		apiKey:     apiKey,
		baseURL:    cfg.Connection.BaseURL,
		timeout:    cfg.Connection.Timeout,
	}
	if p.baseURL == "" {
		p.baseURL = omdb.DefaultURL
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: p.timeout}
	}
	p.client = omdb.NewClient(p.apiKey, p.httpClient)
	return p, nil
}

// Constructor returns a registry constructor for OMDb instances.
func Constructor(opts ...Option) provider.Constructor {
	return func(ctx context.Context, cfg provider.ProviderConfig, logger log.Logger) (provider.Instance, error) {
		return New(cfg, logger, opts...)
	}
}

// Register registers every OMDb capability with r under cfg.
func Register(r *registry.Registry, cfg provider.ProviderConfig, opts ...Option) error {
	ctor := Constructor(opts...)
	ctors := make(map[provider.Capability]provider.Constructor, len(Capabilities))
	for _, c := range Capabilities {
		ctors[c] = ctor
	}
	return r.RegisterProviderWithCapabilities(providerID, ctors, cfg)
}

// HealthCheck looks up a fixed IMDb id over plain HTTP.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthResult {
	return p.CheckHealth(ctx, p.timeout, func(ctx context.Context) error {
		var body struct {
			Response string
			Error    string
		}
		return p.get(ctx, map[string]string{"i": healthCheckID}, &body)
	})
}

// ValidateConfig requires an API key.
func (p *Provider) ValidateConfig(ctx context.Context) provider.ValidationResult {
	res := p.RequireAPIKey(p.ValidateConfigPresence())
	if p.baseURL != omdb.DefaultURL {
		if _, err := url.ParseRequestURI(p.baseURL); err != nil {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("omdb: invalid base url %q", p.baseURL))
		}
	}
	return res
}

// mapError classifies an OMDb failure. The client reports API failures as
// plain messages, e.g. "Invalid API key!" or "Movie not found!".
func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}
	pe := provider.Classify(p.ID(), err)
	if pe.Code == provider.CodeRateLimited {
		pe.RetryAfter = 5
	}
	return pe
}

// query runs a blocking OMDb client call bounded by ctx and the configured
// timeout.
func (p *Provider) query(ctx context.Context, fn func() (any, error)) (any, error) {
	v, err := provider.ExecuteWithTimeout(ctx, p.timeout, "omdb: request timed out", func(ctx context.Context) (any, error) {
		return fn()
	})
	return v, p.mapError(err)
}

// buildRequest constructs an HTTP request with common parameters applied.
func (p *Provider) buildRequest(ctx context.Context, params map[string]string) (*http.Request, error) {
	values := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		values.Set(k, v)
	}
	values.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = values.Encode()
	return req, nil
}

// get performs a raw API request and decodes the JSON body into out. A
// "Response": "False" body is turned into an error carrying the API message.
func (p *Provider) get(ctx context.Context, params map[string]string, out interface{}) error {
	req, err := p.buildRequest(ctx, params)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p.mapError(&provider.HTTPStatusError{Status: resp.StatusCode})
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return p.mapError(fmt.Errorf("omdb: decode response: %w", err))
	}

	var status struct {
		Response string
		Error    string
	}
	if err := json.Unmarshal(raw, &status); err == nil && strings.EqualFold(status.Response, "false") {
		return p.mapError(fmt.Errorf("omdb: %s", status.Error))
	}
	return json.Unmarshal(raw, out)
}

// parseRuntime converts runtime strings (e.g., "136 min") to minutes.
func parseRuntime(value string) int {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return minutes
}
