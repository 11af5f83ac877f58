package provider

import (
	"context"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
)

// Instance is the contract every constructed provider satisfies regardless of
// which capability it was constructed for. Capability specific operations
// live on the per-capability interfaces below.
type Instance interface {
	// Identification
	ID() string
	Name() string
	Type() string

	// Configuration. Config returns a copy; mutating it has no effect on the
	// instance.
	Config() ProviderConfig
	IsEnabled() bool
	Priority() int

	// Health and validation. Failures are reported as data, never panics.
	HealthCheck(ctx context.Context) HealthResult
	ValidateConfig(ctx context.Context) ValidationResult
}

// Constructor builds an Instance for one (provider, capability) pair.
// Construction may block, e.g. to log in or warm up a connection, and must
// honor ctx cancellation.
type Constructor func(ctx context.Context, cfg ProviderConfig, logger log.Logger) (Instance, error)

// HealthResult is the outcome of a single health check.
type HealthResult struct {
	Healthy      bool
	ResponseTime time.Duration
	Error        string
	Timestamp    time.Time
}

// ValidationResult reports configuration problems without failing.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// CatalogProvider lists curated catalogs (popular, trending, ...).
type CatalogProvider interface {
	Instance
	Catalog(ctx context.Context, request CatalogRequest) ([]CatalogItem, error)
}

// MetadataProvider looks up detailed metadata for a title.
type MetadataProvider interface {
	Instance
	Metadata(ctx context.Context, request FetchRequest) (*Metadata, error)
}

// SearchProvider runs free-text searches.
type SearchProvider interface {
	Instance
	Search(ctx context.Context, request SearchRequest) ([]SearchResult, error)
}

// PersonProvider looks up cast and crew.
type PersonProvider interface {
	Instance
	Person(ctx context.Context, id string) (*Person, error)
}

// RecommendationsProvider returns titles similar to the requested one.
type RecommendationsProvider interface {
	Instance
	Recommendations(ctx context.Context, request FetchRequest) ([]SearchResult, error)
}

// ExternalIDsProvider maps a title onto identifiers in other databases.
type ExternalIDsProvider interface {
	Instance
	ExternalIDs(ctx context.Context, request FetchRequest) (map[string]string, error)
}

// RatingsProvider returns ratings from one or more sources.
type RatingsProvider interface {
	Instance
	Ratings(ctx context.Context, request FetchRequest) ([]Rating, error)
}

// CommentsProvider returns user comments or reviews.
type CommentsProvider interface {
	Instance
	Comments(ctx context.Context, request FetchRequest) ([]Comment, error)
}

// TrackingProvider records watch activity with a tracking service.
type TrackingProvider interface {
	Instance
	Track(ctx context.Context, event TrackingEvent) error
}

// AddonCatalogProvider lists catalogs published by add-ons.
type AddonCatalogProvider interface {
	Instance
	AddonCatalogs(ctx context.Context) ([]AddonCatalog, error)
}

// ImagesProvider returns artwork for a title.
type ImagesProvider interface {
	Instance
	Images(ctx context.Context, request FetchRequest) ([]Image, error)
}

// StreamsProvider describes playable streams.
type StreamsProvider interface {
	Instance
	Streams(ctx context.Context, request StreamRequest) ([]Stream, error)
}

// SubtitlesProvider returns subtitle tracks.
type SubtitlesProvider interface {
	Instance
	Subtitles(ctx context.Context, request FetchRequest) ([]Subtitle, error)
}
