// Package local reads metadata out of media file and folder names. It needs
// no network access and no API key.
package local

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/metahub/internal/registry"
)

const (
	providerID  = "local"
	filePathKey = "path"
)

// Capabilities lists what a local instance serves.
var Capabilities = []provider.Capability{
	provider.CapabilityMetadata,
}

// Provider parses names; it never touches the file system.
type Provider struct {
	provider.Base
}

// New creates a filename parsing provider.
func New(cfg provider.ProviderConfig, logger log.Logger) (*Provider, error) {
	base, err := provider.NewBase(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Provider{Base: base}, nil
}

// Constructor returns a registry constructor for local instances.
func Constructor() provider.Constructor {
	return func(ctx context.Context, cfg provider.ProviderConfig, logger log.Logger) (provider.Instance, error) {
		return New(cfg, logger)
	}
}

// Register registers every local capability with r under cfg.
func Register(r *registry.Registry, cfg provider.ProviderConfig) error {
	ctor := Constructor()
	ctors := make(map[provider.Capability]provider.Constructor, len(Capabilities))
	for _, c := range Capabilities {
		ctors[c] = ctor
	}
	return r.RegisterProviderWithCapabilities(providerID, ctors, cfg)
}

// HealthCheck always reports healthy.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthResult {
	return p.CheckHealth(ctx, time.Second, func(context.Context) error { return nil })
}

// Metadata parses request.Extra["path"], falling back to request.Name.
// The parsed media type wins over request.MediaType; a file named like an
// episode is an episode whatever the caller guessed.
func (p *Provider) Metadata(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "metadata", func(ctx context.Context) (*provider.Metadata, error) {
		path := request.Name
		if v, ok := request.Extra[filePathKey].(string); ok && strings.TrimSpace(v) != "" {
			path = v
		}
		if strings.TrimSpace(path) == "" {
			return nil, provider.NewError(p.ID(), provider.CodeInvalidRequest, "local parsing requires a name or path")
		}

		parsed := Parse(path)
		if parsed.Title == "" {
			return nil, provider.NewError(p.ID(), provider.CodeNotFound, fmt.Sprintf("no title found in %q", path))
		}
		return buildMetadata(parsed, request), nil
	})
}

func buildMetadata(parsed Parsed, request provider.FetchRequest) *provider.Metadata {
	meta := &provider.Metadata{
		Core: provider.CoreMetadata{
			Title:       parsed.Title,
			Year:        parsed.Year,
			MediaType:   parsed.MediaType,
			SeasonNum:   parsed.Season,
			EpisodeNum:  parsed.Episode,
			EpisodeName: parsed.EpisodeTitle,
			Language:    request.Language,
		},
		Extended:   make(map[string]interface{}),
		Sources:    make(map[string]string),
		IDs:        make(map[string]string),
		Confidence: confidence(parsed),
	}

	sources := []string{"title"}
	if parsed.Year != "" {
		sources = append(sources, "year")
	}
	if parsed.MediaType == provider.MediaTypeEpisode || parsed.MediaType == provider.MediaTypeSeason {
		sources = append(sources, "season")
	}
	if parsed.MediaType == provider.MediaTypeEpisode {
		sources = append(sources, "episode")
	}
	if parsed.EpisodeTitle != "" {
		sources = append(sources, "episode_name")
	}
	for _, field := range sources {
		meta.Sources[field] = providerID
	}

	if parsed.Extension != "" {
		meta.Extended["extension"] = parsed.Extension
	}
	return meta
}

// confidence scores how much of the name could be pinned down.
func confidence(parsed Parsed) float64 {
	switch {
	case parsed.MediaType == provider.MediaTypeEpisode && parsed.Season > 0:
		return 0.9
	case parsed.Year != "":
		return 0.8
	default:
		return 0.5
	}
}
