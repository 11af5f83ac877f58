// Package bootstrap wires the built-in providers into a registry. It lives
// apart from the provider packages to avoid import cycles.
package bootstrap

import (
	"fmt"

	"github.com/Digital-Shane/metahub/internal/config"
	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider/ffprobe"
	"github.com/Digital-Shane/metahub/internal/provider/local"
	"github.com/Digital-Shane/metahub/internal/provider/omdb"
	"github.com/Digital-Shane/metahub/internal/provider/tmdb"
	"github.com/Digital-Shane/metahub/internal/provider/tvdb"
	"github.com/Digital-Shane/metahub/internal/registry"
)

// Options passes construction options through to the provider packages.
type Options struct {
	TMDB []tmdb.Option
	OMDB []omdb.Option
	TVDB []tvdb.Option
}

// NewRegistry builds a registry from cfg and loads the enabled built-in
// providers into it.
func NewRegistry(cfg *config.Config, logger log.Logger, opts Options) (*registry.Registry, error) {
	r := registry.New(cfg.Registry, logger)
	if _, err := LoadBuiltinProviders(r, cfg.Providers, opts); err != nil {
		r.Shutdown()
		return nil, err
	}
	return r, nil
}

// LoadBuiltinProviders registers every enabled built-in provider with r and
// returns their identities in registration order.
func LoadBuiltinProviders(r *registry.Registry, providers config.ProvidersConfig, opts Options) ([]string, error) {
	builtins := []struct {
		enabled  bool
		id       string
		register func() error
	}{
		{providers.TMDB.Enabled, "tmdb", func() error {
			return tmdb.Register(r, providers.TMDB.ProviderConfig(), opts.TMDB...)
		}},
		{providers.OMDB.Enabled, "omdb", func() error {
			return omdb.Register(r, providers.OMDB.ProviderConfig(), opts.OMDB...)
		}},
		{providers.TVDB.Enabled, "tvdb", func() error {
			return tvdb.Register(r, providers.TVDB.ProviderConfig(), opts.TVDB...)
		}},
		{providers.FFProbe.Enabled, "ffprobe", func() error {
			return ffprobe.Register(r, providers.FFProbe.ProviderConfig())
		}},
		{providers.Local.Enabled, "local", func() error {
			return local.Register(r, providers.Local.ProviderConfig())
		}},
	}

	var loaded []string
	for _, b := range builtins {
		if !b.enabled {
			continue
		}
		if err := b.register(); err != nil {
			return loaded, fmt.Errorf("failed to register %s provider: %w", b.id, err)
		}
		loaded = append(loaded, b.id)
	}
	return loaded, nil
}
