package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type lookupFlags struct {
	year    string
	limit   int
	details bool
}

func newLookupCommand(opts *rootOptions) *cobra.Command {
	var flags lookupFlags

	cmd := &cobra.Command{
		Use:   "lookup <movie|show> <title>",
		Short: "Search every search provider for a title",
		Long: `Resolve all search providers, query them concurrently and print the hits of
each. With --details, the best metadata provider is asked for the full record
of the title as well.`,
		Example: `  metahub lookup movie "The Matrix" --year 1999
  metahub lookup show Severance --details`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaType, err := parseLookupType(args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")

			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			request := provider.SearchRequest{Query: title, MediaType: mediaType, Year: flags.year}
			if err := a.lookup(cmd.Context(), request, flags.limit); err != nil {
				return err
			}
			if flags.details {
				return a.details(cmd.Context(), provider.FetchRequest{MediaType: mediaType, Name: title, Year: flags.year})
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.year, "year", "", "Release or first air year")
	f.IntVar(&flags.limit, "limit", 5, "Maximum hits shown per provider")
	f.BoolVar(&flags.details, "details", false, "Also fetch full metadata")
	return cmd
}

func parseLookupType(s string) (provider.MediaType, error) {
	switch strings.ToLower(s) {
	case "movie", "movies":
		return provider.MediaTypeMovie, nil
	case "show", "shows", "tv", "series":
		return provider.MediaTypeShow, nil
	}
	return "", fmt.Errorf("unknown media type %q (want movie or show)", s)
}

type searchOutcome struct {
	providerID string
	hits       []provider.SearchResult
	err        error
}

func (a *app) lookup(ctx context.Context, request provider.SearchRequest, limit int) error {
	results := a.registry.ResolveMultipleCapabilities(ctx, provider.CapabilitySearch)
	if len(results) == 0 {
		return fmt.Errorf("no search providers available; enable tmdb, omdb or tvdb in the config")
	}

	outcomes := make([]searchOutcome, len(results))
	g, gctx := errgroup.WithContext(ctx)
	for i, res := range results {
		searcher, ok := res.Provider.(provider.SearchProvider)
		if !ok {
			continue
		}
		g.Go(func() error {
			hits, err := searcher.Search(gctx, request)
			outcomes[i] = searchOutcome{providerID: res.ProviderID, hits: hits, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var rows [][]string
	for _, o := range outcomes {
		if o.err != nil {
			fmt.Fprintf(a.errOut, "%s %s: %v\n", a.theme.Icon("unhealthy"), o.providerID, o.err)
			a.registry.Factory().RecordInstanceError(o.providerID, provider.CapabilitySearch, o.err)
			continue
		}
		for i, hit := range o.hits {
			if limit > 0 && i >= limit {
				break
			}
			rows = append(rows, []string{o.providerID, hit.Title, hit.Year, string(hit.MediaType), hit.ID})
		}
	}

	if len(rows) == 0 {
		a.printf("No results for %q.\n", request.Query)
		return nil
	}
	a.header(a.theme.Icon(string(request.MediaType)) + " " + request.Query)
	a.table([]string{"PROVIDER", "TITLE", "YEAR", "TYPE", "ID"}, rows)
	return nil
}

func (a *app) details(ctx context.Context, request provider.FetchRequest) error {
	res := a.registry.ResolveCapability(ctx, provider.CapabilityMetadata, registry.WithExclude("ffprobe", "local"))
	if res == nil {
		return fmt.Errorf("no metadata provider available")
	}
	fetcher, ok := res.Provider.(provider.MetadataProvider)
	if !ok {
		return fmt.Errorf("provider %s does not serve metadata", res.ProviderID)
	}

	meta, err := fetcher.Metadata(ctx, request)
	if err != nil {
		a.registry.Factory().RecordInstanceError(res.ProviderID, provider.CapabilityMetadata, err)
		return fmt.Errorf("%s: %w", res.ProviderID, err)
	}

	rows := [][]string{
		{"title", meta.Core.Title},
		{"year", meta.Core.Year},
		{"rating", fmt.Sprintf("%.1f", meta.Core.Rating)},
		{"genres", strings.Join(meta.Core.Genres, ", ")},
		{"overview", truncate(meta.Core.Overview, 80)},
	}
	for _, key := range []string{"imdb_id", "tmdb_id", "tvdb_id"} {
		if id := meta.IDs[key]; id != "" {
			rows = append(rows, []string{key, id})
		}
	}

	a.header("Details from " + res.ProviderID)
	a.table([]string{"FIELD", "VALUE"}, rows)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
