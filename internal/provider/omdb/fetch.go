package omdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/omdb"
)

// Metadata looks up a movie, series, season or episode by title or IMDb id.
func (p *Provider) Metadata(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "metadata", func(ctx context.Context) (*provider.Metadata, error) {
		return p.fetch(ctx, request)
	})
}

// ExternalIDs returns the IMDb ids OMDb knows for the request.
func (p *Provider) ExternalIDs(ctx context.Context, request provider.FetchRequest) (map[string]string, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "external_ids", func(ctx context.Context) (map[string]string, error) {
		meta, err := p.fetch(ctx, request)
		if err != nil {
			return nil, err
		}
		return meta.IDs, nil
	})
}

// Ratings returns the IMDb user rating on a ten point scale.
func (p *Provider) Ratings(ctx context.Context, request provider.FetchRequest) ([]provider.Rating, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "ratings", func(ctx context.Context) ([]provider.Rating, error) {
		meta, err := p.fetch(ctx, request)
		if err != nil {
			return nil, err
		}
		if meta.Core.Rating == 0 {
			return []provider.Rating{}, nil
		}
		return []provider.Rating{{Source: "imdb", Value: meta.Core.Rating, Scale: 10}}, nil
	})
}

func (p *Provider) fetch(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	switch request.MediaType {
	case provider.MediaTypeMovie:
		return p.fetchMovie(ctx, request)
	case provider.MediaTypeShow:
		return p.fetchShow(ctx, request)
	case provider.MediaTypeSeason:
		return p.fetchSeason(ctx, request)
	case provider.MediaTypeEpisode:
		return p.fetchEpisode(ctx, request)
	default:
		return nil, p.invalid(fmt.Sprintf("unsupported media type: %s", request.MediaType))
	}
}

func (p *Provider) invalid(msg string) error {
	return provider.NewError(p.ID(), provider.CodeInvalidRequest, msg)
}

func (p *Provider) notFound(msg string) error {
	return provider.NewError(p.ID(), provider.CodeNotFound, msg)
}

// lookup queries by IMDb id when the request carries one, by title otherwise.
func (p *Provider) lookup(ctx context.Context, request provider.FetchRequest, query omdb.QueryData) (any, error) {
	if id := strings.TrimSpace(request.ID); id != "" {
		query.ImdbID = id
		return p.query(ctx, func() (any, error) { return p.client.SearchByImdbID(query) })
	}
	if strings.TrimSpace(request.Name) == "" {
		return nil, p.invalid(fmt.Sprintf("%s fetch requires a title or an IMDb ID", request.MediaType))
	}
	query.Title = strings.TrimSpace(request.Name)
	query.Year = request.Year
	return p.query(ctx, func() (any, error) { return p.client.SearchByTitle(query) })
}

func (p *Provider) fetchMovie(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	result, err := p.lookup(ctx, request, omdb.QueryData{SearchType: "movie", Plot: "full"})
	if err != nil {
		return nil, err
	}

	switch movie := result.(type) {
	case omdb.MovieResult:
		return p.movieResultToMetadata(movie), nil
	case *omdb.MovieResult:
		return p.movieResultToMetadata(*movie), nil
	default:
		return nil, p.notFound("movie not found")
	}
}

func (p *Provider) fetchShow(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	result, err := p.lookup(ctx, request, omdb.QueryData{SearchType: "series", Plot: "full"})
	if err != nil {
		return nil, err
	}

	switch series := result.(type) {
	case omdb.SeriesResult:
		return p.seriesResultToMetadata(series), nil
	case *omdb.SeriesResult:
		return p.seriesResultToMetadata(*series), nil
	default:
		return nil, p.notFound("series not found")
	}
}

func (p *Provider) fetchSeason(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	if request.Season <= 0 {
		return nil, p.invalid("season fetch requires a valid season number")
	}

	result, err := p.lookup(ctx, request, omdb.QueryData{Season: strconv.Itoa(request.Season)})
	if err != nil {
		return nil, err
	}

	switch season := result.(type) {
	case omdb.SeasonResult:
		return p.seasonResultToMetadata(&season, request), nil
	case *omdb.SeasonResult:
		return p.seasonResultToMetadata(season, request), nil
	default:
		return nil, p.notFound("season not found")
	}
}

func (p *Provider) fetchEpisode(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	if request.Season <= 0 || request.Episode <= 0 {
		return nil, p.invalid("episode fetch requires valid season and episode numbers")
	}

	result, err := p.lookup(ctx, request, omdb.QueryData{
		Season:  strconv.Itoa(request.Season),
		Episode: strconv.Itoa(request.Episode),
		Plot:    "full",
	})
	if err != nil {
		return nil, err
	}

	switch episode := result.(type) {
	case omdb.EpisodeResult:
		return p.episodeResultToMetadata(&episode, request), nil
	case *omdb.EpisodeResult:
		return p.episodeResultToMetadata(episode, request), nil
	default:
		return nil, p.notFound("episode not found")
	}
}

// record accumulates Metadata and tracks which fields OMDb supplied.
type record struct {
	meta *provider.Metadata
}

func newRecord(core provider.CoreMetadata, confidence float64) record {
	return record{meta: &provider.Metadata{
		Core:       core,
		Extended:   make(map[string]interface{}),
		Sources:    make(map[string]string),
		IDs:        make(map[string]string),
		Confidence: confidence,
	}}
}

// mark attributes each non-empty field to OMDb.
func (r record) mark(fields map[string]bool) {
	for name, present := range fields {
		if present {
			r.meta.Sources[name] = providerID
		}
	}
}

func (r record) imdbID(key, id string) {
	if id != "" {
		r.meta.IDs[key] = id
		r.meta.Sources[key] = providerID
	}
}

func (r record) runtime(value string) {
	if minutes := parseRuntime(value); minutes > 0 {
		r.meta.Extended["runtime"] = minutes
		r.meta.Sources["runtime"] = providerID
	}
}

func (p *Provider) movieResultToMetadata(result omdb.MovieResult) *provider.Metadata {
	r := newRecord(provider.CoreMetadata{
		Title:     result.Title,
		Year:      omdb.FirstYear(result.Year),
		MediaType: provider.MediaTypeMovie,
		Overview:  result.Plot,
		Rating:    omdb.ParseRating(result.ImdbRating),
		Genres:    omdb.SplitAndTrim(result.Genre),
		Language:  result.Language,
		Country:   result.Country,
	}, 0.9)

	r.imdbID("imdb_id", result.ImdbID)
	r.runtime(result.Runtime)
	r.mark(map[string]bool{
		"title":    true,
		"year":     true,
		"rating":   true,
		"overview": result.Plot != "",
		"genres":   len(r.meta.Core.Genres) > 0,
	})
	return r.meta
}

func (p *Provider) seriesResultToMetadata(result omdb.SeriesResult) *provider.Metadata {
	r := newRecord(provider.CoreMetadata{
		Title:     result.Title,
		Year:      omdb.FirstYear(result.Year),
		MediaType: provider.MediaTypeShow,
		Overview:  result.Plot,
		Rating:    omdb.ParseRating(result.ImdbRating),
		Genres:    omdb.SplitAndTrim(result.Genre),
		Language:  result.Language,
		Country:   result.Country,
	}, 0.85)

	r.imdbID("imdb_id", result.ImdbID)
	r.runtime(result.Runtime)
	if result.TotalSeasons != "" {
		r.meta.Extended["total_seasons"] = result.TotalSeasons
	}
	r.mark(map[string]bool{
		"title":    true,
		"year":     true,
		"rating":   true,
		"overview": result.Plot != "",
		"genres":   len(r.meta.Core.Genres) > 0,
	})
	return r.meta
}

func (p *Provider) seasonResultToMetadata(resp *omdb.SeasonResult, request provider.FetchRequest) *provider.Metadata {
	title := request.Name
	if resp.Title != "" {
		title = resp.Title
	}
	r := newRecord(provider.CoreMetadata{
		Title:     title,
		Year:      omdb.FirstYearFromEpisodes(resp.Episodes),
		SeasonNum: request.Season,
		MediaType: provider.MediaTypeSeason,
	}, 0.7)

	r.imdbID("imdb_id", request.ID)
	r.meta.Extended["episode_count"] = len(resp.Episodes)
	return r.meta
}

func (p *Provider) episodeResultToMetadata(resp *omdb.EpisodeResult, request provider.FetchRequest) *provider.Metadata {
	r := newRecord(provider.CoreMetadata{
		Title:       request.Name,
		Year:        omdb.FirstYear(resp.Released),
		SeasonNum:   request.Season,
		EpisodeNum:  request.Episode,
		EpisodeName: resp.Title,
		MediaType:   provider.MediaTypeEpisode,
		Overview:    resp.Plot,
		Rating:      omdb.ParseRating(resp.ImdbRating),
		Genres:      omdb.SplitAndTrim(resp.Genre),
		Language:    resp.Language,
		Country:     resp.Country,
	}, 0.85)

	if request.Name == "" {
		r.meta.Core.Title = resp.SeriesID
	}
	r.imdbID("imdb_id", resp.ImdbID)
	if resp.SeriesID != "" {
		r.meta.IDs["series_id"] = resp.SeriesID
	}
	r.runtime(resp.Runtime)
	r.mark(map[string]bool{
		"episode_name": true,
		"rating":       true,
		"overview":     resp.Plot != "",
		"genres":       len(r.meta.Core.Genres) > 0,
	})
	return r.meta
}
