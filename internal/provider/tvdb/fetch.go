package tvdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/Digital-Shane/metahub/internal/provider"
	tvdbapi "github.com/dashotv/tvdb"
	"github.com/dashotv/tvdb/openapi/models/operations"
	"github.com/dashotv/tvdb/openapi/models/shared"
)

// Metadata looks up a movie, series, season or episode.
func (p *Provider) Metadata(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "metadata", func(ctx context.Context) (*provider.Metadata, error) {
		return p.fetch(ctx, request)
	})
}

// ExternalIDs returns the TVDB id and any IMDb id TVDB links to.
func (p *Provider) ExternalIDs(ctx context.Context, request provider.FetchRequest) (map[string]string, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "external_ids", func(ctx context.Context) (map[string]string, error) {
		meta, err := p.fetch(ctx, request)
		if err != nil {
			return nil, err
		}
		return meta.IDs, nil
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

// builder accumulates Metadata and marks which fields TVDB supplied.
type builder struct {
	meta *provider.Metadata
}

func newBuilder(core provider.CoreMetadata, confidence float64, tvdbID int64) builder {
	b := builder{meta: &provider.Metadata{
		Core:       core,
		Extended:   make(map[string]interface{}),
		Sources:    make(map[string]string),
		IDs:        make(map[string]string),
		Confidence: confidence,
	}}
	if tvdbID > 0 {
		b.meta.IDs["tvdb_id"] = fmt.Sprint(tvdbID)
	}
	return b
}

func (b builder) markCore() {
	c := b.meta.Core
	for field, present := range map[string]bool{
		"title":        c.Title != "",
		"year":         c.Year != "",
		"overview":     c.Overview != "",
		"rating":       c.Rating > 0,
		"genres":       len(c.Genres) > 0,
		"episode_name": c.EpisodeName != "",
	} {
		if present {
			b.meta.Sources[field] = providerID
		}
	}
}

func (b builder) runtime(minutes *int64) {
	if m := deref(minutes); m > 0 {
		b.meta.Extended["runtime"] = int(m)
		b.meta.Sources["runtime"] = providerID
	}
}

func (b builder) imdb(ids []shared.RemoteID) {
	if imdbID := findRemoteID(ids, "imdb"); imdbID != "" {
		b.meta.IDs["imdb_id"] = imdbID
		b.meta.Sources["imdb_id"] = providerID
	}
}

func (p *Provider) fetchMovie(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	record, err := p.searchRecord(ctx, request, "movie")
	if err != nil {
		return nil, err
	}

	meta := operations.QueryParamMetaTranslations
	resp, err := call(ctx, p, func() (*tvdbapi.GetMovieExtendedResponse, error) {
		return p.client.GetMovieExtended(float64(record.ID), &meta, nil)
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Data == nil {
		return nil, p.notFound("movie not found")
	}

	movie := resp.Data
	genres := make([]string, 0, len(movie.Genres))
	for _, g := range movie.Genres {
		if name := str(g.Name); name != "" {
			genres = append(genres, name)
		}
	}

	b := newBuilder(provider.CoreMetadata{
		Title:     firstNonEmpty(str(movie.Name), record.Name),
		Year:      firstNonEmpty(str(movie.Year), record.Year),
		MediaType: provider.MediaTypeMovie,
		Rating:    score(movie.Score),
		Genres:    genres,
	}, 0.9, record.ID)
	b.runtime(movie.Runtime)
	b.imdb(movie.RemoteIds)
	b.markCore()
	return b.meta, nil
}

func (p *Provider) fetchShow(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	record, err := p.searchRecord(ctx, request, "series")
	if err != nil {
		return nil, err
	}

	meta := operations.GetSeriesExtendedQueryParamMetaTranslations
	resp, err := call(ctx, p, func() (*tvdbapi.GetSeriesExtendedResponse, error) {
		return p.client.GetSeriesExtended(float64(record.ID), &meta, nil)
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Data == nil {
		return nil, p.notFound("series not found")
	}

	series := resp.Data
	genres := make([]string, 0, len(series.Genres))
	for _, g := range series.Genres {
		if name := str(g.Name); name != "" {
			genres = append(genres, name)
		}
	}

	b := newBuilder(provider.CoreMetadata{
		Title:     firstNonEmpty(str(series.Name), record.Name),
		Year:      firstNonEmpty(str(series.Year), record.Year),
		MediaType: provider.MediaTypeShow,
		Overview:  str(series.Overview),
		Rating:    score(series.Score),
		Genres:    genres,
		Country:   str(series.Country),
		Language:  str(series.OriginalLanguage),
	}, 0.9, record.ID)

	var networks []string
	if series.OriginalNetwork != nil {
		if name := str(series.OriginalNetwork.Name); name != "" {
			networks = append(networks, name)
		}
	}
	if series.LatestNetwork != nil {
		if name := str(series.LatestNetwork.Name); name != "" && !containsFold(networks, name) {
			networks = append(networks, name)
		}
	}
	if len(networks) > 0 {
		b.meta.Extended["networks"] = strings.Join(networks, ", ")
		b.meta.Sources["networks"] = providerID
	}

	b.runtime(series.AverageRuntime)
	b.imdb(series.RemoteIds)
	b.markCore()
	return b.meta, nil
}

// seriesDetails fetches the extended series record for rating and remote ids.
// Failures only lose those fields.
func (p *Provider) seriesDetails(ctx context.Context, id int64, b builder, withRating bool) {
	ext, err := call(ctx, p, func() (*tvdbapi.GetSeriesExtendedResponse, error) {
		return p.client.GetSeriesExtended(float64(id), nil, nil)
	})
	if err != nil || ext == nil || ext.Data == nil {
		return
	}
	if withRating {
		if rating := score(ext.Data.Score); rating > 0 {
			b.meta.Core.Rating = rating
			b.meta.Sources["rating"] = providerID
		}
	}
	b.imdb(ext.Data.RemoteIds)
}

func (p *Provider) episodes(ctx context.Context, seriesID int64, season, episode int) (*tvdbapi.GetSeriesEpisodesResponse, error) {
	seasonNum := int64(season)
	req := operations.GetSeriesEpisodesRequest{
		ID:         float64(seriesID),
		SeasonType: "official",
		Season:     &seasonNum,
		Page:       0,
	}
	if episode > 0 {
		episodeNum := int64(episode)
		req.EpisodeNumber = &episodeNum
	}
	return call(ctx, p, func() (*tvdbapi.GetSeriesEpisodesResponse, error) {
		return p.client.GetSeriesEpisodes(req)
	})
}

func (p *Provider) fetchSeason(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	if request.Season <= 0 {
		return nil, p.invalid("season fetch requires a valid season number")
	}

	record, err := p.searchRecord(ctx, request, "series")
	if err != nil {
		return nil, err
	}

	resp, err := p.episodes(ctx, record.ID, request.Season, 0)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Data == nil {
		return nil, p.notFound("season not found")
	}

	title := record.Name
	if resp.Data.Series != nil {
		title = firstNonEmpty(str(resp.Data.Series.Name), title)
	}

	b := newBuilder(provider.CoreMetadata{
		Title:     title,
		Year:      firstNonEmpty(record.Year, request.Year),
		SeasonNum: request.Season,
		MediaType: provider.MediaTypeSeason,
	}, 0.8, record.ID)
	b.meta.Extended["episode_count"] = len(resp.Data.Episodes)
	b.markCore()
	p.seriesDetails(ctx, record.ID, b, false)
	return b.meta, nil
}

func (p *Provider) fetchEpisode(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	if request.Season <= 0 || request.Episode <= 0 {
		return nil, p.invalid("episode fetch requires valid season and episode numbers")
	}

	record, err := p.searchRecord(ctx, request, "series")
	if err != nil {
		return nil, err
	}

	resp, err := p.episodes(ctx, record.ID, request.Season, request.Episode)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Data == nil || len(resp.Data.Episodes) == 0 {
		return nil, p.notFound("episode not found")
	}

	episode := &resp.Data.Episodes[0]
	for i := range resp.Data.Episodes {
		e := &resp.Data.Episodes[i]
		if e.Number != nil && int(*e.Number) == request.Episode {
			episode = e
			break
		}
	}

	title := record.Name
	if resp.Data.Series != nil {
		title = firstNonEmpty(str(resp.Data.Series.Name), title)
	}

	b := newBuilder(provider.CoreMetadata{
		Title:       title,
		Year:        firstNonEmpty(str(episode.Year), record.Year),
		SeasonNum:   request.Season,
		EpisodeNum:  request.Episode,
		EpisodeName: str(episode.Name),
		MediaType:   provider.MediaTypeEpisode,
		Overview:    str(episode.Overview),
	}, 0.85, record.ID)
	b.runtime(episode.Runtime)
	b.markCore()
	p.seriesDetails(ctx, record.ID, b, true)
	return b.meta, nil
}
