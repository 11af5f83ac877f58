package tmdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/patrickmn/go-cache"
	"github.com/ryanbradynd05/go-tmdb"
)

// Metadata looks up a movie, show, season or episode.
func (p *Provider) Metadata(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "metadata", func(ctx context.Context) (*provider.Metadata, error) {
		return p.fetch(ctx, request)
	})
}

// ExternalIDs returns the TMDB and IMDb identifiers of a title.
func (p *Provider) ExternalIDs(ctx context.Context, request provider.FetchRequest) (map[string]string, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "external_ids", func(ctx context.Context) (map[string]string, error) {
		meta, err := p.fetch(ctx, request)
		if err != nil {
			return nil, err
		}
		ids := make(map[string]string, len(meta.IDs))
		for k, v := range meta.IDs {
			ids[k] = v
		}
		return ids, nil
	})
}

// fetch serves request from the response cache or the API.
func (p *Provider) fetch(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	cacheKey := "metadata:" + buildCacheKey(request)
	if p.cache != nil {
		if cached, found := p.cache.Get(cacheKey); found {
			if meta, ok := cached.(*provider.Metadata); ok {
				return meta, nil
			}
		}
	}

	var metadata *provider.Metadata
	var err error

	switch request.MediaType {
	case provider.MediaTypeMovie:
		metadata, err = p.fetchMovie(ctx, request)
	case provider.MediaTypeShow:
		metadata, err = p.fetchShow(ctx, request)
	case provider.MediaTypeSeason:
		metadata, err = p.fetchSeason(ctx, request)
	case provider.MediaTypeEpisode:
		metadata, err = p.fetchEpisode(ctx, request)
	default:
		return nil, provider.NewError(p.ID(), provider.CodeInvalidRequest,
			fmt.Sprintf("unsupported media type: %s", request.MediaType))
	}
	if err != nil {
		return nil, err
	}

	if p.cache != nil && metadata != nil {
		p.cache.Set(cacheKey, metadata, cache.DefaultExpiration)
	}
	return metadata, nil
}

func (p *Provider) notFound(format string, args ...interface{}) error {
	return provider.NewError(p.ID(), provider.CodeNotFound, fmt.Sprintf(format, args...))
}

func (p *Provider) fetchMovie(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	options := map[string]string{
		"language": p.languageFor(request.Language),
	}
	if request.Year != "" {
		options["year"] = request.Year
	}

	if id, err := strconv.Atoi(request.ID); err == nil {
		movie, err := call(ctx, p, func() (*tmdb.Movie, error) { return p.client.GetMovieInfo(id, options) })
		if err != nil {
			return nil, err
		}
		return movieToMetadata(movie), nil
	}

	results, err := call(ctx, p, func() (*tmdb.MovieSearchResults, error) {
		return p.client.SearchMovie(request.Name, options)
	})
	if err != nil {
		return nil, err
	}
	if results == nil || len(results.Results) == 0 {
		return nil, p.notFound("no results found for movie: %s", request.Name)
	}

	movie := results.Results[0]
	full, err := call(ctx, p, func() (*tmdb.Movie, error) { return p.client.GetMovieInfo(movie.ID, options) })
	if err != nil || full == nil {
		// Search results carry enough for a lower confidence answer.
		return movieSearchResultToMetadata(&movie), nil
	}
	return movieToMetadata(full), nil
}

func (p *Provider) fetchShow(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	options := map[string]string{
		"language":           p.languageFor(request.Language),
		"append_to_response": "external_ids",
	}

	results, err := call(ctx, p, func() (*tmdb.TvSearchResults, error) {
		return p.client.SearchTv(request.Name, options)
	})
	if err != nil {
		return nil, err
	}
	if results == nil || len(results.Results) == 0 {
		return nil, p.notFound("no results found for show: %s", request.Name)
	}

	hit := results.Results[0]
	short := showHit{
		id:            hit.ID,
		name:          hit.Name,
		firstAirDate:  hit.FirstAirDate,
		voteAverage:   hit.VoteAverage,
		popularity:    hit.Popularity,
		voteCount:     hit.VoteCount,
		originCountry: hit.OriginCountry,
	}

	full, err := call(ctx, p, func() (*tmdb.TV, error) { return p.client.GetTvInfo(hit.ID, options) })
	if err != nil || full == nil {
		return short.toMetadata(), nil
	}
	return tvToMetadata(full), nil
}

func (p *Provider) fetchSeason(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	showID, err := p.showID(ctx, request)
	if err != nil {
		return nil, err
	}

	options := map[string]string{"language": p.languageFor(request.Language)}
	season, err := call(ctx, p, func() (*tmdb.TvSeason, error) {
		return p.client.GetTvSeasonInfo(showID, request.Season, options)
	})
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, p.notFound("season %d not found", request.Season)
	}
	return seasonToMetadata(season, showID), nil
}

func (p *Provider) fetchEpisode(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	showID, err := p.showID(ctx, request)
	if err != nil {
		return nil, err
	}

	options := map[string]string{"language": p.languageFor(request.Language)}
	episode, err := call(ctx, p, func() (*tmdb.TvEpisode, error) {
		return p.client.GetTvEpisodeInfo(showID, request.Season, request.Episode, options)
	})
	if err != nil {
		return nil, err
	}
	if episode == nil {
		return nil, p.notFound("episode S%02dE%02d not found", request.Season, request.Episode)
	}

	// The series name comes from the show record; a failure here only loses it.
	show, _ := call(ctx, p, func() (*tmdb.TV, error) {
		return p.client.GetTvInfo(showID, map[string]string{
			"language":           p.languageFor(request.Language),
			"append_to_response": "external_ids",
		})
	})
	return episodeToMetadata(episode, show, showID), nil
}

// showID resolves the TMDB show id from request.ID or a search by name.
func (p *Provider) showID(ctx context.Context, request provider.FetchRequest) (int, error) {
	if id, err := strconv.Atoi(request.ID); err == nil {
		return id, nil
	}

	options := map[string]string{"language": p.languageFor(request.Language)}
	results, err := call(ctx, p, func() (*tmdb.TvSearchResults, error) {
		return p.client.SearchTv(request.Name, options)
	})
	if err != nil {
		return 0, err
	}
	if results == nil || len(results.Results) == 0 {
		return 0, p.notFound("show not found: %s", request.Name)
	}
	return results.Results[0].ID, nil
}

func (p *Provider) languageFor(requested string) string {
	if requested != "" {
		return requested
	}
	return p.language
}

func buildCacheKey(request provider.FetchRequest) string {
	return strings.Join([]string{
		string(request.MediaType),
		request.ID,
		request.Name,
		request.Year,
		strconv.Itoa(request.Season),
		strconv.Itoa(request.Episode),
		request.Language,
	}, ":")
}

func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

// showHit is the part of a TV search hit used when full details fail.
type showHit struct {
	id            int
	name          string
	firstAirDate  string
	voteAverage   float32
	popularity    float32
	voteCount     uint32
	originCountry []string
}

func (s showHit) toMetadata() *provider.Metadata {
	return &provider.Metadata{
		Core: provider.CoreMetadata{
			Title:     s.name,
			Year:      yearOf(s.firstAirDate),
			MediaType: provider.MediaTypeShow,
			Rating:    s.voteAverage,
		},
		Extended: map[string]interface{}{
			"popularity":     s.popularity,
			"vote_count":     s.voteCount,
			"origin_country": strings.Join(s.originCountry, ", "),
		},
		IDs: map[string]string{
			"tmdb_id": strconv.Itoa(s.id),
		},
		Sources:    sources("title", "year", "rating"),
		Confidence: 0.8,
	}
}

func sources(fields ...string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = providerID
	}
	return out
}

func movieSearchResultToMetadata(movie *tmdb.MovieShort) *provider.Metadata {
	return &provider.Metadata{
		Core: provider.CoreMetadata{
			Title:     movie.Title,
			Year:      yearOf(movie.ReleaseDate),
			MediaType: provider.MediaTypeMovie,
			Overview:  movie.Overview,
			Rating:    movie.VoteAverage,
		},
		Extended: map[string]interface{}{
			"popularity": movie.Popularity,
			"vote_count": movie.VoteCount,
		},
		IDs: map[string]string{
			"tmdb_id": strconv.Itoa(movie.ID),
		},
		Sources:    sources("title", "year", "overview", "rating"),
		Confidence: 0.8, // search hits only
	}
}

func movieToMetadata(movie *tmdb.Movie) *provider.Metadata {
	genres := make([]string, 0, len(movie.Genres))
	for _, g := range movie.Genres {
		genres = append(genres, g.Name)
	}

	extended := map[string]interface{}{
		"popularity": movie.Popularity,
		"vote_count": movie.VoteCount,
		"tagline":    movie.Tagline,
		"runtime":    movie.Runtime,
	}
	if movie.Budget > 0 {
		extended["budget"] = movie.Budget
	}
	if movie.Revenue > 0 {
		extended["revenue"] = movie.Revenue
	}
	if movie.Homepage != "" {
		extended["homepage"] = movie.Homepage
	}
	if len(movie.ProductionCompanies) > 0 {
		companies := make([]string, 0, len(movie.ProductionCompanies))
		for _, c := range movie.ProductionCompanies {
			companies = append(companies, c.Name)
		}
		extended["production_companies"] = strings.Join(companies, ", ")
		extended["studio"] = companies[0]
	}

	ids := map[string]string{"tmdb_id": strconv.Itoa(movie.ID)}
	if movie.ImdbID != "" {
		ids["imdb_id"] = movie.ImdbID
	}

	return &provider.Metadata{
		Core: provider.CoreMetadata{
			Title:     movie.Title,
			Year:      yearOf(movie.ReleaseDate),
			MediaType: provider.MediaTypeMovie,
			Overview:  movie.Overview,
			Rating:    movie.VoteAverage,
			Genres:    genres,
		},
		Extended:   extended,
		IDs:        ids,
		Sources:    sources("title", "year", "overview", "rating", "genres", "runtime"),
		Confidence: 1.0,
	}
}

func tvToMetadata(show *tmdb.TV) *provider.Metadata {
	genres := make([]string, 0, len(show.Genres))
	for _, g := range show.Genres {
		genres = append(genres, g.Name)
	}

	extended := map[string]interface{}{
		"popularity":    show.Popularity,
		"vote_count":    show.VoteCount,
		"season_count":  show.NumberOfSeasons,
		"episode_count": show.NumberOfEpisodes,
		"in_production": show.InProduction,
		"type":          show.Type,
	}
	if show.Homepage != "" {
		extended["homepage"] = show.Homepage
	}
	if len(show.Networks) > 0 {
		networks := make([]string, 0, len(show.Networks))
		for _, n := range show.Networks {
			networks = append(networks, n.Name)
		}
		extended["networks"] = strings.Join(networks, ", ")
	}

	ids := map[string]string{"tmdb_id": strconv.Itoa(show.ID)}
	if show.ExternalIDs != nil && show.ExternalIDs.ImdbID != "" {
		ids["imdb_id"] = show.ExternalIDs.ImdbID
	}

	return &provider.Metadata{
		Core: provider.CoreMetadata{
			Title:     show.Name,
			Year:      yearOf(show.FirstAirDate),
			MediaType: provider.MediaTypeShow,
			Overview:  show.Overview,
			Rating:    show.VoteAverage,
			Genres:    genres,
		},
		Extended:   extended,
		IDs:        ids,
		Sources:    sources("title", "year", "overview", "rating", "genres"),
		Confidence: 1.0,
	}
}

func seasonToMetadata(season *tmdb.TvSeason, showID int) *provider.Metadata {
	return &provider.Metadata{
		Core: provider.CoreMetadata{
			SeasonNum: season.SeasonNumber,
			MediaType: provider.MediaTypeSeason,
			Overview:  season.Overview,
		},
		Extended: map[string]interface{}{
			"episode_count": len(season.Episodes),
		},
		IDs: map[string]string{
			"tmdb_show_id":   strconv.Itoa(showID),
			"tmdb_season_id": strconv.Itoa(season.ID),
		},
		Sources:    sources("season_name", "overview"),
		Confidence: 1.0,
	}
}

func episodeToMetadata(episode *tmdb.TvEpisode, show *tmdb.TV, showID int) *provider.Metadata {
	meta := &provider.Metadata{
		Core: provider.CoreMetadata{
			EpisodeName: episode.Name,
			SeasonNum:   episode.SeasonNumber,
			EpisodeNum:  episode.EpisodeNumber,
			MediaType:   provider.MediaTypeEpisode,
			Overview:    episode.Overview,
			Rating:      episode.VoteAverage,
		},
		Extended: map[string]interface{}{
			"vote_count":      episode.VoteCount,
			"production_code": episode.ProductionCode,
			"still_path":      episode.StillPath,
		},
		IDs: map[string]string{
			"tmdb_show_id":    strconv.Itoa(showID),
			"tmdb_episode_id": strconv.Itoa(episode.ID),
		},
		Sources:    sources("episode_name", "overview", "rating"),
		Confidence: 1.0,
	}

	if show != nil {
		meta.Core.Title = show.Name
		meta.Core.Year = yearOf(show.FirstAirDate)
		if show.ExternalIDs != nil && show.ExternalIDs.ImdbID != "" {
			meta.IDs["imdb_show_id"] = show.ExternalIDs.ImdbID
		}
	}

	if len(episode.GuestStars) > 0 {
		stars := make([]string, 0, len(episode.GuestStars))
		for _, s := range episode.GuestStars {
			stars = append(stars, s.Name)
		}
		meta.Extended["guest_stars"] = strings.Join(stars, ", ")
	}

	var directors, writers []string
	for _, c := range episode.Crew {
		switch c.Job {
		case "Director":
			directors = append(directors, c.Name)
		case "Writer", "Screenplay":
			writers = append(writers, c.Name)
		}
	}
	if len(directors) > 0 {
		meta.Extended["directors"] = strings.Join(directors, ", ")
	}
	if len(writers) > 0 {
		meta.Extended["writers"] = strings.Join(writers, ", ")
	}
	return meta
}
