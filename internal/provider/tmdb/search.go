package tmdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/ryanbradynd05/go-tmdb"
)

// Search queries movies, shows or both when request.MediaType is empty.
// Movies come first, each list in TMDB's relevance order.
func (p *Provider) Search(ctx context.Context, request provider.SearchRequest) ([]provider.SearchResult, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "search", func(ctx context.Context) ([]provider.SearchResult, error) {
		if request.Query == "" {
			return nil, provider.NewError(p.ID(), provider.CodeInvalidRequest, "search query is empty")
		}

		options := map[string]string{"language": p.languageFor(request.Language)}
		if request.Page > 0 {
			options["page"] = strconv.Itoa(request.Page)
		}

		var out []provider.SearchResult
		switch request.MediaType {
		case "", provider.MediaTypeMovie, provider.MediaTypeShow:
		default:
			return nil, provider.NewError(p.ID(), provider.CodeInvalidRequest,
				fmt.Sprintf("unsupported media type: %s", request.MediaType))
		}

		if request.MediaType != provider.MediaTypeShow {
			movieOpts := options
			if request.Year != "" {
				movieOpts = cloneOptions(options)
				movieOpts["year"] = request.Year
			}
			movies, err := call(ctx, p, func() (*tmdb.MovieSearchResults, error) {
				return p.client.SearchMovie(request.Query, movieOpts)
			})
			if err != nil {
				return nil, err
			}
			if movies != nil {
				for _, m := range movies.Results {
					out = append(out, provider.SearchResult{
						Provider:   p.ID(),
						ID:         strconv.Itoa(m.ID),
						Title:      m.Title,
						Year:       yearOf(m.ReleaseDate),
						MediaType:  provider.MediaTypeMovie,
						Overview:   m.Overview,
						Rating:     m.VoteAverage,
						Popularity: m.Popularity,
						PosterPath: imageURL(m.PosterPath),
					})
				}
			}
		}

		if request.MediaType != provider.MediaTypeMovie {
			shows, err := call(ctx, p, func() (*tmdb.TvSearchResults, error) {
				return p.client.SearchTv(request.Query, options)
			})
			if err != nil {
				return nil, err
			}
			if shows != nil {
				for _, s := range shows.Results {
					year := yearOf(s.FirstAirDate)
					if request.Year != "" && year != request.Year {
						continue
					}
					out = append(out, provider.SearchResult{
						Provider:   p.ID(),
						ID:         strconv.Itoa(s.ID),
						Title:      s.Name,
						Year:       year,
						MediaType:  provider.MediaTypeShow,
						Rating:     s.VoteAverage,
						Popularity: s.Popularity,
						PosterPath: imageURL(s.PosterPath),
					})
				}
			}
		}
		return out, nil
	})
}

// Images returns poster and backdrop art for movies and shows, and the still
// for an episode.
func (p *Provider) Images(ctx context.Context, request provider.FetchRequest) ([]provider.Image, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "images", func(ctx context.Context) ([]provider.Image, error) {
		lang := p.languageFor(request.Language)
		options := map[string]string{"language": lang}

		switch request.MediaType {
		case provider.MediaTypeMovie:
			id, err := p.movieID(ctx, request)
			if err != nil {
				return nil, err
			}
			movie, err := call(ctx, p, func() (*tmdb.Movie, error) { return p.client.GetMovieInfo(id, options) })
			if err != nil {
				return nil, err
			}
			if movie == nil {
				return nil, p.notFound("movie %d not found", id)
			}
			return artwork(lang, movie.PosterPath, movie.BackdropPath), nil

		case provider.MediaTypeShow, provider.MediaTypeSeason:
			id, err := p.showID(ctx, request)
			if err != nil {
				return nil, err
			}
			show, err := call(ctx, p, func() (*tmdb.TV, error) { return p.client.GetTvInfo(id, options) })
			if err != nil {
				return nil, err
			}
			if show == nil {
				return nil, p.notFound("show %d not found", id)
			}
			return artwork(lang, show.PosterPath, show.BackdropPath), nil

		case provider.MediaTypeEpisode:
			id, err := p.showID(ctx, request)
			if err != nil {
				return nil, err
			}
			episode, err := call(ctx, p, func() (*tmdb.TvEpisode, error) {
				return p.client.GetTvEpisodeInfo(id, request.Season, request.Episode, options)
			})
			if err != nil {
				return nil, err
			}
			if episode == nil || episode.StillPath == "" {
				return []provider.Image{}, nil
			}
			return []provider.Image{{Type: provider.ImageTypeStill, URL: imageURL(episode.StillPath), Language: lang}}, nil
		}

		return nil, provider.NewError(p.ID(), provider.CodeInvalidRequest,
			fmt.Sprintf("unsupported media type: %s", request.MediaType))
	})
}

// movieID resolves the TMDB movie id from request.ID or the first search hit.
func (p *Provider) movieID(ctx context.Context, request provider.FetchRequest) (int, error) {
	if id, err := strconv.Atoi(request.ID); err == nil {
		return id, nil
	}

	options := map[string]string{"language": p.languageFor(request.Language)}
	if request.Year != "" {
		options["year"] = request.Year
	}
	results, err := call(ctx, p, func() (*tmdb.MovieSearchResults, error) {
		return p.client.SearchMovie(request.Name, options)
	})
	if err != nil {
		return 0, err
	}
	if results == nil || len(results.Results) == 0 {
		return 0, p.notFound("no results found for movie: %s", request.Name)
	}
	return results.Results[0].ID, nil
}

func artwork(lang, poster, backdrop string) []provider.Image {
	images := make([]provider.Image, 0, 2)
	if poster != "" {
		images = append(images, provider.Image{Type: provider.ImageTypePoster, URL: imageURL(poster), Language: lang})
	}
	if backdrop != "" {
		images = append(images, provider.Image{Type: provider.ImageTypeBackdrop, URL: imageURL(backdrop), Language: lang})
	}
	return images
}

func imageURL(path string) string {
	if path == "" {
		return ""
	}
	return imageBaseURL + path
}

func cloneOptions(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
