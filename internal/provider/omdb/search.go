package omdb

import (
	"context"
	"strconv"
	"strings"

	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/omdb"
)

type searchHit struct {
	Title  string
	Year   string
	ImdbID string `json:"imdbID"`
	Type   string
	Poster string
}

type searchResponse struct {
	Search       []searchHit
	TotalResults string `json:"totalResults"`
}

// Search runs an OMDb title search. The client library only does exact
// lookups, so the list endpoint is queried directly.
func (p *Provider) Search(ctx context.Context, request provider.SearchRequest) ([]provider.SearchResult, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "search", func(ctx context.Context) ([]provider.SearchResult, error) {
		query := strings.TrimSpace(request.Query)
		if query == "" {
			return nil, p.invalid("search query is empty")
		}

		params := map[string]string{"s": query, "y": request.Year}
		switch request.MediaType {
		case "":
		case provider.MediaTypeMovie:
			params["type"] = "movie"
		case provider.MediaTypeShow:
			params["type"] = "series"
		case provider.MediaTypeEpisode:
			params["type"] = "episode"
		default:
			return nil, p.invalid("unsupported media type: " + string(request.MediaType))
		}
		if request.Page > 0 {
			params["page"] = strconv.Itoa(request.Page)
		}

		var resp searchResponse
		if err := p.get(ctx, params, &resp); err != nil {
			if provider.CodeOf(err) == provider.CodeNotFound {
				return []provider.SearchResult{}, nil
			}
			return nil, err
		}

		out := make([]provider.SearchResult, 0, len(resp.Search))
		for _, hit := range resp.Search {
			poster := hit.Poster
			if poster == "N/A" {
				poster = ""
			}
			out = append(out, provider.SearchResult{
				Provider:   p.ID(),
				ID:         hit.ImdbID,
				Title:      hit.Title,
				Year:       omdb.FirstYear(hit.Year),
				MediaType:  mediaTypeOf(hit.Type),
				PosterPath: poster,
			})
		}
		return out, nil
	})
}

func mediaTypeOf(omdbType string) provider.MediaType {
	switch omdbType {
	case "series":
		return provider.MediaTypeShow
	case "episode":
		return provider.MediaTypeEpisode
	default:
		return provider.MediaTypeMovie
	}
}
