package tvdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Digital-Shane/metahub/internal/provider"
	tvdbapi "github.com/dashotv/tvdb"
	"github.com/dashotv/tvdb/openapi/models/operations"
	"github.com/dashotv/tvdb/openapi/models/shared"
)

type searchRecord struct {
	ID   int64
	Name string
	Year string
	Type string
}

// Search queries TVDB for series and movies. An empty request.MediaType
// searches both.
func (p *Provider) Search(ctx context.Context, request provider.SearchRequest) ([]provider.SearchResult, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "search", func(ctx context.Context) ([]provider.SearchResult, error) {
		var kind string
		switch request.MediaType {
		case "":
		case provider.MediaTypeMovie:
			kind = "movie"
		case provider.MediaTypeShow:
			kind = "series"
		default:
			return nil, p.invalid(fmt.Sprintf("unsupported media type: %s", request.MediaType))
		}

		results, err := p.search(ctx, request.Query, request.Year, kind)
		if err != nil {
			return nil, err
		}

		out := make([]provider.SearchResult, 0, len(results))
		for _, candidate := range results {
			r := toSearchRecord(candidate)
			if r.ID == 0 {
				continue
			}
			mediaType := provider.MediaTypeShow
			if strings.EqualFold(r.Type, "movie") {
				mediaType = provider.MediaTypeMovie
			} else if !strings.EqualFold(r.Type, "series") {
				continue
			}
			out = append(out, provider.SearchResult{
				Provider:  p.ID(),
				ID:        strconv.FormatInt(r.ID, 10),
				Title:     r.Name,
				Year:      r.Year,
				MediaType: mediaType,
			})
		}
		return out, nil
	})
}

// search runs a raw TVDB search. kind narrows to "series" or "movie" when set.
func (p *Provider) search(ctx context.Context, query, year, kind string) ([]shared.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, p.invalid("search query is empty")
	}

	req := operations.GetSearchResultsRequest{Query: &query}
	if kind != "" {
		req.Type = &kind
	}
	if yr, err := strconv.Atoi(strings.TrimSpace(year)); err == nil {
		yf := float64(yr)
		req.Year = &yf
	}

	resp, err := call(ctx, p, func() (*tvdbapi.GetSearchResultsResponse, error) {
		return p.client.GetSearchResults(req)
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return resp.Data, nil
}

// searchRecord finds the first result of kind matching request. A numeric
// request.ID is used as the query, which TVDB resolves as an id lookup.
func (p *Provider) searchRecord(ctx context.Context, request provider.FetchRequest, kind string) (*searchRecord, error) {
	query := strings.TrimSpace(request.Name)
	if request.ID != "" {
		query = strings.TrimSpace(request.ID)
	}
	if query == "" {
		return nil, p.invalid(fmt.Sprintf("%s fetch requires a title", kind))
	}

	results, err := p.search(ctx, query, request.Year, kind)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, p.notFound(fmt.Sprintf("no results found for %s: %s", kind, query))
	}

	for _, candidate := range results {
		r := toSearchRecord(candidate)
		if r.ID != 0 && strings.EqualFold(r.Type, kind) {
			return r, nil
		}
	}
	return nil, p.notFound(kind + " not found")
}

func toSearchRecord(result shared.SearchResult) *searchRecord {
	id := parseID(str(result.TvdbID))
	if id == 0 {
		id = parseID(str(result.ID))
	}

	return &searchRecord{
		ID:   id,
		Name: firstNonEmpty(str(result.Name), str(result.NameTranslated), str(result.Title)),
		Year: str(result.Year),
		Type: str(result.Type),
	}
}
