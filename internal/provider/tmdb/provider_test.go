package tmdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/google/go-cmp/cmp"
	"github.com/ryanbradynd05/go-tmdb"
)

// mockClient implements Client for testing
type mockClient struct {
	searchMovieFunc      func(name string, options map[string]string) (*tmdb.MovieSearchResults, error)
	searchTvFunc         func(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	getMovieInfoFunc     func(id int, options map[string]string) (*tmdb.Movie, error)
	getTvInfoFunc        func(id int, options map[string]string) (*tmdb.TV, error)
	getTvSeasonInfoFunc  func(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error)
	getTvEpisodeInfoFunc func(showID, seasonNum, episodeNum int, options map[string]string) (*tmdb.TvEpisode, error)
}

func (m *mockClient) SearchMovie(name string, options map[string]string) (*tmdb.MovieSearchResults, error) {
	if m.searchMovieFunc != nil {
		return m.searchMovieFunc(name, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClient) SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error) {
	if m.searchTvFunc != nil {
		return m.searchTvFunc(name, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetMovieInfo(id int, options map[string]string) (*tmdb.Movie, error) {
	if m.getMovieInfoFunc != nil {
		return m.getMovieInfoFunc(id, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetTvInfo(id int, options map[string]string) (*tmdb.TV, error) {
	if m.getTvInfoFunc != nil {
		return m.getTvInfoFunc(id, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetTvSeasonInfo(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error) {
	if m.getTvSeasonInfoFunc != nil {
		return m.getTvSeasonInfoFunc(showID, seasonID, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetTvEpisodeInfo(showID, seasonNum, episodeNum int, options map[string]string) (*tmdb.TvEpisode, error) {
	if m.getTvEpisodeInfoFunc != nil {
		return m.getTvEpisodeInfoFunc(showID, seasonNum, episodeNum, options)
	}
	return nil, errors.New("not implemented")
}

type tvHit = struct {
	BackdropPath  string `json:"backdrop_path"`
	ID            int
	OriginalName  string   `json:"original_name"`
	FirstAirDate  string   `json:"first_air_date"`
	OriginCountry []string `json:"origin_country"`
	PosterPath    string   `json:"poster_path"`
	Popularity    float32
	Name          string
	VoteAverage   float32 `json:"vote_average"`
	VoteCount     uint32  `json:"vote_count"`
}

func testConfig() provider.ProviderConfig {
	return provider.ProviderConfig{
		ID:       providerID,
		Name:     "TMDB",
		Type:     "metadata",
		Enabled:  true,
		Priority: 1,
		Settings: map[string]interface{}{"max_retries": 0},
	}
}

func newTestProvider(t *testing.T, client Client) *Provider {
	t.Helper()
	p, err := New(testConfig(), log.Nop(), WithClient(client))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      provider.ProviderConfig
		opts     []Option
		wantCode provider.ErrorCode
	}{
		{
			name: "api_key",
			cfg: func() provider.ProviderConfig {
				c := testConfig()
				c.Connection.APIKey = "0123456789abcdef0123456789abcdef"
				return c
			}(),
		},
		{
			name: "injected_client",
			cfg:  testConfig(),
			opts: []Option{WithClient(&mockClient{})},
		},
		{
			name:     "missing_api_key",
			cfg:      testConfig(),
			wantCode: provider.CodeMissingConfig,
		},
		{
			name: "missing_name",
			cfg: func() provider.ProviderConfig {
				c := testConfig()
				c.Name = ""
				return c
			}(),
			opts:     []Option{WithClient(&mockClient{})},
			wantCode: provider.CodeMissingConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg, log.Nop(), tt.opts...)
			if tt.wantCode != "" {
				if got := provider.CodeOf(err); got != tt.wantCode {
					t.Fatalf("New() error code = %q, want %q (err %v)", got, tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if p.ID() != providerID || p.language != defaultLanguage || p.cache == nil {
				t.Errorf("New() = id %q language %q cache %v", p.ID(), p.language, p.cache != nil)
			}
		})
	}
}

func TestProviderImplementsCapabilities(t *testing.T) {
	p := newTestProvider(t, &mockClient{})
	for _, c := range Capabilities {
		if !provider.Implements(c, p) {
			t.Errorf("provider does not implement %s", c)
		}
	}
}

func TestMetadataMovie(t *testing.T) {
	var infoCalls int
	client := &mockClient{
		searchMovieFunc: func(name string, options map[string]string) (*tmdb.MovieSearchResults, error) {
			if options["year"] != "1999" {
				t.Errorf("year option = %q, want 1999", options["year"])
			}
			return &tmdb.MovieSearchResults{
				Results: []tmdb.MovieShort{{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30"}},
			}, nil
		},
		getMovieInfoFunc: func(id int, options map[string]string) (*tmdb.Movie, error) {
			infoCalls++
			return &tmdb.Movie{
				ID:          603,
				Title:       "The Matrix",
				ReleaseDate: "1999-03-30",
				Overview:    "A hacker learns the truth.",
				VoteAverage: 8.2,
				ImdbID:      "tt0133093",
				Genres: []struct {
					ID   int
					Name string
				}{
					{ID: 28, Name: "Action"},
					{ID: 878, Name: "Science Fiction"},
				},
			}, nil
		},
	}
	p := newTestProvider(t, client)

	req := provider.FetchRequest{MediaType: provider.MediaTypeMovie, Name: "The Matrix", Year: "1999"}
	meta, err := p.Metadata(context.Background(), req)
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}

	wantCore := provider.CoreMetadata{
		Title:     "The Matrix",
		Year:      "1999",
		MediaType: provider.MediaTypeMovie,
		Overview:  "A hacker learns the truth.",
		Rating:    8.2,
		Genres:    []string{"Action", "Science Fiction"},
	}
	if diff := cmp.Diff(wantCore, meta.Core); diff != "" {
		t.Errorf("Metadata() core mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"tmdb_id": "603", "imdb_id": "tt0133093"}, meta.IDs); diff != "" {
		t.Errorf("Metadata() ids mismatch (-want +got):\n%s", diff)
	}

	// Second lookup is served from the response cache.
	if _, err := p.Metadata(context.Background(), req); err != nil {
		t.Fatalf("cached Metadata() error = %v", err)
	}
	if infoCalls != 1 {
		t.Errorf("GetMovieInfo calls = %d, want 1", infoCalls)
	}
}

func TestMetadataMovieFallsBackToSearchHit(t *testing.T) {
	client := &mockClient{
		searchMovieFunc: func(name string, options map[string]string) (*tmdb.MovieSearchResults, error) {
			return &tmdb.MovieSearchResults{
				Results: []tmdb.MovieShort{{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30"}},
			}, nil
		},
		getMovieInfoFunc: func(id int, options map[string]string) (*tmdb.Movie, error) {
			return nil, errors.New("boom")
		},
	}
	p := newTestProvider(t, client)

	meta, err := p.Metadata(context.Background(), provider.FetchRequest{MediaType: provider.MediaTypeMovie, Name: "The Matrix"})
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Core.Title != "The Matrix" || meta.Confidence != 0.8 {
		t.Errorf("Metadata() = %+v, want search hit with confidence 0.8", meta)
	}
}

func TestMetadataNotFound(t *testing.T) {
	client := &mockClient{
		searchMovieFunc: func(name string, options map[string]string) (*tmdb.MovieSearchResults, error) {
			return &tmdb.MovieSearchResults{}, nil
		},
		searchTvFunc: func(name string, options map[string]string) (*tmdb.TvSearchResults, error) {
			return &tmdb.TvSearchResults{}, nil
		},
	}
	p := newTestProvider(t, client)

	for _, mt := range []provider.MediaType{provider.MediaTypeMovie, provider.MediaTypeShow, provider.MediaTypeEpisode} {
		_, err := p.Metadata(context.Background(), provider.FetchRequest{MediaType: mt, Name: "Nothing"})
		if got := provider.CodeOf(err); got != provider.CodeNotFound {
			t.Errorf("%s: error code = %q, want NOT_FOUND (err %v)", mt, got, err)
		}
	}

	_, err := p.Metadata(context.Background(), provider.FetchRequest{MediaType: provider.MediaTypePerson, Name: "x"})
	if got := provider.CodeOf(err); got != provider.CodeInvalidRequest {
		t.Errorf("person: error code = %q, want INVALID_REQUEST", got)
	}
}

func TestMetadataShow(t *testing.T) {
	client := &mockClient{
		searchTvFunc: func(name string, options map[string]string) (*tmdb.TvSearchResults, error) {
			return &tmdb.TvSearchResults{
				Results: []tvHit{{ID: 1396, Name: "Breaking Bad", FirstAirDate: "2008-01-20", VoteAverage: 8.9}},
			}, nil
		},
		getTvInfoFunc: func(id int, options map[string]string) (*tmdb.TV, error) {
			if id != 1396 {
				t.Errorf("GetTvInfo id = %d, want 1396", id)
			}
			return &tmdb.TV{
				ID:              1396,
				Name:            "Breaking Bad",
				FirstAirDate:    "2008-01-20",
				Overview:        "A chemistry teacher turned meth maker",
				VoteAverage:     8.9,
				NumberOfSeasons: 5,
				Genres: []struct {
					ID   int
					Name string
				}{
					{ID: 18, Name: "Drama"},
				},
			}, nil
		},
	}
	p := newTestProvider(t, client)

	meta, err := p.Metadata(context.Background(), provider.FetchRequest{MediaType: provider.MediaTypeShow, Name: "Breaking Bad"})
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Core.Title != "Breaking Bad" || meta.Core.Year != "2008" || meta.IDs["tmdb_id"] != "1396" {
		t.Errorf("Metadata() = %+v", meta)
	}
	if diff := cmp.Diff([]string{"Drama"}, meta.Core.Genres); diff != "" {
		t.Errorf("genres mismatch (-want +got):\n%s", diff)
	}
}

func TestMetadataEpisode(t *testing.T) {
	client := &mockClient{
		getTvEpisodeInfoFunc: func(showID, seasonNum, episodeNum int, options map[string]string) (*tmdb.TvEpisode, error) {
			if showID != 1396 || seasonNum != 1 || episodeNum != 2 {
				t.Errorf("GetTvEpisodeInfo(%d, %d, %d)", showID, seasonNum, episodeNum)
			}
			return &tmdb.TvEpisode{
				ID:            62086,
				Name:          "Cat's in the Bag...",
				SeasonNumber:  1,
				EpisodeNumber: 2,
				VoteAverage:   8.2,
			}, nil
		},
		getTvInfoFunc: func(id int, options map[string]string) (*tmdb.TV, error) {
			return &tmdb.TV{ID: 1396, Name: "Breaking Bad", FirstAirDate: "2008-01-20"}, nil
		},
	}
	p := newTestProvider(t, client)

	meta, err := p.Metadata(context.Background(), provider.FetchRequest{
		MediaType: provider.MediaTypeEpisode,
		ID:        "1396",
		Season:    1,
		Episode:   2,
	})
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}

	want := provider.CoreMetadata{
		Title:       "Breaking Bad",
		Year:        "2008",
		MediaType:   provider.MediaTypeEpisode,
		SeasonNum:   1,
		EpisodeName: "Cat's in the Bag...",
		EpisodeNum:  2,
		Rating:      8.2,
	}
	if diff := cmp.Diff(want, meta.Core); diff != "" {
		t.Errorf("Metadata() core mismatch (-want +got):\n%s", diff)
	}
	if meta.IDs["tmdb_episode_id"] != "62086" {
		t.Errorf("episode id = %q", meta.IDs["tmdb_episode_id"])
	}
}

func TestMetadataSeason(t *testing.T) {
	client := &mockClient{
		searchTvFunc: func(name string, options map[string]string) (*tmdb.TvSearchResults, error) {
			return &tmdb.TvSearchResults{Results: []tvHit{{ID: 1396, Name: "Breaking Bad"}}}, nil
		},
		getTvSeasonInfoFunc: func(showID, seasonID int, options map[string]string) (*tmdb.TvSeason, error) {
			return &tmdb.TvSeason{ID: 3572, SeasonNumber: seasonID, Overview: "Season one."}, nil
		},
	}
	p := newTestProvider(t, client)

	meta, err := p.Metadata(context.Background(), provider.FetchRequest{MediaType: provider.MediaTypeSeason, Name: "Breaking Bad", Season: 1})
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	want := map[string]string{"tmdb_show_id": "1396", "tmdb_season_id": "3572"}
	if diff := cmp.Diff(want, meta.IDs); diff != "" {
		t.Errorf("season ids mismatch (-want +got):\n%s", diff)
	}
	if meta.Core.SeasonNum != 1 {
		t.Errorf("SeasonNum = %d, want 1", meta.Core.SeasonNum)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   provider.ErrorCode
		retryAfter int
	}{
		{"unauthorized", errors.New("401 Unauthorized"), provider.CodeUnauthorized, 0},
		{"rate_limited", errors.New("429 Too Many Requests"), provider.CodeRateLimited, 10},
		{"server", errors.New("503 Service Unavailable"), provider.CodeServerError, 30},
		{"not_found", errors.New("404 Not Found"), provider.CodeNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{
				searchMovieFunc: func(name string, options map[string]string) (*tmdb.MovieSearchResults, error) {
					return nil, tt.err
				},
			}
			p := newTestProvider(t, client)

			_, err := p.Metadata(context.Background(), provider.FetchRequest{MediaType: provider.MediaTypeMovie, Name: "x"})
			var pe *provider.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want ProviderError", err)
			}
			if pe.Code != tt.wantCode || pe.RetryAfter != tt.retryAfter || pe.Provider != providerID {
				t.Errorf("error = %+v, want code %s retry after %d", pe, tt.wantCode, tt.retryAfter)
			}
		})
	}

	var p Provider
	if p.mapError(nil) != nil {
		t.Error("mapError(nil) != nil")
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	calls := 0
	client := &mockClient{
		searchMovieFunc: func(name string, options map[string]string) (*tmdb.MovieSearchResults, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("429 Too Many Requests")
			}
			return &tmdb.MovieSearchResults{Results: []tmdb.MovieShort{{ID: 1, Title: "Up"}}}, nil
		},
		getMovieInfoFunc: func(id int, options map[string]string) (*tmdb.Movie, error) {
			return &tmdb.Movie{ID: 1, Title: "Up"}, nil
		},
	}
	cfg := testConfig()
	cfg.Settings["max_retries"] = 2
	p, err := New(cfg, log.Nop(), WithClient(client))
	if err != nil {
		t.Fatal(err)
	}

	meta, err := p.Metadata(context.Background(), provider.FetchRequest{MediaType: provider.MediaTypeMovie, Name: "Up"})
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if calls != 2 || meta.Core.Title != "Up" {
		t.Errorf("calls = %d, title = %q; want a single retry", calls, meta.Core.Title)
	}
}

func TestSearch(t *testing.T) {
	client := &mockClient{
		searchMovieFunc: func(name string, options map[string]string) (*tmdb.MovieSearchResults, error) {
			return &tmdb.MovieSearchResults{
				Results: []tmdb.MovieShort{{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30", PosterPath: "/m.jpg"}},
			}, nil
		},
		searchTvFunc: func(name string, options map[string]string) (*tmdb.TvSearchResults, error) {
			return &tmdb.TvSearchResults{
				Results: []tvHit{
					{ID: 1, Name: "The Matrix Show", FirstAirDate: "2001-01-01"},
					{ID: 2, Name: "Matrix", FirstAirDate: "1993-03-01"},
				},
			}, nil
		},
	}
	p := newTestProvider(t, client)

	got, err := p.Search(context.Background(), provider.SearchRequest{Query: "matrix"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []provider.SearchResult{
		{Provider: "tmdb", ID: "603", Title: "The Matrix", Year: "1999", MediaType: provider.MediaTypeMovie, PosterPath: imageBaseURL + "/m.jpg"},
		{Provider: "tmdb", ID: "1", Title: "The Matrix Show", Year: "2001", MediaType: provider.MediaTypeShow},
		{Provider: "tmdb", ID: "2", Title: "Matrix", Year: "1993", MediaType: provider.MediaTypeShow},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}

	shows, err := p.Search(context.Background(), provider.SearchRequest{Query: "matrix", MediaType: provider.MediaTypeShow, Year: "1993"})
	if err != nil {
		t.Fatalf("Search(show) error = %v", err)
	}
	if len(shows) != 1 || shows[0].ID != "2" {
		t.Errorf("Search(show, 1993) = %+v, want only id 2", shows)
	}

	if _, err := p.Search(context.Background(), provider.SearchRequest{}); provider.CodeOf(err) != provider.CodeInvalidRequest {
		t.Errorf("empty query error = %v, want INVALID_REQUEST", err)
	}
}

func TestExternalIDs(t *testing.T) {
	client := &mockClient{
		getMovieInfoFunc: func(id int, options map[string]string) (*tmdb.Movie, error) {
			return &tmdb.Movie{ID: id, Title: "The Matrix", ImdbID: "tt0133093"}, nil
		},
	}
	p := newTestProvider(t, client)

	ids, err := p.ExternalIDs(context.Background(), provider.FetchRequest{MediaType: provider.MediaTypeMovie, ID: "603"})
	if err != nil {
		t.Fatalf("ExternalIDs() error = %v", err)
	}
	if diff := cmp.Diff(map[string]string{"tmdb_id": "603", "imdb_id": "tt0133093"}, ids); diff != "" {
		t.Errorf("ExternalIDs() mismatch (-want +got):\n%s", diff)
	}
}

func TestImages(t *testing.T) {
	client := &mockClient{
		getMovieInfoFunc: func(id int, options map[string]string) (*tmdb.Movie, error) {
			return &tmdb.Movie{ID: id, PosterPath: "/poster.jpg", BackdropPath: "/backdrop.jpg"}, nil
		},
		getTvEpisodeInfoFunc: func(showID, seasonNum, episodeNum int, options map[string]string) (*tmdb.TvEpisode, error) {
			return &tmdb.TvEpisode{StillPath: "/still.jpg"}, nil
		},
	}
	p := newTestProvider(t, client)

	got, err := p.Images(context.Background(), provider.FetchRequest{MediaType: provider.MediaTypeMovie, ID: "603"})
	if err != nil {
		t.Fatalf("Images(movie) error = %v", err)
	}
	want := []provider.Image{
		{Type: provider.ImageTypePoster, URL: imageBaseURL + "/poster.jpg", Language: defaultLanguage},
		{Type: provider.ImageTypeBackdrop, URL: imageBaseURL + "/backdrop.jpg", Language: defaultLanguage},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Images(movie) mismatch (-want +got):\n%s", diff)
	}

	got, err = p.Images(context.Background(), provider.FetchRequest{MediaType: provider.MediaTypeEpisode, ID: "1396", Season: 1, Episode: 1})
	if err != nil {
		t.Fatalf("Images(episode) error = %v", err)
	}
	if len(got) != 1 || got[0].Type != provider.ImageTypeStill {
		t.Errorf("Images(episode) = %+v, want one still", got)
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := true
	client := &mockClient{
		searchMovieFunc: func(name string, options map[string]string) (*tmdb.MovieSearchResults, error) {
			if !healthy {
				return nil, errors.New("503 Service Unavailable")
			}
			return &tmdb.MovieSearchResults{}, nil
		},
	}
	p := newTestProvider(t, client)

	if res := p.HealthCheck(context.Background()); !res.Healthy || res.Timestamp.IsZero() {
		t.Errorf("HealthCheck() = %+v, want healthy", res)
	}
	healthy = false
	if res := p.HealthCheck(context.Background()); res.Healthy || res.Error == "" {
		t.Errorf("HealthCheck() = %+v, want unhealthy with error", res)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Connection.APIKey = "short"
	p, err := New(cfg, log.Nop(), WithClient(&mockClient{}))
	if err != nil {
		t.Fatal(err)
	}
	res := p.ValidateConfig(context.Background())
	if !res.Valid || len(res.Warnings) != 1 {
		t.Errorf("ValidateConfig() = %+v, want valid with one warning", res)
	}

	p = newTestProvider(t, &mockClient{})
	if res := p.ValidateConfig(context.Background()); res.Valid {
		t.Errorf("ValidateConfig() without key = %+v, want invalid", res)
	}
}

func TestRegister(t *testing.T) {
	r := registry.New(registry.Config{}, log.Nop())
	t.Cleanup(r.Shutdown)

	client := &mockClient{
		searchMovieFunc: func(name string, options map[string]string) (*tmdb.MovieSearchResults, error) {
			return &tmdb.MovieSearchResults{Results: []tmdb.MovieShort{{ID: 1, Title: "Up"}}}, nil
		},
	}
	if err := Register(r, testConfig(), WithClient(client)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if diff := cmp.Diff(Capabilities, r.AvailableCapabilities(providerID)); diff != "" {
		t.Errorf("AvailableCapabilities() mismatch (-want +got):\n%s", diff)
	}

	sp, ok := registry.Resolve[provider.SearchProvider](context.Background(), r, provider.CapabilitySearch)
	if !ok {
		t.Fatal("Resolve(search) found nothing")
	}
	results, err := sp.Search(context.Background(), provider.SearchRequest{Query: "up", MediaType: provider.MediaTypeMovie})
	if err != nil || len(results) != 1 {
		t.Errorf("Search() = %+v, %v", results, err)
	}
}

func TestConstructorSharesLimiter(t *testing.T) {
	ctor := Constructor(WithClient(&mockClient{}))
	a, err := ctor(context.Background(), testConfig(), log.Nop())
	if err != nil {
		t.Fatal(err)
	}
	b, err := ctor(context.Background(), testConfig(), log.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if a.(*Provider).limiter != b.(*Provider).limiter {
		t.Error("instances from one constructor use different rate limiters")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := rl.wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("requests within the limit were delayed")
	}

	if err := rl.wait(ctx); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("third request waited %v, want about one window", elapsed)
	}

	full := newRateLimiter(1, time.Hour)
	if err := full.wait(ctx); err != nil {
		t.Fatal(err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := full.wait(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("wait() with cancelled context = %v, want context.Canceled", err)
	}
}
