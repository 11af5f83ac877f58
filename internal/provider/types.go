package provider

import "time"

// MediaType represents the type of media content
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeShow    MediaType = "show"
	MediaTypeSeason  MediaType = "season"
	MediaTypeEpisode MediaType = "episode"
	MediaTypePerson  MediaType = "person"
)

// FetchRequest represents a request for metadata
type FetchRequest struct {
	MediaType MediaType
	Name      string
	Year      string
	Season    int
	Episode   int
	ID        string                 // Provider-specific ID if known
	Language  string                 // Preferred language
	Extra     map[string]interface{} // Provider-specific parameters
}

// Metadata represents the fetched metadata
type Metadata struct {
	// Core fields that are common across all providers
	Core CoreMetadata

	// Extended fields that are provider-specific
	Extended map[string]interface{}

	// Track which provider supplied which field
	Sources map[string]string

	// Provider-specific IDs
	IDs map[string]string

	// Quality/confidence score for this metadata
	Confidence float64
}

// CoreMetadata contains the essential metadata fields
type CoreMetadata struct {
	// Basic identification
	Title     string
	Year      string
	MediaType MediaType

	// TV-specific
	SeasonNum   int
	EpisodeName string
	EpisodeNum  int

	// Common fields
	Overview string
	Rating   float32
	Genres   []string
	Language string
	Country  string
}

// SearchRequest is a free-text query, optionally narrowed by media type and year.
type SearchRequest struct {
	Query     string
	MediaType MediaType // empty searches every type the provider supports
	Year      string
	Language  string
	Page      int
}

// SearchResult is a single hit from a search or recommendation list.
type SearchResult struct {
	Provider   string
	ID         string
	Title      string
	Year       string
	MediaType  MediaType
	Overview   string
	Rating     float32
	Popularity float32
	PosterPath string
}

// CatalogRequest selects a named catalog page.
type CatalogRequest struct {
	Catalog   string // e.g. "popular", "top_rated"
	MediaType MediaType
	Page      int
	Language  string
}

// CatalogItem is a single entry of a catalog.
type CatalogItem struct {
	SearchResult
	Rank int
}

// Person describes a cast or crew member.
type Person struct {
	ID          string
	Name        string
	Biography   string
	Birthday    string
	KnownFor    []SearchResult
	ProfilePath string
}

// Rating is a score reported by one rating source.
type Rating struct {
	Source string // e.g. "imdb", "tmdb", "rotten_tomatoes"
	Value  float32
	Scale  float32 // maximum value of the scale, e.g. 10 or 100
	Votes  int
}

// Comment is a user review or comment.
type Comment struct {
	Author    string
	Body      string
	Rating    float32
	CreatedAt time.Time
}

// TrackingEvent records watch progress for a title.
type TrackingEvent struct {
	Request  FetchRequest
	Action   string // "start", "pause", "stop", "watched"
	Progress float64
	At       time.Time
}

// AddonCatalog describes a catalog published by an add-on.
type AddonCatalog struct {
	ID        string
	Name      string
	MediaType MediaType
}

// ImageType classifies artwork.
type ImageType string

const (
	ImageTypePoster   ImageType = "poster"
	ImageTypeBackdrop ImageType = "backdrop"
	ImageTypeStill    ImageType = "still"
	ImageTypeProfile  ImageType = "profile"
)

// Image is a single piece of artwork.
type Image struct {
	Type     ImageType
	URL      string
	Language string
	Width    int
	Height   int
}

// StreamRequest identifies a stream to describe or resolve.
type StreamRequest struct {
	Request FetchRequest
	URL     string // direct URL or local path, when already known
}

// Stream describes one playable stream and its technical properties.
type Stream struct {
	URL         string
	Container   string
	VideoCodec  string
	AudioCodec  string
	Width       int
	Height      int
	Duration    time.Duration
	BitRate     int64
	AudioTracks int
}

// Subtitle is one subtitle track.
type Subtitle struct {
	Language string
	URL      string
	Format   string
}
