package local

import (
	"path/filepath"
	"strings"

	"github.com/Digital-Shane/metahub/internal/provider"
)

// maxParents bounds how far up the directory tree show and season names are
// looked for.
const maxParents = 3

// Parsed is what a media path says about itself.
type Parsed struct {
	MediaType    provider.MediaType
	Title        string
	Year         string
	Season       int
	Episode      int
	EpisodeTitle string
	Extension    string // ".mkv", or ".en.srt" for subtitles
}

// Parse reads the title, year and episode numbering out of a file or folder
// path. Names that carry no episode or season marker parse as movies.
func Parse(path string) Parsed {
	clean := filepath.Clean(path)
	base := filepath.Base(clean)
	ext := mediaExtension(base)
	name := strings.TrimSuffix(base, ext)
	parents := parentNames(clean, maxParents)

	p := Parsed{Extension: ext}

	if season, episode, start, end, ok := findSeasonEpisode(name); ok {
		p.MediaType = provider.MediaTypeEpisode
		p.Season, p.Episode = season, episode
		p.Title, p.Year = ExtractNameAndYear(name[:start])
		p.EpisodeTitle, _ = ExtractNameAndYear(name[end:])
		if p.Title == "" {
			p.Title, p.Year = showFromParents(parents)
		}
		return p
	}

	if episode, ok := findEpisodeOnly(name); ok {
		if season, ok := seasonFromParents(parents); ok {
			p.MediaType = provider.MediaTypeEpisode
			p.Season, p.Episode = season, episode
			p.Title, p.Year = showFromParents(parents)
			return p
		}
	}

	if ext == "" {
		if season, start, ok := findSeason(name); ok {
			p.MediaType = provider.MediaTypeSeason
			p.Season = season
			p.Title, p.Year = ExtractNameAndYear(name[:start])
			if p.Title == "" {
				p.Title, p.Year = showFromParents(parents)
			}
			return p
		}
	}

	p.MediaType = provider.MediaTypeMovie
	p.Title, p.Year = ExtractNameAndYear(name)
	// "Movie (1999)/movie.mkv": the folder knows more than the file.
	if p.Year == "" && ext != "" && len(parents) > 0 {
		if title, year := ExtractNameAndYear(parents[0]); year != "" && title != "" {
			p.Title, p.Year = title, year
		}
	}
	return p
}

// mediaExtension returns the video or subtitle suffix of base, including a
// subtitle language code. Anything else is treated as part of the name.
func mediaExtension(base string) string {
	ext := filepath.Ext(base)
	switch {
	case IsVideo(ext):
		return ext
	case IsSubtitle(ext):
		return langRe.FindString(strings.TrimSuffix(base, ext)) + ext
	}
	return ""
}

// parentNames returns up to n directory names above path, nearest first.
func parentNames(path string, n int) []string {
	var names []string
	dir := filepath.Dir(path)
	for len(names) < n {
		name := filepath.Base(dir)
		if name == "." || name == string(filepath.Separator) || name == "" {
			break
		}
		names = append(names, name)
		next := filepath.Dir(dir)
		if next == dir {
			break
		}
		dir = next
	}
	return names
}

func seasonFromParents(parents []string) (int, bool) {
	for _, name := range parents {
		if season, _, ok := findSeason(name); ok {
			return season, true
		}
	}
	return 0, false
}

// showFromParents takes the show name from the nearest folder that is not a
// bare season folder. "Show (2019) Season 2" yields "Show" and 2019.
func showFromParents(parents []string) (string, string) {
	for _, name := range parents {
		if _, start, ok := findSeason(name); ok {
			if start == 0 {
				continue
			}
			name = name[:start]
		}
		if title, year := ExtractNameAndYear(name); title != "" {
			return title, year
		}
	}
	return "", ""
}
