package local

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// S01E02, s1.e2, S01_E02
	seasonEpisodeRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])s(\d{1,2})[ ._-]?e(\d{1,3})`)
	// 1x02
	crossEpisodeRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,2})x(\d{2,3})(?:[^0-9]|$)`)
	// E02, Ep 2, Episode.02 at the start of a name
	episodeOnlyRe = regexp.MustCompile(`(?i)^(?:e|ep|episode)[ ._-]*(\d{1,3})(?:[^0-9]|$)`)
	// Season 1, S01, Show.S02
	seasonRe   = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:s|season[ ._-]*)(\d{1,2})(?:[^0-9]|$)`)
	specialsRe = regexp.MustCompile(`(?i)^specials?$`)

	parenYearRe = regexp.MustCompile(`[(\[]((?:19|20)\d{2})[)\]]`)
	yearRe      = regexp.MustCompile(`(?:^|\D)((?:19|20)\d{2})(?:\D|$)`)

	// Release tags mark the end of a title once separators are spaces.
	releaseTagRe = regexp.MustCompile(`(?i)\b(?:2160p|1080p|720p|576p|480p|4k|uhd|hdr10|hdr|x26[45]|h 26[45]|hevc|avc|aac|ac3|dts|web[ -]?dl|webrip|bluray|blu-ray|bdrip|brrip|dvdrip|hdtv|proper|repack|unrated|remastered|10bit)\b`)

	emptyBracketsRe = regexp.MustCompile(`[(\[{]\s*[)\]}]`)

	videoRe    = regexp.MustCompile(`(?i)^\.(mp4|mkv|avi|mov|wmv|flv|webm|mpeg|mpg|m4v|3gp|vob|ts|mts|m2ts|rmvb|divx)$`)
	subtitleRe = regexp.MustCompile(`(?i)^\.(srt|sub|idx|ass|ssa|smi|vtt|sup)$`)
	langRe     = regexp.MustCompile(`(?i)\.[a-z]{2,3}(?:[-_][a-z]{2,4})?$`)

	separatorReplacer = strings.NewReplacer(".", " ", "_", " ")
)

// IsVideo reports whether ext (".mkv") is a video container extension.
func IsVideo(ext string) bool {
	return videoRe.MatchString(ext)
}

// IsSubtitle reports whether ext (".srt") is a subtitle extension.
func IsSubtitle(ext string) bool {
	return subtitleRe.MatchString(ext)
}

// ExtractNameAndYear cleans a release name into a title and its year.
// A bracketed year wins over a bare one, and a year at the very start is
// treated as part of the title ("1917 (2019)" is 1917 from 2019).
func ExtractNameAndYear(name string) (string, string) {
	formatted := separatorReplacer.Replace(name)
	year := ""

	if start, y, ok := findYear(formatted); ok {
		formatted = formatted[:start]
		year = y
	}
	if loc := releaseTagRe.FindStringIndex(formatted); loc != nil && loc[0] > 0 {
		formatted = formatted[:loc[0]]
	}
	return cleanName(formatted), year
}

// findYear returns where the year match starts in s and the year itself.
func findYear(s string) (int, string, bool) {
	for _, m := range parenYearRe.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > 0 {
			return m[0], s[m[2]:m[3]], true
		}
	}
	for _, m := range yearRe.FindAllStringSubmatchIndex(s, -1) {
		if m[2] > 0 {
			return m[2], s[m[2]:m[3]], true
		}
	}
	return 0, "", false
}

func cleanName(s string) string {
	s = emptyBracketsRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -([{")
}

// findSeasonEpisode locates an SxxEyy or NxNN marker. start and end bound
// the marker so callers can split the show name from the episode title.
func findSeasonEpisode(name string) (season, episode, start, end int, ok bool) {
	for _, re := range []*regexp.Regexp{seasonEpisodeRe, crossEpisodeRe} {
		m := re.FindStringSubmatchIndex(name)
		if m == nil {
			continue
		}
		season, _ = strconv.Atoi(name[m[2]:m[3]])
		episode, _ = strconv.Atoi(name[m[4]:m[5]])
		return season, episode, m[0], m[1], true
	}
	return 0, 0, 0, 0, false
}

// findEpisodeOnly matches names that carry just an episode number.
func findEpisodeOnly(name string) (int, bool) {
	m := episodeOnlyRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// findSeason matches season folder names. start is where the season marker
// begins; anything before it is the show name.
func findSeason(name string) (season, start int, ok bool) {
	if specialsRe.MatchString(strings.TrimSpace(name)) {
		return 0, 0, true
	}
	if m := seasonRe.FindStringSubmatchIndex(name); m != nil {
		season, _ = strconv.Atoi(name[m[2]:m[3]])
		return season, m[0], true
	}
	// A bare number is a season folder too, unless it looks like a year.
	if n, err := strconv.Atoi(strings.TrimSpace(name)); err == nil && n >= 0 && n <= 100 {
		return n, 0, true
	}
	return 0, 0, false
}
