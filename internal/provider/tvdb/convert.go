package tvdb

import (
	"strconv"
	"strings"

	"github.com/dashotv/tvdb/openapi/models/shared"
)

// The generated TVDB client models every optional field as a pointer.

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// str dereferences and trims an optional string.
func str(p *string) string {
	return strings.TrimSpace(deref(p))
}

func score(p *float64) float32 {
	return float32(deref(p))
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func containsFold(values []string, value string) bool {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// findRemoteID returns the id TVDB lists for source, matched loosely since
// source names vary ("IMDB", "imdb.com").
func findRemoteID(ids []shared.RemoteID, source string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	for _, remote := range ids {
		if strings.Contains(strings.ToLower(str(remote.SourceName)), source) {
			return str(remote.ID)
		}
	}
	return ""
}
