package provider

import (
	"fmt"
	"strings"
)

// Capability identifies a category of provider functionality. The set is
// closed: only the constants below are valid.
type Capability string

const (
	CapabilityCatalog         Capability = "catalog"
	CapabilityMetadata        Capability = "metadata"
	CapabilitySearch          Capability = "search"
	CapabilityPerson          Capability = "person"
	CapabilityRecommendations Capability = "recommendations"
	CapabilityExternalIDs     Capability = "external_ids"
	CapabilityRatings         Capability = "ratings"
	CapabilityComments        Capability = "comments"
	CapabilityTracking        Capability = "tracking"
	CapabilityAddonCatalog    Capability = "addon_catalog"
	CapabilityImages          Capability = "images"
	CapabilityStreams         Capability = "streams"
	CapabilitySubtitles       Capability = "subtitles"
)

// AllCapabilities lists every capability in canonical order. Query results
// that enumerate capabilities use this order.
var AllCapabilities = []Capability{
	CapabilityCatalog,
	CapabilityMetadata,
	CapabilitySearch,
	CapabilityPerson,
	CapabilityRecommendations,
	CapabilityExternalIDs,
	CapabilityRatings,
	CapabilityComments,
	CapabilityTracking,
	CapabilityAddonCatalog,
	CapabilityImages,
	CapabilityStreams,
	CapabilitySubtitles,
}

var capabilityIndex = func() map[Capability]int {
	idx := make(map[Capability]int, len(AllCapabilities))
	for i, c := range AllCapabilities {
		idx[c] = i
	}
	return idx
}()

// Valid reports whether c is one of the known capabilities.
func (c Capability) Valid() bool {
	_, ok := capabilityIndex[c]
	return ok
}

// Ordinal returns the position of c in AllCapabilities, or -1.
func (c Capability) Ordinal() int {
	if i, ok := capabilityIndex[c]; ok {
		return i
	}
	return -1
}

func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts user input such as "external-ids" or "Metadata"
// into a Capability.
func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !c.Valid() {
		return "", fmt.Errorf("unknown capability %q", s)
	}
	return c, nil
}

// Implements reports whether inst exposes the operation required by
// capability c. The switch is exhaustive over AllCapabilities.
func Implements(c Capability, inst Instance) bool {
	if inst == nil {
		return false
	}
	switch c {
	case CapabilityCatalog:
		_, ok := inst.(CatalogProvider)
		return ok
	case CapabilityMetadata:
		_, ok := inst.(MetadataProvider)
		return ok
	case CapabilitySearch:
		_, ok := inst.(SearchProvider)
		return ok
	case CapabilityPerson:
		_, ok := inst.(PersonProvider)
		return ok
	case CapabilityRecommendations:
		_, ok := inst.(RecommendationsProvider)
		return ok
	case CapabilityExternalIDs:
		_, ok := inst.(ExternalIDsProvider)
		return ok
	case CapabilityRatings:
		_, ok := inst.(RatingsProvider)
		return ok
	case CapabilityComments:
		_, ok := inst.(CommentsProvider)
		return ok
	case CapabilityTracking:
		_, ok := inst.(TrackingProvider)
		return ok
	case CapabilityAddonCatalog:
		_, ok := inst.(AddonCatalogProvider)
		return ok
	case CapabilityImages:
		_, ok := inst.(ImagesProvider)
		return ok
	case CapabilityStreams:
		_, ok := inst.(StreamsProvider)
		return ok
	case CapabilitySubtitles:
		_, ok := inst.(SubtitlesProvider)
		return ok
	default:
		return false
	}
}
