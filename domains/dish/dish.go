package dish

import (
	"context"
	"regexp"
)

// Query describes a dish whose photographic representation should be resolved.
// Field names on the wire follow the image-matcher workflow contract.
type Query struct {
	Name               string `json:"name" query:"name"`
	Description        string `json:"desc,omitempty" query:"desc"`
	GeneralDescription string `json:"gen_desc,omitempty" query:"gen_desc"`
	Category           string `json:"category,omitempty" query:"category"`
	Count              *int   `json:"count,omitempty" query:"count"`
	PlaceID            string `json:"place_id,omitempty" query:"place_id"`
}

// Gallery is the result of a full gallery resolution.
type Gallery struct {
	ImageURLs []string `json:"image_urls"`
	FromCache bool     `json:"from_cache"`
}

// Thumbnail is the result of a single-image resolution keyed by name+category.
type Thumbnail struct {
	URL       string `json:"url"`
	FromCache bool   `json:"from_cache"`
}

type IDishImageUsecase interface {
	ResolveGallery(ctx context.Context, query Query) (Gallery, error)
	ResolveThumbnail(ctx context.Context, name, category string) (Thumbnail, error)
}

// ImageMatcher is the upstream image-matching workflow boundary.
type ImageMatcher interface {
	MatchImages(ctx context.Context, query Query) ([]string, error)
}

// placeIDPattern matches Google Place identifiers.
var placeIDPattern = regexp.MustCompile(`^ChIJ[A-Za-z0-9_-]{16,}$`)

// NormalizePlaceID returns the place ID if it looks like a venue identifier,
// or an empty string so a malformed value is treated as absent rather than
// rejected.
func NormalizePlaceID(placeID string) string {
	if placeIDPattern.MatchString(placeID) {
		return placeID
	}
	return ""
}
