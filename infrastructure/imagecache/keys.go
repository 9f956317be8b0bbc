package imagecache

import (
	"encoding/json"
	"strings"

	domainDish "github.com/snapfood/snapfood-engine/domains/dish"
)

// Key namespaces. Gallery and thumbnail results never share an entry even for
// the same dish.
const (
	galleryKeyPrefix   = "dish-image-"
	thumbnailKeyPrefix = "dish-thumbnail-"
)

func normalizeField(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// GalleryKey derives a deterministic cache key from a dish query. Two queries
// that differ only in casing, surrounding whitespace or field order produce
// the identical key: absent optionals are omitted, string values are
// normalized, and encoding/json serializes map keys in sorted order.
func GalleryKey(query domainDish.Query) string {
	fields := map[string]any{
		"name": normalizeField(query.Name),
	}
	if query.Description != "" {
		fields["desc"] = normalizeField(query.Description)
	}
	if query.GeneralDescription != "" {
		fields["gen_desc"] = normalizeField(query.GeneralDescription)
	}
	if query.Category != "" {
		fields["category"] = normalizeField(query.Category)
	}
	if query.Count != nil {
		fields["count"] = *query.Count
	}
	if query.PlaceID != "" {
		fields["place_id"] = normalizeField(query.PlaceID)
	}

	serialized, _ := json.Marshal(fields)
	return galleryKeyPrefix + string(serialized)
}

// ThumbnailKey derives the thumbnail cache key from name and category only.
// Other dish fields never influence thumbnail identity.
func ThumbnailKey(name, category string) string {
	normalizedCategory := normalizeField(category)
	if normalizedCategory == "" {
		normalizedCategory = "default"
	}
	return thumbnailKeyPrefix + normalizeField(name) + "-" + normalizedCategory
}
