package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ImageContentType returns the content type for an accepted image filename.
func ImageContentType(filename string) (string, bool) {
	ct, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

// ImageKey returns the object key for a table cover image, e.g.
// "tables/la-tomba-degli-orrori-<uuid>.png".
func ImageKey(tableName, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := imageExtensions[ext]; !ok {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	return "tables/" + slugOr(tableName, "table") + "-" + uuid.NewString() + ext, nil
}

// ListingKey returns the object key for a published listing snapshot.
func ListingKey(at time.Time, title string) string {
	return "listings/" + at.Format("2006-01-02") + "-" + slugOr(title, "listing") + "-" + uuid.NewString() + ".json"
}

func slugOr(s, fallback string) string {
	if out := slug.Make(s); out != "" {
		return out
	}
	return fallback
}
