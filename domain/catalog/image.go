package catalog

import (
	"fmt"
	"strings"
)

// ImageSize is a size token understood by the image CDN.
type ImageSize string

// Supported image sizes.
const (
	SizeW92      ImageSize = "w92"
	SizeW154     ImageSize = "w154"
	SizeW185     ImageSize = "w185"
	SizeW342     ImageSize = "w342"
	SizeW500     ImageSize = "w500"
	SizeW780     ImageSize = "w780"
	SizeOriginal ImageSize = "original"

	DefaultImageSize = SizeW500
)

// ImageSizes lists the supported sizes, smallest first.
func ImageSizes() []ImageSize {
	return []ImageSize{SizeW92, SizeW154, SizeW185, SizeW342, SizeW500, SizeW780, SizeOriginal}
}

// Valid reports whether s is a supported size.
func (s ImageSize) Valid() bool {
	for _, known := range ImageSizes() {
		if s == known {
			return true
		}
	}
	return false
}

// ImageURLBuilder builds image URLs from relative image paths.
type ImageURLBuilder struct {
	BaseURL        string
	OriginalURL    string
	PlaceholderURL string
}

// DefaultImageURLBuilder returns a builder pointed at the public CDN.
func DefaultImageURLBuilder() ImageURLBuilder {
	return ImageURLBuilder{
		BaseURL:        DefaultImageBaseURL,
		OriginalURL:    DefaultOriginalImageURL,
		PlaceholderURL: DefaultPlaceholderURL,
	}
}

// URL returns the image URL for path at size. An empty path yields the
// placeholder whatever the size; an empty size means DefaultImageSize.
func (b ImageURLBuilder) URL(path string, size ImageSize) (string, error) {
	if strings.TrimSpace(path) == "" {
		return b.PlaceholderURL, nil
	}
	if size == "" {
		size = DefaultImageSize
	}
	if !size.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageSize, size)
	}
	if size == SizeOriginal {
		return b.OriginalURL + path, nil
	}
	return b.BaseURL + string(size) + path, nil
}
