package catalog

import (
	"fmt"
	"strings"
)

// MediaType identifies the kind of media an item describes.
type MediaType string

// Media types understood by the remote API.
const (
	MediaMovie  MediaType = "movie"
	MediaTV     MediaType = "tv"
	MediaPerson MediaType = "person"
)

// ParseMediaType parses a media type accepted by detail and video lookups.
// Only movie and tv are valid there.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaMovie:
		return MediaMovie, nil
	case MediaTV:
		return MediaTV, nil
	default:
		return "", fmt.Errorf("%w: media type %q", ErrInvalidArgument, s)
	}
}

// String returns the media type as sent on the wire.
func (m MediaType) String() string {
	return string(m)
}

// OperationKind names a logical query operation. It is the first
// component of every cache key.
type OperationKind string

// Query operations.
const (
	KindMedia   OperationKind = "media"
	KindDetails OperationKind = "details"
	KindSearch  OperationKind = "search"
	KindVideos  OperationKind = "videos"
	KindSeason  OperationKind = "season"
)

// OperationKinds lists every operation kind.
func OperationKinds() []OperationKind {
	return []OperationKind{KindMedia, KindDetails, KindSearch, KindVideos, KindSeason}
}

// String returns the operation kind name.
func (k OperationKind) String() string {
	return string(k)
}
