package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Comment is a free-text note attached to a media item.
type Comment struct {
	ID        string    `json:"id"`
	MediaID   string    `json:"media_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewComment validates and creates a comment. Text is trimmed; blank text
// is rejected with ErrEmptyComment.
func NewComment(mediaID, text string, now time.Time) (Comment, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return Comment{}, fmt.Errorf("%w: media id is required", ErrInvalidArgument)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, ErrEmptyComment
	}
	return Comment{
		ID:        uuid.NewString(),
		MediaID:   mediaID,
		Text:      text,
		CreatedAt: now.UTC(),
	}, nil
}

// CommentKey is the store key holding the comments of a media item.
func CommentKey(mediaID string) string {
	return "comments:" + strings.TrimSpace(mediaID)
}
