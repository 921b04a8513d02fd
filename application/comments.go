package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/lock"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/logging"
)

// commentLockTTL bounds how long one Add may hold a media item's lock.
const commentLockTTL = 30 * time.Second

// ErrCommentsCorrupt indicates a stored comment document that cannot be decoded.
var ErrCommentsCorrupt = errors.New("stored comments are corrupt")

var errEncodeComments = errors.New("encoding comments")

// permanentCommentErrors fail the same way on every attempt.
var permanentCommentErrors = []error{
	ErrCommentsCorrupt,
	errEncodeComments,
	cache.ErrInvalidKey,
	cache.ErrClosed,
	context.Canceled,
}

// CommentService keeps an append-only list of comments per media item,
// stored as one JSON document per item.
type CommentService struct {
	store   cache.Store
	clock   clock.Clock
	retry   retry.Retry[[]catalog.Comment]
	newLock func() lock.Lock
}

// CommentConfig configures a CommentService.
type CommentConfig struct {
	Store             cache.Store
	Clock             clock.Clock
	// NewLock returns the lock one Add holds while it rewrites an item.
	// Every call must return a distinct holder. Defaults to in-process
	// locks on one shared store.
	NewLock           func() lock.Lock
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMultiplier   float64
}

// NewCommentService creates a comment service. A store is required.
func NewCommentService(config CommentConfig) (*CommentService, error) {
	if config.Store == nil {
		return nil, errors.New("comment store is required")
	}
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	if config.NewLock == nil {
		locks := lock.NewMemoryStore()
		config.NewLock = func() lock.Lock {
			return lock.NewMemoryLock(lock.WithStore(locks))
		}
	}
	if config.RetryMaxAttempts <= 0 {
		config.RetryMaxAttempts = 3
	}
	if config.RetryInitialDelay <= 0 {
		config.RetryInitialDelay = 50 * time.Millisecond
	}
	if config.RetryMultiplier < 1 {
		config.RetryMultiplier = 2.0
	}

	return &CommentService{
		store:   config.Store,
		clock:   config.Clock,
		newLock: config.NewLock,
		retry: retry.New[[]catalog.Comment](retry.Config{
			MaxAttempts:        config.RetryMaxAttempts,
			InitialDelay:       config.RetryInitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         config.RetryMultiplier,
			NonRetryableErrors: permanentCommentErrors,
		}),
	}, nil
}

// List returns the comments of mediaID, oldest first.
func (s *CommentService) List(ctx context.Context, mediaID string) ([]catalog.Comment, error) {
	key := catalog.CommentKey(mediaID)
	if key == catalog.CommentKey("") {
		return nil, fmt.Errorf("%w: media id is required", catalog.ErrInvalidArgument)
	}
	return s.retry.Do(ctx, func(ctx context.Context) ([]catalog.Comment, error) {
		return s.read(ctx, key)
	})
}

// Add appends a comment with text to mediaID and returns it. Blank text
// is rejected with catalog.ErrEmptyComment.
func (s *CommentService) Add(ctx context.Context, mediaID, text string) (catalog.Comment, error) {
	comment, err := catalog.NewComment(mediaID, text, s.clock.Now())
	if err != nil {
		return catalog.Comment{}, err
	}
	key := catalog.CommentKey(comment.MediaID)

	err = lock.With(ctx, s.newLock(), "lock:"+key, commentLockTTL, func(ctx context.Context) error {
		_, err := s.retry.Do(ctx, func(ctx context.Context) ([]catalog.Comment, error) {
			comments, err := s.read(ctx, key)
			if err != nil {
				return nil, err
			}
			for _, c := range comments {
				if c.ID == comment.ID {
					return comments, nil
				}
			}
			comments = append(comments, comment)
			if err := s.write(ctx, key, comments); err != nil {
				return nil, err
			}
			return comments, nil
		})
		return err
	})
	if err != nil {
		logging.Warn().
			Add(logging.Component("comments")).
			Add(logging.Str("media_id", comment.MediaID)).
			Add(logging.ErrorField(err)).
			Msg("failed to store comment")
		return catalog.Comment{}, err
	}
	return comment, nil
}

func (s *CommentService) read(ctx context.Context, key string) ([]catalog.Comment, error) {
	data, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading comments: %w", err)
	}
	if !ok || len(data) == 0 {
		return []catalog.Comment{}, nil
	}
	var comments []catalog.Comment
	if err := json.Unmarshal(data, &comments); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommentsCorrupt, err)
	}
	if comments == nil {
		comments = []catalog.Comment{}
	}
	return comments, nil
}

func (s *CommentService) write(ctx context.Context, key string, comments []catalog.Comment) error {
	data, err := json.Marshal(comments)
	if err != nil {
		return fmt.Errorf("%w: %v", errEncodeComments, err)
	}
	if err := s.store.Set(ctx, key, data, cache.SetOptions{}); err != nil {
		return fmt.Errorf("writing comments: %w", err)
	}
	return nil
}
