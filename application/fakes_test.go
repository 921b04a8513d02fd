package application

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

const testBaseURL = "https://api.test/3"

// routeFetcher serves payloads by request path and records every URL.
type routeFetcher struct {
	mu     sync.Mutex
	routes map[string]catalog.Payload
	errs   map[string]error
	urls   []string

	// entered and release, when set, block each fetch until released.
	entered chan struct{}
	release chan struct{}

	// aborted, when set, is closed once a blocked fetch sees its context end.
	aborted chan struct{}
}

func newRouteFetcher() *routeFetcher {
	return &routeFetcher{
		routes: make(map[string]catalog.Payload),
		errs:   make(map[string]error),
	}
}

func (f *routeFetcher) route(path string, v any) *routeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes["/3"+path] = catalog.ValuePayload(v)
	return f
}

func (f *routeFetcher) fail(path string, err error) *routeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs["/3"+path] = err
	return f
}

func (f *routeFetcher) Fetch(ctx context.Context, rawURL string) (catalog.Payload, error) {
	f.mu.Lock()
	f.urls = append(f.urls, rawURL)
	entered, release, aborted := f.entered, f.release, f.aborted
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			if aborted != nil {
				close(aborted)
			}
			return catalog.Payload{}, ctx.Err()
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return catalog.Payload{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[u.Path]; ok {
		return catalog.Payload{}, err
	}
	if p, ok := f.routes[u.Path]; ok {
		return p, nil
	}
	return catalog.Payload{}, &catalog.FetchError{
		Kind:    catalog.FailureFatalClient,
		URL:     rawURL,
		Attempt: 1,
		Status:  404,
		Err:     fmt.Errorf("no route for %s", u.Path),
	}
}

func (f *routeFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.urls))
	copy(out, f.urls)
	return out
}

func (f *routeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

// query returns the query parameters of the i-th recorded URL.
func (f *routeFetcher) query(i int) url.Values {
	calls := f.calls()
	if i >= len(calls) {
		return nil
	}
	u, err := url.Parse(calls[i])
	if err != nil {
		return nil
	}
	return u.Query()
}

// stubLimiter grants while tokens remain and counts acquisitions.
type stubLimiter struct {
	mu       sync.Mutex
	tokens   int
	acquired int
}

func (l *stubLimiter) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquired++
	if l.tokens <= 0 {
		return false, nil
	}
	l.tokens--
	return true, nil
}

func (l *stubLimiter) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired
}

func movieList(titles ...string) map[string]any {
	results := make([]any, 0, len(titles))
	for i, title := range titles {
		results = append(results, map[string]any{
			"id":         float64(i + 1),
			"title":      title,
			"media_type": "movie",
		})
	}
	return map[string]any{
		"page":          float64(1),
		"total_pages":   float64(3),
		"total_results": float64(len(titles)),
		"results":       results,
	}
}
