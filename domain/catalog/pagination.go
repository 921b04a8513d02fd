package catalog

import (
	"strings"
	"sync"
)

// Category is a pagination counter slot.
type Category string

// Pagination categories.
const (
	CategoryTrendingMovie       Category = "trending.movie"
	CategoryTrendingTV          Category = "trending.tv"
	CategoryTrendingAiringToday Category = "trending.airing_today"
	CategoryPopularMovie        Category = "popular.movie"
	CategoryPopularTV           Category = "popular.tv"
	CategoryPopularOnTheAir     Category = "popular.on_the_air"
	CategorySearch              Category = "search"
)

var categoryPaths = []struct {
	path     string
	category Category
}{
	{"/trending/movie/week", CategoryTrendingMovie},
	{"/movie/popular", CategoryPopularMovie},
	{"/trending/tv/week", CategoryTrendingTV},
	{"/tv/popular", CategoryPopularTV},
	{"/tv/airing_today", CategoryTrendingAiringToday},
	{"/tv/on_the_air", CategoryPopularOnTheAir},
	{"/search/multi", CategorySearch},
}

// CategoryFor maps an endpoint path to its pagination category.
func CategoryFor(path string) (Category, bool) {
	for _, cp := range categoryPaths {
		if strings.Contains(path, cp.path) {
			return cp.category, true
		}
	}
	return "", false
}

// PageTracker keeps the current page per category. Pages start at 1.
type PageTracker struct {
	mu    sync.Mutex
	pages map[Category]int
}

// NewPageTracker returns a tracker with every category on page 1.
func NewPageTracker() *PageTracker {
	return &PageTracker{pages: make(map[Category]int)}
}

// Current returns the current page of c.
func (t *PageTracker) Current(c Category) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current(c)
}

func (t *PageTracker) current(c Category) int {
	if p, ok := t.pages[c]; ok {
		return p
	}
	return 1
}

// Next advances c and returns the new page.
func (t *PageTracker) Next(c Category) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.current(c) + 1
	t.pages[c] = p
	return p
}

// Reset puts c back on page 1.
func (t *PageTracker) Reset(c Category) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pages, c)
}

// ResetAll puts every category back on page 1.
func (t *PageTracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages = make(map[Category]int)
}

// CurrentFor returns the current page for an endpoint path. Paths without
// a category are always on page 1.
func (t *PageTracker) CurrentFor(path string) int {
	c, ok := CategoryFor(path)
	if !ok {
		return 1
	}
	return t.Current(c)
}

// NextFor advances the category of path and returns the new page. Paths
// without a category stay on page 1.
func (t *PageTracker) NextFor(path string) int {
	c, ok := CategoryFor(path)
	if !ok {
		return 1
	}
	return t.Next(c)
}
