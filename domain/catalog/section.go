package catalog

import (
	"fmt"
	"strings"
)

// Page names a browsable catalog page.
type Page string

// Catalog pages.
const (
	PageIndex   Page = "index"
	PageSeries  Page = "series"
	PageTVShows Page = "tvshows"
)

// Pages lists every page.
func Pages() []Page {
	return []Page{PageIndex, PageSeries, PageTVShows}
}

// Sections are the endpoint paths feeding one page.
type Sections struct {
	Trending string
	Popular  string
	Hero     string
}

var pageSections = map[Page]Sections{
	PageIndex: {
		Trending: "/trending/movie/week",
		Popular:  "/movie/popular",
		Hero:     "/movie/now_playing",
	},
	PageSeries: {
		Trending: "/trending/tv/week",
		Popular:  "/tv/popular",
		Hero:     "/tv/top_rated",
	},
	PageTVShows: {
		Trending: "/tv/airing_today",
		Popular:  "/tv/on_the_air",
		Hero:     "/tv/popular",
	},
}

// SectionsFor returns the sections of page.
func SectionsFor(page Page) (Sections, error) {
	s, ok := pageSections[page]
	if !ok {
		return Sections{}, fmt.Errorf("%w: %q", ErrUnknownPage, page)
	}
	return s, nil
}

// ParsePage parses a page name.
func ParsePage(s string) (Page, error) {
	p := Page(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := pageSections[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPage, s)
	}
	return p, nil
}

// MinSearchQueryLength is the shortest trimmed query that triggers a search.
const MinSearchQueryLength = 2

// SearchFilter restricts search results by media type.
type SearchFilter string

// Search filters.
const (
	FilterAll   SearchFilter = "all"
	FilterMovie SearchFilter = "movie"
	FilterTV    SearchFilter = "tv"
)

// ParseSearchFilter parses a filter name. Empty means FilterAll.
func ParseSearchFilter(s string) (SearchFilter, error) {
	switch f := SearchFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterMovie, FilterTV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: search filter %q", ErrInvalidArgument, s)
	}
}

// Match reports whether item passes the filter.
func (f SearchFilter) Match(item any) bool {
	if f == "" || f == FilterAll {
		return true
	}
	return StringField(item, "media_type") == string(f)
}
