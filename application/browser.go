package application

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

// seasonConcurrency bounds the season fetches of one detail bundle.
const seasonConcurrency = 4

// Browser drives the browsable pages: hero, trending and popular grids
// with per-category pagination, filtered search, and detail bundles.
type Browser struct {
	catalog *Catalog
	pages   *catalog.PageTracker

	mu     sync.Mutex
	query  string
	filter catalog.SearchFilter
}

// NewBrowser creates a browser over c with every category on page 1.
func NewBrowser(c *Catalog) *Browser {
	return &Browser{
		catalog: c,
		pages:   catalog.NewPageTracker(),
	}
}

// Pages returns the pagination tracker.
func (b *Browser) Pages() *catalog.PageTracker {
	return b.pages
}

// PageView is one load of a page's sections.
type PageView struct {
	Page     catalog.Page
	Hero     any
	HasHero  bool
	Trending catalog.Results
	Popular  catalog.Results
}

// Load resets the page's grids to page 1 and fetches the hero item and
// both grids concurrently.
func (b *Browser) Load(ctx context.Context, page catalog.Page) (PageView, error) {
	sections, err := catalog.SectionsFor(page)
	if err != nil {
		return PageView{}, err
	}
	b.resetPath(sections.Trending)
	b.resetPath(sections.Popular)

	view := PageView{Page: page}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hero, err := b.catalog.FetchMedia(gctx, sections.Hero, 1)
		if err != nil {
			return err
		}
		view.Hero, view.HasHero = hero.First()
		return nil
	})
	g.Go(func() error {
		var err error
		view.Trending, err = b.catalog.FetchMedia(gctx, sections.Trending, b.pages.CurrentFor(sections.Trending))
		return err
	})
	g.Go(func() error {
		var err error
		view.Popular, err = b.catalog.FetchMedia(gctx, sections.Popular, b.pages.CurrentFor(sections.Popular))
		return err
	})
	if err := g.Wait(); err != nil {
		return PageView{}, err
	}
	return view, nil
}

// More advances both grids of page and fetches their next pages. The
// returned view has no hero.
func (b *Browser) More(ctx context.Context, page catalog.Page) (PageView, error) {
	sections, err := catalog.SectionsFor(page)
	if err != nil {
		return PageView{}, err
	}
	trendingPage := b.pages.NextFor(sections.Trending)
	popularPage := b.pages.NextFor(sections.Popular)

	view := PageView{Page: page}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		view.Trending, err = b.catalog.FetchMedia(gctx, sections.Trending, trendingPage)
		return err
	})
	g.Go(func() error {
		var err error
		view.Popular, err = b.catalog.FetchMedia(gctx, sections.Popular, popularPage)
		return err
	})
	if err := g.Wait(); err != nil {
		return PageView{}, err
	}
	return view, nil
}

func (b *Browser) resetPath(path string) {
	if c, ok := catalog.CategoryFor(path); ok {
		b.pages.Reset(c)
	}
}

// SearchView is one page of filtered search results.
type SearchView struct {
	Query   string
	Filter  catalog.SearchFilter
	Page    int
	Results catalog.Results
}

// Search starts a new search on page 1. Queries shorter than
// catalog.MinSearchQueryLength after trimming return no results and
// perform no I/O.
func (b *Browser) Search(ctx context.Context, query string, filter catalog.SearchFilter) (SearchView, error) {
	query = strings.TrimSpace(query)
	if filter == "" {
		filter = catalog.FilterAll
	}

	b.mu.Lock()
	b.pages.Reset(catalog.CategorySearch)
	if utf8.RuneCountInString(query) < catalog.MinSearchQueryLength {
		b.query, b.filter = "", filter
		b.mu.Unlock()
		return SearchView{Query: query, Filter: filter, Page: 1, Results: catalog.EmptyResults()}, nil
	}
	b.query, b.filter = query, filter
	b.mu.Unlock()

	return b.search(ctx, query, filter, 1)
}

// SearchMore fetches the next page of the current search. Without an
// active search it returns no results.
func (b *Browser) SearchMore(ctx context.Context) (SearchView, error) {
	b.mu.Lock()
	query, filter := b.query, b.filter
	if query == "" {
		b.mu.Unlock()
		return SearchView{Filter: filter, Page: 1, Results: catalog.EmptyResults()}, nil
	}
	page := b.pages.Next(catalog.CategorySearch)
	b.mu.Unlock()

	return b.search(ctx, query, filter, page)
}

func (b *Browser) search(ctx context.Context, query string, filter catalog.SearchFilter, page int) (SearchView, error) {
	results, err := b.catalog.SearchMulti(ctx, query, page)
	if err != nil {
		return SearchView{}, err
	}
	return SearchView{
		Query:   query,
		Filter:  filter,
		Page:    page,
		Results: results.Filter(filter.Match),
	}, nil
}

// DetailBundle is everything shown for one title.
type DetailBundle struct {
	MediaType  catalog.MediaType
	Details    catalog.Details
	Trailer    catalog.Video
	HasTrailer bool
	Seasons    []catalog.Season
}

// TrailerURL returns the embed URL of the trailer, or "" without one.
func (d DetailBundle) TrailerURL() string {
	if !d.HasTrailer {
		return ""
	}
	return d.Trailer.EmbedURL()
}

// Details fetches a title's details and videos, and for shows every
// season listed in the details.
func (b *Browser) Details(ctx context.Context, mediaType, id string) (DetailBundle, error) {
	mt, id, err := mediaRef(mediaType, id)
	if err != nil {
		return DetailBundle{}, err
	}

	bundle := DetailBundle{MediaType: mt}
	var videos catalog.VideoList

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bundle.Details, err = b.catalog.Details(gctx, string(mt), id)
		return err
	})
	g.Go(func() error {
		var err error
		videos, err = b.catalog.Videos(gctx, string(mt), id)
		return err
	})
	if err := g.Wait(); err != nil {
		return DetailBundle{}, err
	}
	bundle.Trailer, bundle.HasTrailer = videos.Trailer()

	if mt != catalog.MediaTV || len(bundle.Details.Seasons) == 0 {
		return bundle, nil
	}

	seasons := make([]catalog.Season, len(bundle.Details.Seasons))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(seasonConcurrency)
	for i, summary := range bundle.Details.Seasons {
		g.Go(func() error {
			s, err := b.catalog.Season(gctx, id, summary.SeasonNumber)
			if err != nil {
				return err
			}
			seasons[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DetailBundle{}, err
	}
	bundle.Seasons = seasons
	return bundle, nil
}
