package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

func indexFetcher() *routeFetcher {
	return newRouteFetcher().
		route("/movie/now_playing", movieList("Dune: Part Two", "Civil War")).
		route("/trending/movie/week", movieList("Alien", "Heat", "Ran")).
		route("/movie/popular", movieList("Jaws"))
}

func TestBrowser_Load(t *testing.T) {
	t.Parallel()

	f := indexFetcher()
	b := NewBrowser(newTestCatalog(t, f, nil))

	view, err := b.Load(context.Background(), catalog.PageIndex)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !view.HasHero || catalog.Title(view.Hero) != "Dune: Part Two" {
		t.Errorf("Hero = %v, want Dune: Part Two", view.Hero)
	}
	if view.Trending.Len() != 3 {
		t.Errorf("Trending has %d items, want 3", view.Trending.Len())
	}
	if view.Popular.Len() != 1 {
		t.Errorf("Popular has %d items, want 1", view.Popular.Len())
	}
	if got := f.count(); got != 3 {
		t.Errorf("network calls = %d, want 3", got)
	}
	for i := range f.calls() {
		if got := f.query(i).Get("page"); got != "1" {
			t.Errorf("call %d page = %q, want 1", i, got)
		}
	}
}

func TestBrowser_MoreAndReload(t *testing.T) {
	t.Parallel()

	f := indexFetcher()
	b := NewBrowser(newTestCatalog(t, f, nil))
	ctx := context.Background()

	if _, err := b.Load(ctx, catalog.PageIndex); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := b.More(ctx, catalog.PageIndex); err != nil {
		t.Fatalf("More() error = %v", err)
	}

	pages := b.Pages()
	if got := pages.Current(catalog.CategoryTrendingMovie); got != 2 {
		t.Errorf("trending page = %d, want 2", got)
	}
	if got := pages.Current(catalog.CategoryPopularMovie); got != 2 {
		t.Errorf("popular page = %d, want 2", got)
	}
	if got := f.count(); got != 5 {
		t.Fatalf("network calls = %d, want 5", got)
	}
	for _, i := range []int{3, 4} {
		if got := f.query(i).Get("page"); got != "2" {
			t.Errorf("call %d page = %q, want 2", i, got)
		}
	}

	// Reloading returns to page 1, which is still cached.
	if _, err := b.Load(ctx, catalog.PageIndex); err != nil {
		t.Fatalf("Load() again error = %v", err)
	}
	if got := pages.Current(catalog.CategoryPopularMovie); got != 1 {
		t.Errorf("popular page after reload = %d, want 1", got)
	}
	if got := f.count(); got != 5 {
		t.Errorf("network calls after reload = %d, want 5", got)
	}
}

func TestBrowser_PagesAreIndependent(t *testing.T) {
	t.Parallel()

	f := indexFetcher().
		route("/tv/top_rated", movieList("Severance")).
		route("/trending/tv/week", movieList("Shogun")).
		route("/tv/popular", movieList("Dark"))
	b := NewBrowser(newTestCatalog(t, f, nil))
	ctx := context.Background()

	if _, err := b.More(ctx, catalog.PageIndex); err != nil {
		t.Fatalf("More(index) error = %v", err)
	}
	if _, err := b.Load(ctx, catalog.PageSeries); err != nil {
		t.Fatalf("Load(series) error = %v", err)
	}

	if got := b.Pages().Current(catalog.CategoryPopularMovie); got != 2 {
		t.Errorf("movie popular page = %d, want 2", got)
	}
	if got := b.Pages().Current(catalog.CategoryPopularTV); got != 1 {
		t.Errorf("tv popular page = %d, want 1", got)
	}
}

func TestBrowser_UnknownPage(t *testing.T) {
	t.Parallel()

	b := NewBrowser(newTestCatalog(t, newRouteFetcher(), nil))

	if _, err := b.Load(context.Background(), catalog.Page("kids")); !errors.Is(err, catalog.ErrUnknownPage) {
		t.Errorf("Load() error = %v, want ErrUnknownPage", err)
	}
	if _, err := b.More(context.Background(), catalog.Page("kids")); !errors.Is(err, catalog.ErrUnknownPage) {
		t.Errorf("More() error = %v, want ErrUnknownPage", err)
	}
}

func TestBrowser_LoadFailure(t *testing.T) {
	t.Parallel()

	f := indexFetcher().fail("/movie/popular", &catalog.FetchError{
		Kind:    catalog.FailureExhausted,
		URL:     testBaseURL + "/movie/popular",
		Attempt: 3,
		Status:  503,
		Err:     fmt.Errorf("service unavailable"),
	})
	b := NewBrowser(newTestCatalog(t, f, nil))

	if _, err := b.Load(context.Background(), catalog.PageIndex); !errors.Is(err, catalog.ErrExhaustedRetries) {
		t.Errorf("Load() error = %v, want ErrExhaustedRetries", err)
	}
}

func searchResults() map[string]any {
	return map[string]any{
		"page":        float64(1),
		"total_pages": float64(2),
		"results": []any{
			map[string]any{"id": float64(1), "title": "Dune", "media_type": "movie"},
			map[string]any{"id": float64(2), "name": "Dune: Prophecy", "media_type": "tv"},
			map[string]any{"id": float64(3), "name": "Frank Herbert", "media_type": "person"},
		},
	}
}

func TestBrowser_Search(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter catalog.SearchFilter
		want   []string
	}{
		{name: "all", filter: catalog.FilterAll, want: []string{"Dune", "Dune: Prophecy", "Frank Herbert"}},
		{name: "default is all", filter: "", want: []string{"Dune", "Dune: Prophecy", "Frank Herbert"}},
		{name: "movies", filter: catalog.FilterMovie, want: []string{"Dune"}},
		{name: "shows", filter: catalog.FilterTV, want: []string{"Dune: Prophecy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newRouteFetcher().route("/search/multi", searchResults())
			b := NewBrowser(newTestCatalog(t, f, nil))

			view, err := b.Search(context.Background(), "  dune ", tt.filter)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if view.Query != "dune" || view.Page != 1 {
				t.Errorf("view = %q page %d, want dune page 1", view.Query, view.Page)
			}

			items := view.Results.Items()
			if len(items) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(items), len(tt.want))
			}
			for i, item := range items {
				if got := catalog.Title(item); got != tt.want[i] {
					t.Errorf("result %d = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestBrowser_SearchShortQuery(t *testing.T) {
	t.Parallel()

	for _, q := range []string{"", "a", "  b  ", "é"} {
		f := newRouteFetcher()
		b := NewBrowser(newTestCatalog(t, f, nil))

		view, err := b.Search(context.Background(), q, catalog.FilterAll)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", q, err)
		}
		if view.Results.Kind() != catalog.ResultEmpty {
			t.Errorf("Search(%q) kind = %v, want empty", q, view.Results.Kind())
		}
		if got := f.count(); got != 0 {
			t.Errorf("Search(%q) network calls = %d, want 0", q, got)
		}
	}
}

func TestBrowser_SearchMore(t *testing.T) {
	t.Parallel()

	f := newRouteFetcher().route("/search/multi", searchResults())
	b := NewBrowser(newTestCatalog(t, f, nil))
	ctx := context.Background()

	if _, err := b.Search(ctx, "dune", catalog.FilterMovie); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	view, err := b.SearchMore(ctx)
	if err != nil {
		t.Fatalf("SearchMore() error = %v", err)
	}
	if view.Page != 2 || view.Filter != catalog.FilterMovie || view.Results.Len() != 1 {
		t.Errorf("view = page %d filter %q with %d results", view.Page, view.Filter, view.Results.Len())
	}
	if got := f.query(1).Get("page"); got != "2" {
		t.Errorf("second search page = %q, want 2", got)
	}

	// A new search starts over on page 1.
	if _, err := b.Search(ctx, "alien", catalog.FilterAll); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := b.Pages().Current(catalog.CategorySearch); got != 1 {
		t.Errorf("search page = %d, want 1", got)
	}
}

func TestBrowser_SearchMoreWithoutQuery(t *testing.T) {
	t.Parallel()

	f := newRouteFetcher()
	b := NewBrowser(newTestCatalog(t, f, nil))
	ctx := context.Background()

	view, err := b.SearchMore(ctx)
	if err != nil {
		t.Fatalf("SearchMore() error = %v", err)
	}
	if view.Results.Kind() != catalog.ResultEmpty {
		t.Errorf("kind = %v, want empty", view.Results.Kind())
	}

	// A short query clears the previous search.
	f.route("/search/multi", searchResults())
	if _, err := b.Search(ctx, "dune", catalog.FilterAll); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, err := b.Search(ctx, "d", catalog.FilterAll); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if view, _ := b.SearchMore(ctx); view.Results.Kind() != catalog.ResultEmpty {
		t.Errorf("SearchMore() after short query = %v, want empty", view.Results.Kind())
	}
	if got := f.count(); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}
}

func TestBrowser_DetailsMovie(t *testing.T) {
	t.Parallel()

	f := newRouteFetcher().
		route("/movie/603", map[string]any{"id": float64(603), "title": "The Matrix"}).
		route("/movie/603/videos", map[string]any{"results": []any{
			map[string]any{"key": "m8e-FF8MsqU", "site": "YouTube", "type": "Trailer"},
		}})
	b := NewBrowser(newTestCatalog(t, f, nil))

	bundle, err := b.Details(context.Background(), "movie", "603")
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	if bundle.Details.DisplayTitle() != "The Matrix" {
		t.Errorf("title = %q", bundle.Details.DisplayTitle())
	}
	if got := bundle.TrailerURL(); got != "https://www.youtube.com/embed/m8e-FF8MsqU" {
		t.Errorf("TrailerURL() = %q", got)
	}
	if len(bundle.Seasons) != 0 {
		t.Errorf("movie has %d seasons", len(bundle.Seasons))
	}
}

func TestBrowser_DetailsShow(t *testing.T) {
	t.Parallel()

	f := newRouteFetcher().
		route("/tv/1399", map[string]any{
			"id":   float64(1399),
			"name": "Game of Thrones",
			"seasons": []any{
				map[string]any{"season_number": float64(0)},
				map[string]any{"season_number": float64(1)},
				map[string]any{"season_number": float64(2)},
			},
		}).
		route("/tv/1399/videos", map[string]any{"results": []any{}})
	for n := 0; n <= 2; n++ {
		f.route(fmt.Sprintf("/tv/1399/season/%d", n), map[string]any{
			"season_number": float64(n),
			"name":          fmt.Sprintf("Season %d", n),
		})
	}
	b := NewBrowser(newTestCatalog(t, f, nil))

	bundle, err := b.Details(context.Background(), "TV", "1399")
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	if bundle.MediaType != catalog.MediaTV {
		t.Errorf("MediaType = %q, want tv", bundle.MediaType)
	}
	if bundle.HasTrailer || bundle.TrailerURL() != "" {
		t.Errorf("unexpected trailer %+v", bundle.Trailer)
	}
	if len(bundle.Seasons) != 3 {
		t.Fatalf("got %d seasons, want 3", len(bundle.Seasons))
	}
	for i, s := range bundle.Seasons {
		if s.SeasonNumber != i {
			t.Errorf("season %d has number %d", i, s.SeasonNumber)
		}
	}
	if got := f.count(); got != 5 {
		t.Errorf("network calls = %d, want 5", got)
	}
}

func TestBrowser_DetailsErrors(t *testing.T) {
	t.Parallel()

	f := newRouteFetcher().
		route("/tv/1", map[string]any{
			"name":    "Broken",
			"seasons": []any{map[string]any{"season_number": float64(1)}},
		}).
		route("/tv/1/videos", map[string]any{"results": []any{}})
	b := NewBrowser(newTestCatalog(t, f, nil))
	ctx := context.Background()

	if _, err := b.Details(ctx, "person", "1"); !errors.Is(err, catalog.ErrInvalidArgument) {
		t.Errorf("Details(person) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := b.Details(ctx, "tv", "1"); !errors.Is(err, catalog.ErrFatalClient) {
		t.Errorf("Details() with missing season error = %v, want ErrFatalClient", err)
	}
}
