package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

func lookupKey(key string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if name == "TMDB_API_KEY" && key != "" {
			return key, true
		}
		return "", false
	}
}

// recordingServer serves a fixed list response and records request URLs.
type recordingServer struct {
	*httptest.Server
	mu   sync.Mutex
	urls []string
}

func newRecordingServer(t *testing.T) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.urls = append(rs.urls, r.URL.String())
		rs.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"page":1,"total_pages":4,"results":[{"id":1,"title":"Alien","media_type":"movie"}]}`)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) requests() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.urls...)
}

func newTestClient(t *testing.T, cfg *CatalogConfig, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithoutLoggingSetup(), WithLookupEnv(lookupKey("test-key"))}, opts...)
	c, err := NewClient(cfg, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(nil, WithoutLoggingSetup(), WithLookupEnv(lookupKey("")))
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("NewClient() error = %v, want ErrMissingAPIKey", err)
	}
	if !errors.Is(err, ErrBuildFailed) {
		t.Errorf("NewClient() error = %v, want ErrBuildFailed", err)
	}
}

func TestNewClient_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultCatalogConfig()
	cfg.Comments.Backend = "cassandra"

	if _, err := NewClient(cfg, WithoutLoggingSetup(), WithLookupEnv(lookupKey("k"))); err == nil {
		t.Fatal("NewClient() should fail for an unknown comment backend")
	}
}

func TestClient_ImageURL(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil, WithoutAPIKey(), WithLookupEnv(lookupKey("")))

	tests := []struct {
		name    string
		path    string
		size    catalog.ImageSize
		want    string
		wantErr error
	}{
		{name: "sized", path: "/poster.jpg", size: "w185", want: catalog.DefaultImageBaseURL + "w185/poster.jpg"},
		{name: "original", path: "/poster.jpg", size: "original", want: catalog.DefaultOriginalImageURL + "/poster.jpg"},
		{name: "placeholder", path: "", size: "w500", want: catalog.DefaultPlaceholderURL},
		{name: "invalid size", path: "/poster.jpg", size: "w9000", wantErr: catalog.ErrInvalidImageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ImageURL(tt.path, tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ImageURL() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ImageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_FetchMedia(t *testing.T) {
	t.Parallel()

	srv := newRecordingServer(t)
	cfg := DefaultCatalogConfig()
	cfg.API.BaseURL = srv.URL + "/3"

	reader := metric.NewManualReader()
	c := newTestClient(t, cfg, WithMetricReader(reader))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		results, err := c.Catalog().FetchMedia(ctx, "/movie/popular", 1)
		if err != nil {
			t.Fatalf("FetchMedia() error = %v", err)
		}
		if results.Len() != 1 || results.Page().TotalPages != 4 {
			t.Errorf("results = %d items, %d pages", results.Len(), results.Page().TotalPages)
		}
	}

	reqs := srv.requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if !strings.HasPrefix(reqs[0], "/3/movie/popular?") || !strings.Contains(reqs[0], "api_key=test-key") {
		t.Errorf("request = %q", reqs[0])
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					counts[m.Name] += dp.Value
				}
			}
		}
	}
	if counts["catalog.cache.hits"] != 1 || counts["catalog.cache.misses"] != 1 {
		t.Errorf("cache hits = %d misses = %d, want 1 and 1",
			counts["catalog.cache.hits"], counts["catalog.cache.misses"])
	}
	if counts["catalog.fetch.attempts"] != 1 {
		t.Errorf("fetch attempts = %d, want 1", counts["catalog.fetch.attempts"])
	}
}

func TestClient_ProxyMode(t *testing.T) {
	t.Parallel()

	srv := newRecordingServer(t)
	cfg := DefaultCatalogConfig()
	cfg.API.Proxy = true
	cfg.API.ProxyBase = srv.URL + "/api/tmdb"

	c := newTestClient(t, cfg, WithLookupEnv(lookupKey("")))

	if _, err := c.Catalog().SearchMulti(context.Background(), "alien", 1); err != nil {
		t.Fatalf("SearchMulti() error = %v", err)
	}

	reqs := srv.requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if !strings.HasPrefix(reqs[0], "/api/tmdb?target=") {
		t.Errorf("request = %q, want proxy path", reqs[0])
	}
	if strings.Contains(reqs[0], "api_key") {
		t.Errorf("proxy request %q carries an api key", reqs[0])
	}
}

func TestClient_Comments(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	ctx := context.Background()

	if _, err := c.Comments().Add(ctx, "603", "Still holds up."); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	comments, err := c.Comments().List(ctx, "603")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(comments) != 1 || comments[0].Text != "Still holds up." {
		t.Errorf("List() = %+v", comments)
	}
}

func TestClient_BrowserUsesCatalog(t *testing.T) {
	t.Parallel()

	srv := newRecordingServer(t)
	cfg := DefaultCatalogConfig()
	cfg.API.BaseURL = srv.URL + "/3"
	c := newTestClient(t, cfg)

	view, err := c.Browser().Load(context.Background(), catalog.PageSeries)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !view.HasHero || view.Trending.Len() != 1 || view.Popular.Len() != 1 {
		t.Errorf("view = %+v", view)
	}
	if got := len(srv.requests()); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	c, err := NewClient(nil, WithoutLoggingSetup(), WithLookupEnv(lookupKey("k")))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
