package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

// Default remote locations.
const (
	DefaultBaseURL          = "https://api.themoviedb.org/3"
	DefaultImageBaseURL     = "https://image.tmdb.org/t/p/"
	DefaultOriginalImageURL = "https://image.tmdb.org/t/p/original"
	DefaultPlaceholderURL   = "https://via.placeholder.com/500x750?text=No+Image"
	DefaultProxyBase        = "http://localhost:3000/api/tmdb"
	YouTubeEmbedBase        = "https://www.youtube.com/embed/"
)

// APIKeyParam is the query parameter carrying the API key.
const APIKeyParam = "api_key"

// EndpointBuilder turns a query path and params into an absolute URL.
type EndpointBuilder struct {
	// BaseURL is the API root. Paths are appended to its path.
	BaseURL string

	// APIKey is attached as api_key unless OmitAPIKey is set.
	APIKey string

	// OmitAPIKey leaves the key off, as when a proxy attaches it.
	OmitAPIKey bool
}

// Build returns the URL for path with params. Params are encoded in
// sorted key order; empty values are dropped.
func (b EndpointBuilder) Build(path string, params map[string]string) (string, error) {
	base := b.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %v", ErrInvalidArgument, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: base url %q is not absolute", ErrInvalidArgument, base)
	}

	rel, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: path %q: %v", ErrInvalidArgument, path, err)
	}

	// Escaped segments such as %2F stay escaped.
	raw := strings.TrimRight(u.EscapedPath(), "/") + "/" + strings.TrimLeft(rel.EscapedPath(), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: path %q: %v", ErrInvalidArgument, path, err)
	}
	u.Path = decoded
	u.RawPath = raw

	q := u.Query()
	for k, vs := range rel.Query() {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if !b.OmitAPIKey && b.APIKey != "" {
		q.Set(APIKeyParam, b.APIKey)
	}
	for k, v := range params {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ProxyURL wraps target so it is forwarded through proxyBase as the
// target query parameter.
func ProxyURL(proxyBase, target string) (string, error) {
	u, err := url.Parse(proxyBase)
	if err != nil {
		return "", fmt.Errorf("%w: proxy base: %v", ErrInvalidArgument, err)
	}
	q := u.Query()
	q.Set("target", target)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
