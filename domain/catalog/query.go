package catalog

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// QueryDescriptor describes one logical query. Build it with NewQuery;
// it is not modified afterwards.
type QueryDescriptor struct {
	Kind     OperationKind
	Path     string
	Params   map[string]string
	CacheKey string
	TTL      time.Duration
}

// NewQuery builds a descriptor and its cache key. The params map is copied.
func NewQuery(kind OperationKind, path string, params map[string]string, ttl time.Duration) QueryDescriptor {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return QueryDescriptor{
		Kind:     kind,
		Path:     path,
		Params:   copied,
		CacheKey: CacheKey(kind, path, copied),
		TTL:      ttl,
	}
}

// CacheKey derives the cache key of a query:
//
//	kind|path|k1=v1&k2=v2
//
// Every component is query-escaped, so the separators never occur inside
// a component and distinct tuples always produce distinct keys. Params are
// sorted, so map order does not matter.
func CacheKey(kind OperationKind, path string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url.QueryEscape(string(kind)))
	b.WriteByte('|')
	b.WriteString(url.QueryEscape(path))
	b.WriteByte('|')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}
