package catalog

import "strconv"

// ResultKind tags the shape a payload normalized to.
type ResultKind int

// Result shapes.
const (
	ResultEmpty ResultKind = iota
	ResultSingle
	ResultSequence
)

// String returns the shape name.
func (k ResultKind) String() string {
	switch k {
	case ResultSingle:
		return "single"
	case ResultSequence:
		return "sequence"
	default:
		return "empty"
	}
}

// PageInfo carries the pagination envelope of a list response.
type PageInfo struct {
	Page         int
	TotalPages   int
	TotalResults int
}

// HasMore reports whether a later page exists.
func (p PageInfo) HasMore() bool {
	return p.Page > 0 && p.Page < p.TotalPages
}

// Results is the normalized form of a payload.
type Results struct {
	kind  ResultKind
	items []any
	page  PageInfo
}

// EmptyResults returns an empty result set.
func EmptyResults() Results {
	return Results{kind: ResultEmpty}
}

// Normalize resolves any payload into Results. It never fails:
//
//	null, [] and {"results": []}  -> Empty
//	[a, b]                        -> Sequence [a, b]
//	{"results": [a, b], ...}      -> Sequence [a, b]
//	{...}                         -> Single {...}
//	scalars and raw text          -> Single
func Normalize(p Payload) Results {
	if !p.JSON {
		return Results{kind: ResultSingle, items: []any{p.Text}}
	}
	return NormalizeValue(p.Value)
}

// NormalizeValue normalizes a decoded JSON value.
func NormalizeValue(v any) Results {
	switch t := v.(type) {
	case nil:
		return EmptyResults()
	case []any:
		return sequence(t, PageInfo{})
	case map[string]any:
		if list, ok := t["results"].([]any); ok {
			return sequence(list, pageInfo(t))
		}
		return Results{kind: ResultSingle, items: []any{t}}
	default:
		return Results{kind: ResultSingle, items: []any{t}}
	}
}

func sequence(list []any, page PageInfo) Results {
	if len(list) == 0 {
		return Results{kind: ResultEmpty, page: page}
	}
	return Results{kind: ResultSequence, items: list, page: page}
}

func pageInfo(m map[string]any) PageInfo {
	page, _ := IntField(m, "page")
	pages, _ := IntField(m, "total_pages")
	total, _ := IntField(m, "total_results")
	return PageInfo{Page: page, TotalPages: pages, TotalResults: total}
}

// Kind returns the result shape.
func (r Results) Kind() ResultKind {
	return r.kind
}

// Items returns the items as a sequence. It is never nil.
func (r Results) Items() []any {
	if len(r.items) == 0 {
		return []any{}
	}
	out := make([]any, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of items.
func (r Results) Len() int {
	return len(r.items)
}

// First returns the first item.
func (r Results) First() (any, bool) {
	if len(r.items) == 0 {
		return nil, false
	}
	return r.items[0], true
}

// Page returns the pagination envelope, zero when the payload had none.
func (r Results) Page() PageInfo {
	return r.page
}

// Filter returns the items for which keep reports true.
func (r Results) Filter(keep func(item any) bool) Results {
	var kept []any
	for _, item := range r.items {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return Results{kind: ResultEmpty, page: r.page}
	}
	kind := r.kind
	if kind == ResultEmpty {
		kind = ResultSequence
	}
	return Results{kind: kind, items: kept, page: r.page}
}

// StringField reads a string attribute from an object item.
func StringField(item any, key string) string {
	m, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// IntField reads a numeric attribute from an object item.
func IntField(item any, key string) (int, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// Title returns the display title of a movie, show or person item.
func Title(item any) string {
	for _, key := range []string{"title", "name", "original_title", "original_name"} {
		if s := StringField(item, key); s != "" {
			return s
		}
	}
	if s, ok := item.(string); ok {
		return s
	}
	return ""
}
