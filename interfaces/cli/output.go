package cli

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

// resultsOutput is the JSON form of catalog.Results.
type resultsOutput struct {
	Kind         string `json:"kind"`
	Page         int    `json:"page,omitempty"`
	TotalPages   int    `json:"total_pages,omitempty"`
	TotalResults int    `json:"total_results,omitempty"`
	Items        []any  `json:"items"`
}

func toResultsOutput(r catalog.Results) resultsOutput {
	p := r.Page()
	return resultsOutput{
		Kind:         r.Kind().String(),
		Page:         p.Page,
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
		Items:        r.Items(),
	}
}

// writeItems prints one line per item: title, media type and id.
func writeItems(w io.Writer, r catalog.Results) {
	if r.Kind() == catalog.ResultEmpty {
		_, _ = fmt.Fprintln(w, "  (no results)")
		return
	}
	for _, item := range r.Items() {
		_, _ = fmt.Fprintf(w, "  - %s\n", itemLabel(item))
	}
	if p := r.Page(); p.TotalPages > 0 {
		_, _ = fmt.Fprintf(w, "  page %d of %d\n", p.Page, p.TotalPages)
	}
}

func itemLabel(item any) string {
	title := catalog.Title(item)
	if title == "" {
		title = "(untitled)"
	}
	id := catalog.StringField(item, "id")
	mediaType := catalog.StringField(item, "media_type")
	switch {
	case mediaType != "" && id != "":
		return fmt.Sprintf("%s [%s %s]", title, mediaType, id)
	case id != "":
		return fmt.Sprintf("%s [%s]", title, id)
	default:
		return title
	}
}
