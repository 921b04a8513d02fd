package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/mediacatalog/application"
	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

// searchOptions holds options for the search command.
type searchOptions struct {
	filter string
	pages  int
}

// searchOutput is the JSON form of a search.
type searchOutput struct {
	Query  string          `json:"query"`
	Filter string          `json:"filter"`
	Pages  []resultsOutput `json:"pages"`
}

// newSearchCmd creates the search command.
func (a *App) newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search movies, TV shows and people",
		Long: `Search movies, TV shows and people by name.

Queries shorter than two characters are ignored.

Examples:
  # Search everything
  catalog search "blade runner"

  # Only TV shows, first three pages
  catalog search dune --filter tv --pages 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.search(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.filter, "filter", "all", "Result filter (all, movie, tv)")
	cmd.Flags().IntVar(&opts.pages, "pages", 1, "Number of result pages to load")

	return cmd
}

func (a *App) search(ctx context.Context, query string, opts *searchOptions) error {
	filter, err := catalog.ParseSearchFilter(opts.filter)
	if err != nil {
		return err
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	browser := client.Browser()
	view, err := browser.Search(ctx, query, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	views := []application.SearchView{view}
	for i := 1; i < opts.pages && view.Results.Page().HasMore(); i++ {
		view, err = browser.SearchMore(ctx)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		views = append(views, view)
	}

	if a.jsonOutput {
		out := searchOutput{Query: views[0].Query, Filter: string(filter)}
		for _, v := range views {
			out.Pages = append(out.Pages, toResultsOutput(v.Results))
		}
		return a.printJSON(out)
	}

	_, _ = fmt.Fprintf(a.stdout, "Search: %q (%s)\n", views[0].Query, filter)
	for _, v := range views {
		writeItems(a.stdout, v.Results)
	}
	return nil
}
