package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/mediacatalog/application"
	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

// browseOptions holds options for the browse command.
type browseOptions struct {
	more int
}

// browseOutput is the JSON form of a browsed page.
type browseOutput struct {
	Page     string          `json:"page"`
	Hero     any             `json:"hero,omitempty"`
	Trending []resultsOutput `json:"trending"`
	Popular  []resultsOutput `json:"popular"`
}

// newBrowseCmd creates the browse command.
func (a *App) newBrowseCmd() *cobra.Command {
	opts := &browseOptions{}

	cmd := &cobra.Command{
		Use:   "browse [page]",
		Short: "Show the hero, trending and popular sections of a page",
		Long: `Show one catalog page: a hero title plus the trending and popular grids.

Pages:
  index    movies (default)
  series   TV series
  tvshows  TV airing today and on the air

Examples:
  # Browse the movie page
  catalog browse

  # Browse series and load two more pages of each grid
  catalog browse series --more 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := string(catalog.PageIndex)
			if len(args) > 0 {
				name = args[0]
			}
			page, err := catalog.ParsePage(name)
			if err != nil {
				return err
			}
			return a.browse(cmd.Context(), page, opts)
		},
	}

	cmd.Flags().IntVar(&opts.more, "more", 0, "Number of additional grid pages to load")

	return cmd
}

func (a *App) browse(ctx context.Context, page catalog.Page, opts *browseOptions) error {
	client, err := a.newClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	browser := client.Browser()
	view, err := browser.Load(ctx, page)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", page, err)
	}
	views := []application.PageView{view}
	for i := 0; i < opts.more; i++ {
		next, err := browser.More(ctx, page)
		if err != nil {
			return fmt.Errorf("failed to load more of %s: %w", page, err)
		}
		views = append(views, next)
	}

	if a.jsonOutput {
		out := browseOutput{Page: string(page)}
		if view.HasHero {
			out.Hero = view.Hero
		}
		for _, v := range views {
			out.Trending = append(out.Trending, toResultsOutput(v.Trending))
			out.Popular = append(out.Popular, toResultsOutput(v.Popular))
		}
		return a.printJSON(out)
	}

	_, _ = fmt.Fprintf(a.stdout, "Page: %s\n", page)
	if view.HasHero {
		_, _ = fmt.Fprintf(a.stdout, "Hero: %s\n", itemLabel(view.Hero))
	}
	_, _ = fmt.Fprintf(a.stdout, "\nTrending:\n")
	for _, v := range views {
		writeItems(a.stdout, v.Trending)
	}
	_, _ = fmt.Fprintf(a.stdout, "\nPopular:\n")
	for _, v := range views {
		writeItems(a.stdout, v.Popular)
	}
	return nil
}
