package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

// detailsOutput is the JSON form of a detail bundle.
type detailsOutput struct {
	MediaType  string           `json:"media_type"`
	Details    catalog.Details  `json:"details"`
	TrailerURL string           `json:"trailer_url,omitempty"`
	Seasons    []catalog.Season `json:"seasons,omitempty"`
}

// newDetailsCmd creates the details command.
func (a *App) newDetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <movie|tv> <id>",
		Short: "Show a title's details, trailer and seasons",
		Long: `Show the details of a movie or TV show with its trailer, and for
shows every season's episode list.

Examples:
  catalog details movie 603
  catalog details tv 1399 --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.details(cmd.Context(), args[0], args[1])
		},
	}
}

func (a *App) details(ctx context.Context, mediaType, id string) error {
	client, err := a.newClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	bundle, err := client.Browser().Details(ctx, mediaType, id)
	if err != nil {
		return fmt.Errorf("failed to load details: %w", err)
	}

	if a.jsonOutput {
		return a.printJSON(detailsOutput{
			MediaType:  string(bundle.MediaType),
			Details:    bundle.Details,
			TrailerURL: bundle.TrailerURL(),
			Seasons:    bundle.Seasons,
		})
	}

	d := bundle.Details
	_, _ = fmt.Fprintf(a.stdout, "%s [%s %d]\n", d.DisplayTitle(), bundle.MediaType, d.ID)
	if date := d.Date(); date != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Released: %s\n", date)
	}
	if d.VoteAverage > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Rating: %.1f\n", d.VoteAverage)
	}
	if d.Overview != "" {
		_, _ = fmt.Fprintf(a.stdout, "  %s\n", d.Overview)
	}
	if bundle.HasTrailer {
		_, _ = fmt.Fprintf(a.stdout, "  Trailer: %s\n", bundle.TrailerURL())
	}
	for _, s := range bundle.Seasons {
		_, _ = fmt.Fprintf(a.stdout, "\n  %s (season %d, %d episodes)\n", s.Name, s.SeasonNumber, len(s.Episodes))
		for _, e := range s.Episodes {
			_, _ = fmt.Fprintf(a.stdout, "    %2d. %s\n", e.EpisodeNumber, e.Name)
		}
	}
	return nil
}

// newVideosCmd creates the videos command.
func (a *App) newVideosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "videos <movie|tv> <id>",
		Short: "List the videos attached to a title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.videos(cmd.Context(), args[0], args[1])
		},
	}
}

func (a *App) videos(ctx context.Context, mediaType, id string) error {
	client, err := a.newClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	list, err := client.Catalog().Videos(ctx, mediaType, id)
	if err != nil {
		return fmt.Errorf("failed to load videos: %w", err)
	}

	if a.jsonOutput {
		return a.printJSON(list)
	}

	if len(list.Results) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "No videos")
		return nil
	}
	for _, v := range list.Results {
		_, _ = fmt.Fprintf(a.stdout, "  - %s (%s on %s)\n", v.Name, v.Type, v.Site)
	}
	if trailer, ok := list.Trailer(); ok {
		_, _ = fmt.Fprintf(a.stdout, "Trailer: %s\n", trailer.EmbedURL())
	}
	return nil
}

// newSeasonCmd creates the season command.
func (a *App) newSeasonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "season <tv-id> <number>",
		Short: "List the episodes of one season",
		Long: `List the episodes of one season of a TV show. Season 0 holds specials.

Examples:
  catalog season 1399 1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: season number %q", catalog.ErrInvalidArgument, args[1])
			}
			return a.season(cmd.Context(), args[0], number)
		},
	}
}

func (a *App) season(ctx context.Context, tvID string, number int) error {
	client, err := a.newClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	s, err := client.Catalog().Season(ctx, tvID, number)
	if err != nil {
		return fmt.Errorf("failed to load season: %w", err)
	}

	if a.jsonOutput {
		return a.printJSON(s)
	}

	_, _ = fmt.Fprintf(a.stdout, "%s (season %d)\n", s.Name, s.SeasonNumber)
	for _, e := range s.Episodes {
		_, _ = fmt.Fprintf(a.stdout, "  %2d. %s", e.EpisodeNumber, e.Name)
		if e.AirDate != "" {
			_, _ = fmt.Fprintf(a.stdout, " (%s)", e.AirDate)
		}
		_, _ = fmt.Fprintln(a.stdout)
	}
	return nil
}
