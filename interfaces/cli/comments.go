package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	api "github.com/felixgeelhaar/mediacatalog/interfaces/api"
)

// newCommentsCmd creates the comments command group.
func (a *App) newCommentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and write comments on titles",
		Long: `Read and write free-text comments attached to a title.

Comments are kept in the store configured under comments.backend
(memory, redis, badger, sqlite, postgres, dynamodb, mongodb or s3).
The memory store lasts one command.

Examples:
  catalog comments add 603 "The lobby scene still holds up"
  catalog comments list 603`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <media-id>",
			Short: "List the comments on a title, oldest first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.newClient(api.WithoutAPIKey())
				if err != nil {
					return err
				}
				defer func() { _ = client.Close() }()

				comments, err := client.Comments().List(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to list comments: %w", err)
				}
				if a.jsonOutput {
					return a.printJSON(comments)
				}
				if len(comments) == 0 {
					_, _ = fmt.Fprintln(a.stdout, "No comments")
					return nil
				}
				for _, c := range comments {
					_, _ = fmt.Fprintf(a.stdout, "[%s] %s\n", c.CreatedAt.Format(time.RFC3339), c.Text)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <media-id> <text>...",
			Short: "Add a comment to a title",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.newClient(api.WithoutAPIKey())
				if err != nil {
					return err
				}
				defer func() { _ = client.Close() }()

				comment, err := client.Comments().Add(cmd.Context(), args[0], strings.Join(args[1:], " "))
				if err != nil {
					return fmt.Errorf("failed to add comment: %w", err)
				}
				if a.jsonOutput {
					return a.printJSON(comment)
				}
				_, _ = fmt.Fprintf(a.stdout, "Added comment %s to %s\n", comment.ID, comment.MediaID)
				return nil
			},
		},
	)

	return cmd
}
