package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
	api "github.com/felixgeelhaar/mediacatalog/interfaces/api"
)

// newImageCmd creates the image command.
func (a *App) newImageCmd() *cobra.Command {
	var size string

	cmd := &cobra.Command{
		Use:   "image [path]",
		Short: "Print the URL of a poster or backdrop image",
		Long: `Print the URL of an image path at a given size. Without a path the
placeholder image is printed. No API key is needed.

Sizes: w92, w154, w185, w342, w500, w780, original

Examples:
  catalog image /8Gxv8gSFCU0XGDykEGv7zR1n2ua.jpg --size w342`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}

			client, err := a.newClient(api.WithoutAPIKey())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			url, err := client.ImageURL(path, catalog.ImageSize(size))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.stdout, url)
			return nil
		},
	}

	cmd.Flags().StringVar(&size, "size", string(catalog.DefaultImageSize), "Image size")

	return cmd
}
