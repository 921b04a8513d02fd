package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	api "github.com/felixgeelhaar/mediacatalog/interfaces/api"
)

func (a *App) newExportSchemaCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export-schema",
		Short: "Print the JSON schema of the configuration file",
		Long: `Print the JSON schema (draft 2020-12) that catalog configuration
files are checked against. Point an editor's YAML schema setting at the
output to get completion for catalog.yaml.`,
		Example: `  catalog export-schema
  catalog export-schema -o catalog.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := api.ConfigSchemaJSON()
			if err != nil {
				return fmt.Errorf("generating schema: %w", err)
			}
			if outputPath == "" {
				_, _ = fmt.Fprintln(a.stdout, schema)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(schema+"\n"), 0o644); err != nil {
				return fmt.Errorf("writing schema: %w", err)
			}
			_, _ = fmt.Fprintf(a.stdout, "Schema written to %s\n", outputPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write to file instead of stdout")
	return cmd
}
