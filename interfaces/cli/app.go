// Package cli provides a command-line interface for the media catalog client.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/mediacatalog"
	api "github.com/felixgeelhaar/mediacatalog/interfaces/api"
)

// Version information set at build time.
var (
	Version   = mediacatalog.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	jsonOutput bool
	clientOpts []api.ClientOption
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "catalog",
		Short: "Browse and search a movie and TV catalog",
		Long: `catalog is a client for a movie and TV metadata API.

Every lookup goes through a response cache, a token bucket rate limiter and
a resilient fetcher that retries timeouts, server errors and dropped
connections with backoff.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file (default: built-in defaults)")
	app.root.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "Output results as JSON")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newExportSchemaCmd(),
		app.newBrowseCmd(),
		app.newSearchCmd(),
		app.newDetailsCmd(),
		app.newVideosCmd(),
		app.newSeasonCmd(),
		app.newImageCmd(),
		app.newCommentsCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithClientOptions adds options applied to every client the commands build.
func (a *App) WithClientOptions(opts ...api.ClientOption) *App {
	a.clientOpts = append(a.clientOpts, opts...)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "catalog version %s\n", Version)
			_, _ = fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}

// loadConfig loads the configuration file, or the defaults without one.
func (a *App) loadConfig() (*api.CatalogConfig, error) {
	config, err := api.NewConfigLoader().LoadFile(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config, nil
}

// newClient builds a client from the loaded configuration.
func (a *App) newClient(extra ...api.ClientOption) (*api.Client, error) {
	config, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	opts := append(append([]api.ClientOption{}, a.clientOpts...), extra...)
	client, err := api.NewClient(config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// printJSON writes v as indented JSON.
func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
