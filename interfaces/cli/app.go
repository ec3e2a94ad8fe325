// Package cli provides the dbmcp command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/dbmcp"
	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
	"github.com/felixgeelhaar/dbmcp/infrastructure/config"
)

// Build information set at build time.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer
	lookup config.LookupFunc

	configFile string
	envFile    string
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
		lookup: os.LookupEnv,
	}

	app.root = &cobra.Command{
		Use:   "dbmcp",
		Short: "Read-only database MCP server",
		Long: `dbmcp exposes PostgreSQL, MySQL and MongoDB to an AI assistant over the
Model Context Protocol. Every database operation passes a read-only guard
before a connection is opened.

Configuration comes from the environment, an optional .env file and an
optional YAML file. Environment variables win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.root.PersistentFlags().StringVarP(&app.configFile, "config", "c", "", "Path to a YAML configuration file")
	app.root.PersistentFlags().StringVar(&app.envFile, "env-file", "", "Path to a dotenv file (default .env when present)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newServeCmd(),
		app.newToolsCmd(),
		app.newCheckCmd(),
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

// WithLookup replaces the environment lookup. Used by tests.
func (a *App) WithLookup(lookup config.LookupFunc) *App {
	a.lookup = lookup
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig reads the configuration selected by the persistent flags.
func (a *App) loadConfig() (domainconfig.Config, error) {
	opts := []config.LoaderOption{
		config.WithConfigFile(a.configFile),
		config.WithLookup(a.lookup),
	}
	if a.envFile != "" {
		opts = append(opts, config.WithEnvFile(a.envFile))
	}
	cfg, err := config.NewLoaderWithOptions(opts...).Load()
	if err != nil {
		return cfg, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "dbmcp version %s\n", dbmcp.Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
