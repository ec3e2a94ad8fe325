package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/dbmcp"
	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
	"github.com/felixgeelhaar/dbmcp/infrastructure/logging"
	"github.com/felixgeelhaar/dbmcp/infrastructure/mcp"
)

const instructions = `Database tools are read-only. run_query accepts SELECT, SHOW and EXPLAIN for SQL backends and shell expressions such as db.users.find({...}) for MongoDB. Writes are refused before any connection is made. Use list_tables first to discover the schema.`

func (a *App) newServeCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server over stdio, or over HTTP when --http is set.

Examples:
  # Serve over stdio for a desktop assistant
  dbmcp serve

  # Serve over HTTP with a YAML config
  dbmcp serve -c dbmcp.yaml --http :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), cfg, httpAddr)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve over HTTP on this address instead of stdio")
	return cmd
}

func (a *App) serve(ctx context.Context, cfg domainconfig.Config, httpAddr string) error {
	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: a.stderr,
	})

	rt, err := newRuntime(cfg, logger, runtimeOptions{})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.close(shutdownCtx); err != nil {
			logging.NewEvent(logger.Warn()).With(logging.ErrorField(err)).Msg("shutdown")
		}
	}()

	srv := mcp.NewServer(mcp.ServerConfig{
		Name:         dbmcp.ServerName,
		Version:      dbmcp.Version,
		Description:  "Read-only database access with notification and activity tools",
		Instructions: instructions,
		Dispatcher:   rt.dispatcher,
		Activity:     rt.activity,
		Logger:       logger,
	})

	if httpAddr != "" {
		return srv.ServeHTTP(ctx, httpAddr)
	}
	return srv.ServeStdio(ctx)
}
