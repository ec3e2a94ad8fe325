package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/dbmcp/infrastructure/mcp"
)

func (a *App) newToolsCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the current configuration exposes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg, nil, runtimeOptions{memoryActivity: true})
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			for _, p := range rt.packs {
				fmt.Fprintf(a.stdout, "%s: %s\n", p.Name, p.Description)
				for _, t := range p.Tools {
					if verbose {
						fmt.Fprintf(a.stdout, "\n  %s\n    %s\n", t.Name(), indent(mcp.Describe(t)))
						continue
					}
					fmt.Fprintf(a.stdout, "  %-20s %s\n", t.Name(), t.Annotations().Hints())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print full tool descriptions")
	return cmd
}

func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n    ")
}
