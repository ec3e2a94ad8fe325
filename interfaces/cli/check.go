package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

func (a *App) newCheckCmd() *cobra.Command {
	var (
		backend string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Connect to each configured backend and list its tables",
		Long: `Check opens a read-only connection to every configured backend, or to
the one named by --backend, and lists its tables. It exits non-zero when
any backend fails.`,
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

			backends := cfg.Backends()
			if backend != "" {
				b, err := query.ParseBackend(backend)
				if err != nil {
					return err
				}
				backends = []query.Backend{b}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var failed []error
			for _, b := range backends {
				tables, err := rt.dispatcher.ListTables(ctx, b)
				if err != nil {
					fmt.Fprintf(a.stdout, "%-8s FAIL %v\n", b, err)
					failed = append(failed, err)
					continue
				}
				fmt.Fprintf(a.stdout, "%-8s ok   %d tables\n", b, len(tables))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d backend(s) failed: %w", len(failed), errors.Join(failed...))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "Check only this backend")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	return cmd
}
