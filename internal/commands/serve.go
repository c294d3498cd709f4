package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/httpapi"
)

func newServeCommand(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the projections as a read-only JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withBooks(cmd, opts, func(_ context.Context, b *books, _ *printer) error {
				if addr == "" {
					addr = b.cfg.Server.Addr
				}
				srv := httpapi.New(b.reporter, b.registry, b.log)
				fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", b.root, addr)
				return srv.ListenAndServe(ctx, addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from tally.yaml)")

	return cmd
}
