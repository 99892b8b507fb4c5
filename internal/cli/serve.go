package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/krisalay/package-radar/internal/logging"
	"github.com/krisalay/package-radar/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the radar HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = a.logger.WithContext(ctx)

			if every := a.cfg.Cache.JanitorEvery; every > 0 {
				go a.radar.Cache.RunJanitor(ctx, every)
			}

			h := server.NewHandler(a.dashboard, a.radar.Cache, a.radar.Navigation,
				logging.Component(a.logger, "server"))
			return server.New(a.cfg.Server.Addr, h).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
