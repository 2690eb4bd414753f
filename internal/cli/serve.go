package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todos/internal/metrics"
	"github.com/mesh-intelligence/todos/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listen string
		idle   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the list to a browser",
		Long: `Serve runs the web UI. Each browser session loads the list on page load
and keeps its own session cache. Sessions idle longer than --session-idle
are dropped. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = a.cfg.listen
			}
			logger, logs, err := a.newLogger(cmd)
			if err != nil {
				return err
			}
			defer logs.Close()

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			srv := server.New(backend, server.Config{
				Addr:        listen,
				CacheKey:    a.cfg.cacheKey,
				Logger:      logger,
				Metrics:     metrics.New(),
				SessionIdle: idle,
			})
			if err := srv.Start(); err != nil {
				return sysError("%w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving todos on http://%s\n", srv.Addr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			return srv.Stop()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	cmd.Flags().DurationVar(&idle, "session-idle", server.DefaultSessionIdle, "drop browser sessions idle this long")
	return cmd
}
