package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/campus-session/internal/adapters/httpapi"
	"github.com/bnema/campus-session/internal/adapters/identity/masomo"
	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/pool"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session monitor with a local status API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := app.openRuntime(cmd.Context(), runtimeOptions{
				window:     domain.WindowParent,
				background: true,
				withPool:   true,
			})
			if err != nil {
				return err
			}
			defer closeRuntime(app, rt)

			server, err := httpapi.NewServer(httpapi.Options{
				Address:  addr,
				Session:  rt.monitor,
				Errors:   rt.tracker,
				Monitors: rt.monitor.Monitors(),
				Pool:     rt.clients,
				Identity: pooledHealthCheck{clients: rt.clients},
				Logger:   app.logger,
			})
			if err != nil {
				return fmt.Errorf("wire status server: %w", err)
			}

			rt.monitor.Start(cmd.Context())

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("shutdown status server: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOrDefault("CAMPUS_SERVE_ADDR", "127.0.0.1:8787"), "Listen address for the status API")

	return cmd
}

// pooledHealthCheck probes the identity service through a pooled client.
type pooledHealthCheck struct {
	clients *pool.Pool[*masomo.Client]
}

func (h pooledHealthCheck) HealthCheck(ctx context.Context) error {
	conn := h.clients.Acquire(ctx)
	defer h.clients.Release(conn)
	return conn.Handle.HealthCheck(ctx)
}
