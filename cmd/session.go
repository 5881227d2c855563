package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	statusadapter "github.com/bnema/campus-session/internal/adapters/render/status"
	"github.com/bnema/campus-session/internal/application"
	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/ports"
	"github.com/spf13/cobra"
)

const statusStaleAfter = 10 * time.Minute

func newLoginCmd(app *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = envOrDefault("CAMPUS_PASSWORD", "")
			}

			rt, err := app.openRuntime(cmd.Context(), runtimeOptions{window: domain.WindowParent})
			if err != nil {
				return err
			}
			defer closeRuntime(app, rt)

			var state domain.SessionState
			err = runIdentityCall(cmd.Context(), cmd.ErrOrStderr(), rt.monitor.Performance(), application.SignInOperation, "Signing in...", func(ctx context.Context) error {
				var err error
				state, err = rt.monitor.SignIn(ctx, ports.Credentials{Username: username, Password: password})
				return err
			})
			if err != nil {
				return err
			}

			return writeState(cmd, app, state, false)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username or email")
	cmd.Flags().StringVar(&password, "password", "", "Password (defaults to $CAMPUS_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := app.openRuntime(cmd.Context(), runtimeOptions{window: domain.WindowParent})
			if err != nil {
				return err
			}
			defer closeRuntime(app, rt)

			if err := rt.monitor.SignOut(cmd.Context()); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return err
		},
	}
}

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session shared by the parent window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := app.openStore()
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					app.logger.Warn("close session store", logging.Err(err))
				}
			}()

			state, err := store.ReadState(cmd.Context())
			if err != nil {
				return fmt.Errorf("read session state: %w", err)
			}

			return writeState(cmd, app, state, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newRefreshCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the session token now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := app.openRuntime(cmd.Context(), runtimeOptions{window: domain.WindowParent})
			if err != nil {
				return err
			}
			defer closeRuntime(app, rt)

			rt.monitor.Start(cmd.Context())

			var state domain.SessionState
			err = runIdentityCall(cmd.Context(), cmd.ErrOrStderr(), rt.monitor.Performance(), application.RefreshOperation, "Refreshing session...", func(ctx context.Context) error {
				var err error
				state, err = rt.monitor.Refresh(ctx)
				return err
			})
			if err != nil {
				return err
			}

			return writeState(cmd, app, state, false)
		},
	}
}

func writeState(cmd *cobra.Command, app *app, state domain.SessionState, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	rendered, err := app.statusRenderer(state, statusadapter.RenderOptions{
		Now:        app.clock.Now(),
		StaleAfter: statusStaleAfter,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func closeRuntime(app *app, rt *runtime) {
	if err := rt.close(); err != nil {
		app.logger.Warn("close session runtime", logging.Err(err))
	}
}
