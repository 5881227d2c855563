package cmd

import (
	"encoding/json"
	"fmt"
	"sync"

	statusadapter "github.com/bnema/campus-session/internal/adapters/render/status"
	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *app) *cobra.Command {
	var (
		child  bool
		asJSON bool
		live   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive and print every change until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			window := domain.WindowParent
			if child {
				window = domain.WindowChild
			}

			rt, err := app.openRuntime(cmd.Context(), runtimeOptions{window: window, background: true})
			if err != nil {
				return err
			}
			defer closeRuntime(app, rt)

			if live {
				return watchLive(cmd, app, rt)
			}

			var mu sync.Mutex
			emit := func(state domain.SessionState) {
				mu.Lock()
				defer mu.Unlock()
				if err := writeWatchLine(cmd, state, asJSON); err != nil {
					app.logger.Warn("write session update", logging.Err(err))
				}
			}

			unsubscribe := rt.monitor.Subscribe(emit)
			defer unsubscribe()

			emit(rt.monitor.Start(cmd.Context()))

			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&child, "child", false, "Follow the parent window instead of refreshing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON document per change")
	cmd.Flags().BoolVar(&live, "live", false, "Redraw the status view in place instead of printing lines")
	cmd.MarkFlagsMutuallyExclusive("json", "live")

	return cmd
}

// watchLive redraws the status view on every state change. Updates the view
// has not drawn yet are replaced by newer ones.
func watchLive(cmd *cobra.Command, app *app, rt *runtime) error {
	ctx := cmd.Context()
	updates := make(chan domain.SessionState, 1)
	unsubscribe := rt.monitor.Subscribe(func(state domain.SessionState) {
		for {
			select {
			case updates <- state:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	initial := rt.monitor.Start(ctx)

	return statusadapter.Watch(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), initial, updates, func() statusadapter.RenderOptions {
		return statusadapter.RenderOptions{Now: app.clock.Now(), StaleAfter: statusStaleAfter}
	})
}

func writeWatchLine(cmd *cobra.Command, state domain.SessionState, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(state)
	}

	user := string(state.UserID)
	if user == "" {
		user = "-"
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
		state.LastActivity.Format("15:04:05"), state.Phase, user, state.CurrentRole)
	return err
}
