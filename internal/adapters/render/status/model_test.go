package status

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func watchOptions(now time.Time) func() RenderOptions {
	return func() RenderOptions {
		return RenderOptions{Now: now, StaleAfter: 10 * time.Minute}
	}
}

func TestWatchModelRedrawsOnStateUpdate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	updates := make(chan domain.SessionState)
	m := newWatchModel(domain.SessionState{WindowID: domain.WindowChild, Phase: domain.PhaseUnauthenticated}, updates, watchOptions(now))

	assert.Contains(t, m.View(), "window: child")
	assert.Contains(t, m.View(), "waiting for the parent window")

	updated, cmd := m.Update(stateMsg{ok: true, state: domain.SessionState{
		Phase:           domain.PhaseAuthenticated,
		IsAuthenticated: true,
		CurrentRole:     "teacher",
		UserID:          "u-42",
		WindowID:        domain.WindowChild,
		LastActivity:    now,
		ExpiresAt:       now.Add(30 * time.Minute),
	}})
	require.NotNil(t, cmd)

	view := updated.View()
	assert.Contains(t, view, "User: u-42 (teacher)")
	assert.Contains(t, view, "1 update received")
}

func TestWatchModelQuits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{name: "stream closed", msg: stateMsg{ok: false}},
		{name: "q key", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}},
		{name: "ctrl+c", msg: tea.KeyMsg{Type: tea.KeyCtrlC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newWatchModel(domain.SessionState{}, nil, watchOptions(time.Time{}))
			_, cmd := m.Update(tt.msg)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestWatchModelIgnoresOtherKeys(t *testing.T) {
	t.Parallel()

	m := newWatchModel(domain.SessionState{}, nil, watchOptions(time.Time{}))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)
}

func TestWatchReturnsWhenUpdatesClose(t *testing.T) {
	t.Parallel()

	updates := make(chan domain.SessionState, 1)
	updates <- domain.SessionState{Phase: domain.PhaseAuthenticated, IsAuthenticated: true, UserID: "u-1"}
	close(updates)

	err := Watch(context.Background(), nil, io.Discard, domain.SessionState{}, updates, watchOptions(time.Now()))
	require.NoError(t, err)
}

func TestWatchTreatsCancellationAsDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, nil, io.Discard, domain.SessionState{}, make(chan domain.SessionState), watchOptions(time.Now()))
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancellation")
	}
}
