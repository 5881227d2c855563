package status

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/campus-session/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

// Render formats a single state snapshot.
func Render(state domain.SessionState, opts RenderOptions) (string, error) {
	return renderView(state, opts, newStyles()), nil
}

// stateMsg carries a state update into the watch model. ok is false once the
// update stream has closed.
type stateMsg struct {
	state domain.SessionState
	ok    bool
}

// watchModel redraws the session view each time the followed window publishes
// a new state.
type watchModel struct {
	updates <-chan domain.SessionState
	opts    func() RenderOptions
	styles  styles
	state   domain.SessionState
	changes int
}

func newWatchModel(initial domain.SessionState, updates <-chan domain.SessionState, opts func() RenderOptions) watchModel {
	return watchModel{
		updates: updates,
		opts:    opts,
		styles:  newStyles(),
		state:   initial,
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.next
}

func (m watchModel) next() tea.Msg {
	state, ok := <-m.updates
	return stateMsg{state: state, ok: ok}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		if !msg.ok {
			return m, tea.Quit
		}
		m.state = msg.state
		m.changes++
		return m, m.next
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m watchModel) View() string {
	view := renderView(m.state, m.opts(), m.styles)
	return view + "\n" + m.styles.detail.Render(watchFooter(m.changes))
}

func watchFooter(changes int) string {
	switch changes {
	case 0:
		return "waiting for the parent window... (q to quit)"
	case 1:
		return "1 update received (q to quit)"
	default:
		return fmt.Sprintf("%d updates received (q to quit)", changes)
	}
}

// Watch draws initial and then every state received on updates until the
// stream closes, the user quits or ctx is done. Cancellation is not an error.
func Watch(ctx context.Context, input io.Reader, output io.Writer, initial domain.SessionState, updates <-chan domain.SessionState, opts func() RenderOptions) error {
	p := tea.NewProgram(
		newWatchModel(initial, updates, opts),
		tea.WithContext(ctx),
		tea.WithInput(input),
		tea.WithOutput(output),
	)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
