package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/monitor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	attemptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// attemptMsg is one identity call attempt starting or failing, as seen on the
// performance monitor.
type attemptMsg struct {
	failed bool
	reason string
}

type callDoneMsg struct {
	err error
}

// callProgress is the spinner shown while the session monitor talks to the
// identity service. Once an attempt fails it shows the retry count and the
// last failure.
type callProgress struct {
	spinner  spinner.Model
	label    string
	call     tea.Cmd
	attempts int
	lastErr  string
	err      error
	done     bool
}

func newCallProgress(label string, call tea.Cmd) callProgress {
	return callProgress{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		label: label,
		call:  call,
	}
}

func (m callProgress) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.call)
}

func (m callProgress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case attemptMsg:
		if msg.failed {
			m.lastErr = msg.reason
		} else {
			m.attempts++
		}
		return m, nil
	case callDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m callProgress) View() string {
	if m.done {
		return ""
	}

	line := fmt.Sprintf("%s %s", m.spinner.View(), m.label)
	if m.attempts > 1 {
		line += attemptStyle.Render(fmt.Sprintf(" attempt %d", m.attempts))
	}
	if m.lastErr != "" {
		line += failureStyle.Render(" (last: " + m.lastErr + ")")
	}
	return line
}

// runIdentityCall shows label while call runs. Attempts of operation on
// calls are reflected in the spinner line.
func runIdentityCall(ctx context.Context, output io.Writer, calls *monitor.Monitor, operation string, label string, call func(context.Context) error) error {
	p := tea.NewProgram(
		newCallProgress(label, func() tea.Msg {
			return callDoneMsg{err: call(ctx)}
		}),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	if calls != nil {
		unsubscribe := calls.Subscribe(func(event domain.OperationEvent) {
			if msg, ok := attemptFromEvent(operation, event); ok {
				p.Send(msg)
			}
		})
		defer unsubscribe()
	}

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(callProgress)
	if !ok {
		return fmt.Errorf("unexpected final progress model type %T", finalModel)
	}

	return result.err
}

func attemptFromEvent(operation string, event domain.OperationEvent) (attemptMsg, bool) {
	if event.Operation != operation {
		return attemptMsg{}, false
	}

	switch event.Status {
	case domain.StatusPending:
		return attemptMsg{}, true
	case domain.StatusError:
		return attemptMsg{failed: true, reason: event.Error}, true
	default:
		return attemptMsg{}, false
	}
}
