package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now        time.Time
	StaleAfter time.Duration
}

func renderView(state domain.SessionState, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Campus Session"),
		s.header.Render(fmt.Sprintf("window: %s  phase: %s", windowLabel(state.WindowID), state.Phase)),
	}

	if !state.IsAuthenticated {
		lines = append(lines, s.section.Render(s.empty.Render(emptyLabel(state.Phase))))
	} else {
		lines = append(lines, s.section.Render(renderUser(state, opts, s)))
	}

	if detail := operationLine(state.LastOperation, s); detail != "" {
		lines = append(lines, s.section.Render(detail))
	}

	if len(state.SessionErrors) > 0 {
		lines = append(lines, s.section.Render(renderErrors(state, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderUser(state domain.SessionState, opts RenderOptions, s styles) string {
	parts := []string{
		s.user.Render(userTitle(state)),
		expiryLine(state, opts, s),
	}

	activity := s.detail.Render("last activity: " + formatClock(state.LastActivity, opts.Now))
	if isStale(state.LastActivity, opts) {
		activity += " " + s.warning.Render("[stale]")
	}
	parts = append(parts, activity)

	if state.RefreshAttempts > 0 {
		parts = append(parts, s.warning.Render(fmt.Sprintf("refresh attempts: %d", state.RefreshAttempts)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderErrors(state domain.SessionState, s styles) string {
	parts := []string{s.key.Render(fmt.Sprintf("errors (%d):", len(state.SessionErrors)))}
	for _, msg := range state.SessionErrors {
		parts = append(parts, s.warning.Render("- "+msg))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func userTitle(state domain.SessionState) string {
	role := strings.TrimSpace(state.CurrentRole)
	if role == "" {
		role = strings.TrimSpace(state.Role)
	}
	if role == "" {
		return fmt.Sprintf("User: %s", state.UserID)
	}
	return fmt.Sprintf("User: %s (%s)", state.UserID, role)
}

func emptyLabel(phase domain.SessionPhase) string {
	if phase == domain.PhaseLost {
		return "Session lost. Sign in again."
	}
	return "No active session."
}

func windowLabel(role domain.WindowRole) string {
	switch role {
	case domain.WindowParent:
		return "parent"
	case domain.WindowChild:
		return "child"
	default:
		return "unknown"
	}
}

func expiryLine(state domain.SessionState, opts RenderOptions, s styles) string {
	label := s.key.Render("token:")
	if state.ExpiresAt.IsZero() {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render("expiry unknown"))
	}

	left := lifetimeLeft(state.LastRefresh, state.ExpiresAt, opts.Now)
	bar := renderProgressBar(left, 24, s)
	percentStyle := lipgloss.NewStyle().Foreground(interpolateColor(left, 0, 100))
	meta := percentStyle.Render(fmt.Sprintf("%2.0f%% left", left))
	expiry := s.meta.Render(fmt.Sprintf("(%s)", formatExpiryRelative(state.ExpiresAt, opts.Now)))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		label,
		" ",
		bar,
		" ",
		meta,
		" ",
		expiry,
	)
}

// lifetimeLeft is the share of the token lifetime still ahead of now, measured
// from the last refresh.
func lifetimeLeft(issuedAt, expiresAt, now time.Time) float64 {
	if now.IsZero() {
		return 100
	}
	if !now.Before(expiresAt) {
		return 0
	}
	if issuedAt.IsZero() || !issuedAt.Before(expiresAt) {
		return 100
	}
	total := expiresAt.Sub(issuedAt)
	return clampPercent(100 * expiresAt.Sub(now).Seconds() / total.Seconds())
}

func operationLine(op domain.LastOperation, s styles) string {
	if op.Type == "" {
		return ""
	}

	outcome := "ok"
	if !op.Success {
		outcome = "failed"
	}
	line := s.detail.Render(fmt.Sprintf("last operation: %s %s", op.Type, outcome))
	if op.Error != "" {
		line += " " + s.warning.Render(op.Error)
	}
	return line
}

func isStale(at time.Time, opts RenderOptions) bool {
	if opts.Now.IsZero() || opts.StaleAfter <= 0 || at.IsZero() {
		return false
	}
	return opts.Now.Sub(at) > opts.StaleAfter
}

func renderProgressBar(leftPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(leftPercent) / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatClock(at, now time.Time) string {
	if at.IsZero() {
		return "never"
	}
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}

	return at.Format("15:04 on 02 Jan")
}

func formatExpiryRelative(expiresAt, now time.Time) string {
	if now.IsZero() {
		return "expires " + formatClock(expiresAt, now)
	}

	if !expiresAt.After(now) {
		return "expired"
	}

	remaining := expiresAt.Sub(now)
	switch {
	case remaining < time.Hour:
		return fmt.Sprintf("expires in %s (%s)", plural(int(math.Ceil(remaining.Minutes())), "minute"), expiresAt.Format("15:04"))
	case remaining < 24*time.Hour:
		return fmt.Sprintf("expires in %s (%s)", plural(int(math.Ceil(remaining.Hours())), "hour"), expiresAt.Format("15:04"))
	default:
		return fmt.Sprintf("expires in %s (%s)", plural(int(math.Ceil(remaining.Hours()/24)), "day"), expiresAt.Format("15:04 on 02 Jan"))
	}
}

func plural(n int, unit string) string {
	if n < 1 {
		n = 1
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale: 240 faded at min, 255 bright at max.
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(baseColor + (targetColor-baseColor)*normalized)

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
