package domain

import (
	"strings"
	"time"
)

type UserID string

type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	UserID       UserID    `json:"userId"`
	Username     string    `json:"username,omitempty"`
	Role         string    `json:"role,omitempty"`
	Roles        []string  `json:"roles,omitempty"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	// OrigIssuedAt is when the sign-in that started this refresh chain happened.
	OrigIssuedAt time.Time `json:"origIssuedAt"`
}

// Empty reports whether s carries no identity, the "no session" outcome.
func (s Session) Empty() bool {
	return strings.TrimSpace(s.AccessToken) == "" || strings.TrimSpace(string(s.UserID)) == ""
}

func (s Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(s.ExpiresAt)
}

func (s Session) Expired(now time.Time) bool {
	return s.ExpiresWithin(now, 0)
}

type SessionPhase string

const (
	PhaseUnauthenticated SessionPhase = "unauthenticated"
	PhaseAuthenticated   SessionPhase = "authenticated"
	PhaseRefreshing      SessionPhase = "refreshing"
	PhaseLost            SessionPhase = "lost"
)

type WindowRole string

const (
	WindowParent WindowRole = "parent"
	WindowChild  WindowRole = "child"
)

func (r WindowRole) Valid() bool {
	return r == WindowParent || r == WindowChild
}

type OperationType string

const (
	OpSignIn      OperationType = "sign_in"
	OpRefresh     OperationType = "refresh"
	OpSignOut     OperationType = "sign_out"
	OpSessionLoss OperationType = "session_loss"
	OpLoad        OperationType = "load"
	OpSync        OperationType = "sync"
)

type LastOperation struct {
	Type      OperationType `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

const MaxSessionErrors = 5

// SessionState is the authoritative session view published to subscribers.
type SessionState struct {
	Phase           SessionPhase  `json:"phase"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	CurrentRole     string        `json:"currentRole"`
	LastActivity    time.Time     `json:"lastActivity"`
	LastRefresh     time.Time     `json:"lastRefresh"`
	RefreshAttempts int           `json:"refreshAttempts"`
	SessionErrors   []string      `json:"sessionErrors"`
	LastOperation   LastOperation `json:"lastOperation"`
	ExpiresAt       time.Time     `json:"expiresAt"`
	UserID          UserID        `json:"userId"`
	Role            string        `json:"role"`
	WindowID        WindowRole    `json:"windowId"`
}

func NewSessionState(window WindowRole, now time.Time) SessionState {
	if !window.Valid() {
		window = WindowParent
	}
	return SessionState{
		Phase:        PhaseUnauthenticated,
		LastActivity: now,
		WindowID:     window,
	}
}

// AppendSessionError adds msg and drops the oldest entries beyond MaxSessionErrors.
func (s *SessionState) AppendSessionError(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	s.SessionErrors = append(s.SessionErrors, msg)
	if overflow := len(s.SessionErrors) - MaxSessionErrors; overflow > 0 {
		s.SessionErrors = append([]string(nil), s.SessionErrors[overflow:]...)
	}
}

// Clone returns a copy that shares no slices with s.
func (s SessionState) Clone() SessionState {
	if s.SessionErrors != nil {
		s.SessionErrors = append([]string(nil), s.SessionErrors...)
	}
	return s
}
