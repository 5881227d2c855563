package domain

import "time"

type OperationStatus string

const (
	StatusPending OperationStatus = "pending"
	StatusSuccess OperationStatus = "success"
	StatusError   OperationStatus = "error"
)

// OperationEvent is the record every operation monitor keeps.
type OperationEvent struct {
	ID        string
	Operation string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Status    OperationStatus
	Error     string
	Slow      bool
	// Superseded is set when a newer operation for the same name force-ended this one.
	Superseded bool
	Context    map[string]any
}

func (e OperationEvent) Pending() bool {
	return e.Status == StatusPending
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

type ErrorEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Severity  Severity       `json:"severity"`
	Source    string         `json:"source"`
	Context   map[string]any `json:"context,omitempty"`
}

// DedupKey identifies events that collapse into one recorded occurrence.
func (e ErrorEvent) DedupKey() string {
	return string(e.Severity) + "|" + e.Source + "|" + e.Message
}

type AuthEventType string

const (
	AuthSignedIn       AuthEventType = "SIGNED_IN"
	AuthSignedOut      AuthEventType = "SIGNED_OUT"
	AuthTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is pushed by the identity service when its auth state changes.
type AuthEvent struct {
	Type    AuthEventType
	Session Session
}
