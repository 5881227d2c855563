package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoSession         = errors.New("no session")
	ErrKeyNotFound       = errors.New("key not found")
	ErrAttemptTimeout    = errors.New("attempt timed out")
	ErrSessionLost       = errors.New("session lost")
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrRefreshCooldown   = errors.New("refresh cooldown has not elapsed")
)

type ErrorKind string

const (
	KindTransient   ErrorKind = "transient"
	KindSessionLoss ErrorKind = "session_loss"
	KindTerminal    ErrorKind = "terminal"
	KindConfig      ErrorKind = "config"
	KindNotFound    ErrorKind = "not_found"
	KindInternal    ErrorKind = "internal"
)

// Error tags a failure with the handling class it belongs to.
type Error struct {
	Kind    ErrorKind
	Op      string
	Err     error
	Context map[string]any
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	} else {
		parts = append(parts, string(e.Kind))
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// KindOf classifies err. Untagged errors are transient; the sentinels carry
// their own class.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}

	switch {
	case errors.Is(err, ErrNoSession), errors.Is(err, ErrSessionLost):
		return KindSessionLoss
	case errors.Is(err, ErrKeyNotFound):
		return KindNotFound
	default:
		return KindTransient
	}
}

// Retryable reports whether another attempt could change the outcome.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindConfig, KindTerminal:
		return false
	default:
		return true
	}
}

func ConfigError(op string, format string, args ...any) *Error {
	return NewError(KindConfig, op, fmt.Errorf(format, args...))
}
