package ports

import (
	"context"

	"github.com/bnema/campus-session/internal/domain"
)

// SessionBroker shares the parent window's state snapshot with child windows.
type SessionBroker interface {
	ReadSnapshot(ctx context.Context) (domain.StateSnapshot, error)
	WriteSnapshot(ctx context.Context, snapshot domain.StateSnapshot) error
}
