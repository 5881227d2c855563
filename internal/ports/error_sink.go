package ports

import (
	"context"

	"github.com/bnema/campus-session/internal/domain"
)

// ErrorSink receives error events after deduplication.
type ErrorSink interface {
	Report(ctx context.Context, event domain.ErrorEvent) error
}
