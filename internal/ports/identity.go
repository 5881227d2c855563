package ports

import (
	"context"

	"github.com/bnema/campus-session/internal/domain"
)

type Credentials struct {
	Username string
	Password string
}

// IdentityService is the remote identity backend. Implementations return
// domain.ErrNoSession when no session exists and tag failures with a
// domain.ErrorKind.
type IdentityService interface {
	SignIn(ctx context.Context, creds Credentials) (domain.Session, error)
	GetSession(ctx context.Context) (domain.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (domain.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(handler func(domain.AuthEvent)) (unsubscribe func())
	HealthCheck(ctx context.Context) error
}
