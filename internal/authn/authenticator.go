package authn

import (
	"context"
	"errors"

	"github.com/CameronXie/tailor-ledger/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

type Registrar interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
}
