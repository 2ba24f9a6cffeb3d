package authn

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/repository"
)

const minPasswordLength = 6

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// PasswordAuthenticator checks email and password pairs against bcrypt
// hashes held in the user repository.
type PasswordAuthenticator struct {
	users        UserRepository
	defaultRoles []string
	cost         int
}

func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Register creates an account holding the default roles.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &domain.ValidationError{Field: "email", Message: "invalid email address"}
	}

	if len(password) < minPasswordLength {
		return nil, &domain.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Roles:        append([]string(nil), a.defaultRoles...),
	}

	if err := a.users.CreateUser(ctx, user); err != nil {
		var exists *repository.AlreadyExistsError
		if errors.As(err, &exists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewPasswordAuthenticator returns an authenticator granting defaultRoles
// to new accounts. A zero cost uses bcrypt.DefaultCost.
func NewPasswordAuthenticator(users UserRepository, defaultRoles []string, cost int) *PasswordAuthenticator {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	return &PasswordAuthenticator{users: users, defaultRoles: defaultRoles, cost: cost}
}
