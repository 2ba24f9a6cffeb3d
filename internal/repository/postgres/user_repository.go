package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/repository"
)

const uniqueViolationCode = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// CreateUser stores a new account. A taken email yields repository.AlreadyExistsError.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, email, password_hash, roles) VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, nonNil(user.Roles))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return &repository.AlreadyExistsError{
				Resource: repository.UserResource,
				Key:      "email",
				Value:    user.Email,
			}
		}
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}

	return nil
}

// GetUserByEmail retrieves an account by email address.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	const query = `SELECT id, email, password_hash, roles FROM users WHERE email = $1`

	var user domain.User
	err := r.pool.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &repository.NotFoundError{
				Resource: repository.UserResource,
				Key:      "email",
				Value:    email,
			}
		}
		return nil, fmt.Errorf("query user by email %s: %w", email, err)
	}

	return &user, nil
}

// GetUserRoles returns the roles granted to a user.
func (r *UserRepository) GetUserRoles(ctx context.Context, id uuid.UUID) ([]string, error) {
	var roles []string
	err := r.pool.QueryRow(ctx, `SELECT roles FROM users WHERE id = $1`, id).Scan(&roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &repository.NotFoundError{
				Resource: repository.UserResource,
				Key:      "id",
				Value:    id.String(),
			}
		}
		return nil, fmt.Errorf("query roles for user %s: %w", id, err)
	}

	return nonNil(roles), nil
}
