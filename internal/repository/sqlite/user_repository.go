package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/repository"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	roles, err := encodeList(user.Roles)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO users (id, email, password_hash, roles) VALUES (?, ?, ?, ?)`,
		user.ID.String(), user.Email, user.PasswordHash, roles,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
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

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	var (
		user  domain.User
		id    string
		roles string
	)

	err := r.db.QueryRowContext(ctx, `SELECT id, email, password_hash, roles FROM users WHERE email = ?`, email).
		Scan(&id, &user.Email, &user.PasswordHash, &roles)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &repository.NotFoundError{Resource: repository.UserResource, Key: "email", Value: email}
		}
		return nil, fmt.Errorf("query user by email %s: %w", email, err)
	}

	if user.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id of user %s: %w", email, err)
	}

	if user.Roles, err = decodeList(roles); err != nil {
		return nil, fmt.Errorf("decode roles of user %s: %w", email, err)
	}

	return &user, nil
}

func (r *UserRepository) GetUserRoles(ctx context.Context, id uuid.UUID) ([]string, error) {
	var roles string
	err := r.db.QueryRowContext(ctx, `SELECT roles FROM users WHERE id = ?`, id.String()).Scan(&roles)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &repository.NotFoundError{Resource: repository.UserResource, Key: "id", Value: id.String()}
		}
		return nil, fmt.Errorf("query roles for user %s: %w", id, err)
	}

	return decodeList(roles)
}
