package infoprovider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// InfoProvider supplies the attributes a decision needs about a subject.
type InfoProvider interface {
	GetRoles(ctx context.Context, subject string) ([]string, error)
}

type RoleRepository interface {
	GetUserRoles(ctx context.Context, id uuid.UUID) ([]string, error)
}

type userRoleProvider struct {
	repo RoleRepository
}

// GetRoles looks up the roles of the user whose id is the subject.
func (p *userRoleProvider) GetRoles(ctx context.Context, subject string) ([]string, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject %q: %w", subject, err)
	}

	return p.repo.GetUserRoles(ctx, id)
}

func NewUserRoleProvider(repo RoleRepository) InfoProvider {
	return &userRoleProvider{repo: repo}
}
