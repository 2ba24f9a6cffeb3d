package domain

import "github.com/google/uuid"

const (
	RoleOwner  = "owner"
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

// User is an account that owns orders.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
}
