package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access role of an authenticated official
type Role string

const (
	RoleHigherOfficial Role = "higher_official"
	RoleLowerOfficial  Role = "lower_official"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleHigherOfficial || r == RoleLowerOfficial
}

// User represents a dashboard user
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser holds the fields needed to register a user
type NewUser struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Name     string `json:"name"`
	Role     Role   `json:"role" validate:"required,oneof=higher_official lower_official"`
	Password string `json:"password" validate:"required,min=6"`
}
