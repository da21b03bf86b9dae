package domain

import (
	"time"

	"github.com/google/uuid"
)

// Roles, in ascending privilege order.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// User is a tenant-scoped account. PasswordHash is a bcrypt hash and never
// leaves the identity package.
type User struct {
	ID                    uuid.UUID  `json:"id"`
	TenantID              uuid.UUID  `json:"tenant_id"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	FullName              string     `json:"full_name"`
	Role                  string     `json:"role"`
	IsActive              bool       `json:"is_active"`
	AssignedPhoneNumberID *uuid.UUID `json:"assigned_phone_number_id,omitempty"`
	AssignedAgentID       *uuid.UUID `json:"assigned_agent_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func NewUser(id, tenantID uuid.UUID, email, passwordHash, fullName, role string) *User {
	now := time.Now().UTC()
	if role == "" {
		role = RoleUser
	}
	return &User{
		ID:           id,
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasRole reports whether the user's role grants at least the given role.
func (u *User) HasRole(role string) bool {
	rank := map[string]int{RoleUser: 1, RoleAdmin: 2, RoleSuperAdmin: 3}
	return rank[u.Role] >= rank[role]
}
