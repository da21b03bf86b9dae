package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository is the storage boundary for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*User, error)
	List(ctx context.Context, tenantID *uuid.UUID) ([]*User, error)
	SetAssignedPhoneNumber(ctx context.Context, id uuid.UUID, phoneNumberID *uuid.UUID) error
	SetAssignedAgent(ctx context.Context, id uuid.UUID, agentID *uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}
