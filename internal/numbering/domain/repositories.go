package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PhoneNumberRepository is the storage boundary for the number pool.
//
// Claim is the serialization point for the pool: implementations must make
// the available→assigned transition atomic (conditional update gated on
// affected rows) and evaluate the tenant quota inside the same transaction,
// so concurrent claims cannot double-assign a number or overshoot the limit.
type PhoneNumberRepository interface {
	Create(ctx context.Context, number *PhoneNumber) error
	FindByID(ctx context.Context, id uuid.UUID) (*PhoneNumber, error)
	// FindByIDForTenant scopes the lookup to a tenant; a foreign number is
	// reported as ErrNotFound, not as a permission failure.
	FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*PhoneNumber, error)
	FindByProviderNumberID(ctx context.Context, providerNumberID string) (*PhoneNumber, error)
	FindByAssignedUser(ctx context.Context, userID uuid.UUID) (*PhoneNumber, error)

	ListAvailable(ctx context.Context) ([]*PhoneNumber, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*PhoneNumber, error)
	ListAll(ctx context.Context) ([]*PhoneNumber, error)
	CountAssigned(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Counts(ctx context.Context) (*PoolCounts, error)

	// Claim atomically moves an available number to the tenant. Returns
	// ErrNotAvailable when the conditional update matches no row and
	// ErrQuotaExceeded when the tenant is at max_phone_numbers.
	Claim(ctx context.Context, id, tenantID uuid.UUID, assignedAt time.Time) (*PhoneNumber, error)

	SetVoiceProviderNumberID(ctx context.Context, id uuid.UUID, voiceProviderNumberID string) error
	SetAssignedAgent(ctx context.Context, id, tenantID uuid.UUID, agentID *uuid.UUID) (*PhoneNumber, error)
	SetAssignedUser(ctx context.Context, id, tenantID uuid.UUID, userID *uuid.UUID) (*PhoneNumber, error)

	// Release unconditionally returns the number to the pool, clearing
	// tenant, user, agent and assigned_at.
	Release(ctx context.Context, id, tenantID uuid.UUID) error
	// Delete removes a pool number. A number claimed by a tenant (even
	// concurrently, after the caller's own check) is reported as ErrConflict.
	Delete(ctx context.Context, id uuid.UUID) error
}
