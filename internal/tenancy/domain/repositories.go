package domain

import (
	"context"

	"github.com/google/uuid"
)

// TenantRepository is the storage boundary for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Count(ctx context.Context) (int64, error)
}
