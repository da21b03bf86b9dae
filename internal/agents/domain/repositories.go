package domain

import (
	"context"

	"github.com/google/uuid"
)

// AgentRepository is the storage boundary for agents. Lookups are tenant
// scoped; agents of other tenants surface as ErrNotFound.
type AgentRepository interface {
	Create(ctx context.Context, agent *Agent) error
	FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*Agent, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*Agent, error)
	Update(ctx context.Context, agent *Agent) error
	CountActive(ctx context.Context) (int64, error)
}
