package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	agentdomain "github.com/voxcalls/backend/internal/agents/domain"
	identitydomain "github.com/voxcalls/backend/internal/identity/domain"
	numberingdomain "github.com/voxcalls/backend/internal/numbering/domain"
	"github.com/voxcalls/backend/internal/tenancy/domain"
)

// TenantInput carries the editable tenant fields for updates. Nil pointers
// leave the current value in place.
type TenantInput struct {
	Name                *string
	Plan                *string
	TrialEndsAt         *time.Time
	MaxUsers            *int
	MaxAgents           *int
	MaxPhoneNumbers     *int
	MonthlyMinutesLimit *int
}

// PlatformAnalytics is the operator-facing overview across all tenants.
type PlatformAnalytics struct {
	Tenants      int64                     `json:"tenants"`
	Users        int64                     `json:"users"`
	ActiveAgents int64                     `json:"active_agents"`
	PhoneNumbers numberingdomain.PoolCounts `json:"phone_numbers"`
}

// Application manages tenant organizations and platform-wide analytics.
type Application struct {
	tenants domain.TenantRepository
	users   identitydomain.UserRepository
	agents  agentdomain.AgentRepository
	numbers numberingdomain.PhoneNumberRepository
	logger  *slog.Logger
}

func NewApplication(
	tenants domain.TenantRepository,
	users identitydomain.UserRepository,
	agents agentdomain.AgentRepository,
	numbers numberingdomain.PhoneNumberRepository,
	logger *slog.Logger,
) *Application {
	return &Application{
		tenants: tenants,
		users:   users,
		agents:  agents,
		numbers: numbers,
		logger:  logger.With("service", "tenancy"),
	}
}

// Create registers a tenant with free-plan defaults.
func (a *Application) Create(ctx context.Context, name, slug string) (*domain.Tenant, error) {
	tenant := domain.NewTenant(uuid.New(), name, slug)
	if err := a.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}
	a.logger.InfoContext(ctx, "Tenant created", "tenant_id", tenant.ID, "slug", slug)
	return tenant, nil
}

func (a *Application) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return a.tenants.FindByID(ctx, id)
}

func (a *Application) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return a.tenants.FindBySlug(ctx, slug)
}

func (a *Application) List(ctx context.Context) ([]*domain.Tenant, error) {
	return a.tenants.List(ctx)
}

// Update applies the non-nil input fields. Lowering max_phone_numbers does
// not release already claimed numbers; the new limit applies to the next
// claim only.
func (a *Application) Update(ctx context.Context, id uuid.UUID, input TenantInput) (*domain.Tenant, error) {
	tenant, err := a.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		tenant.Name = *input.Name
	}
	if input.Plan != nil {
		tenant.Plan = *input.Plan
	}
	if input.TrialEndsAt != nil {
		tenant.TrialEndsAt = input.TrialEndsAt
	}
	if input.MaxUsers != nil {
		tenant.MaxUsers = *input.MaxUsers
	}
	if input.MaxAgents != nil {
		tenant.MaxAgents = *input.MaxAgents
	}
	if input.MaxPhoneNumbers != nil {
		tenant.MaxPhoneNumbers = *input.MaxPhoneNumbers
	}
	if input.MonthlyMinutesLimit != nil {
		tenant.MonthlyMinutesLimit = *input.MonthlyMinutesLimit
	}
	tenant.UpdatedAt = time.Now().UTC()

	if err := a.tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// Suspend blocks all logins for the tenant's users. Claimed numbers stay
// claimed; suspension is reversible.
func (a *Application) Suspend(ctx context.Context, id uuid.UUID) error {
	if err := a.tenants.SetStatus(ctx, id, domain.StatusSuspended); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "Tenant suspended", "tenant_id", id)
	return nil
}

func (a *Application) Activate(ctx context.Context, id uuid.UUID) error {
	if err := a.tenants.SetStatus(ctx, id, domain.StatusActive); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "Tenant activated", "tenant_id", id)
	return nil
}

// Analytics aggregates platform-wide counts for the operator dashboard. The
// four counts are independent queries and run concurrently.
func (a *Application) Analytics(ctx context.Context) (*PlatformAnalytics, error) {
	var analytics PlatformAnalytics

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		analytics.Tenants, err = a.tenants.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		analytics.Users, err = a.users.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		analytics.ActiveAgents, err = a.agents.CountActive(gctx)
		return err
	})
	g.Go(func() error {
		counts, err := a.numbers.Counts(gctx)
		if err != nil {
			return err
		}
		analytics.PhoneNumbers = *counts
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &analytics, nil
}
