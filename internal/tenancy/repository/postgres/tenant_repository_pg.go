package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxcalls/backend/internal/tenancy/domain"
)

const uniqueViolationCode = "23505"

const tenantColumns = `
	id, name, slug, status, plan, trial_ends_at,
	max_users, max_agents, max_phone_numbers, monthly_minutes_limit,
	created_at, updated_at`

type PgTenantRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgTenantRepository(dbPool *pgxpool.Pool, logger *slog.Logger) *PgTenantRepository {
	return &PgTenantRepository{
		db:     dbPool,
		logger: logger,
	}
}

func (r *PgTenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.Name, t.Slug, t.Status, t.Plan, t.TrialEndsAt,
		t.MaxUsers, t.MaxAgents, t.MaxPhoneNumbers, t.MonthlyMinutesLimit,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateSlug
		}
		r.logger.ErrorContext(ctx, "Failed to insert tenant", "slug", t.Slug, "error", err)
		return err
	}
	return nil
}

func (r *PgTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *PgTenantRepository) FindBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, slug))
}

func (r *PgTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		err := rows.Scan(
			&t.ID, &t.Name, &t.Slug, &t.Status, &t.Plan, &t.TrialEndsAt,
			&t.MaxUsers, &t.MaxAgents, &t.MaxPhoneNumbers, &t.MonthlyMinutesLimit,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

func (r *PgTenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, plan = $2, trial_ends_at = $3,
		    max_users = $4, max_agents = $5, max_phone_numbers = $6,
		    monthly_minutes_limit = $7, updated_at = $8
		WHERE id = $9
	`
	tag, err := r.db.Exec(ctx, query,
		t.Name, t.Plan, t.TrialEndsAt,
		t.MaxUsers, t.MaxAgents, t.MaxPhoneNumbers,
		t.MonthlyMinutesLimit, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgTenantRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tenants SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgTenantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&count)
	return count, err
}

func (r *PgTenantRepository) scanOne(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Status, &t.Plan, &t.TrialEndsAt,
		&t.MaxUsers, &t.MaxAgents, &t.MaxPhoneNumbers, &t.MonthlyMinutesLimit,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
