package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxcalls/backend/internal/identity/domain"
)

const uniqueViolationCode = "23505"

const userColumns = `
	id, tenant_id, email, password_hash, full_name, role, is_active,
	assigned_phone_number_id, assigned_agent_id, created_at, updated_at`

type PgUserRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgUserRepository(dbPool *pgxpool.Pool, logger *slog.Logger) *PgUserRepository {
	return &PgUserRepository{
		db:     dbPool,
		logger: logger,
	}
}

func (r *PgUserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID, u.TenantID, u.Email, u.PasswordHash, u.FullName, u.Role, u.IsActive,
		u.AssignedPhoneNumberID, u.AssignedAgentID, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Failed to insert user", "email", u.Email, "error", err)
		return err
	}
	return nil
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND tenant_id = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, id, tenantID))
}

// List returns all users, or a single tenant's users when tenantID is set.
func (r *PgUserRepository) List(ctx context.Context, tenantID *uuid.UUID) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []interface{}{}
	if tenantID != nil {
		query += ` WHERE tenant_id = $1`
		args = append(args, *tenantID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var u domain.User
		err := rows.Scan(
			&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive,
			&u.AssignedPhoneNumberID, &u.AssignedAgentID, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (r *PgUserRepository) SetAssignedPhoneNumber(ctx context.Context, id uuid.UUID, phoneNumberID *uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET assigned_phone_number_id = $1, updated_at = NOW() WHERE id = $2`,
		phoneNumberID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgUserRepository) SetAssignedAgent(ctx context.Context, id uuid.UUID, agentID *uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET assigned_agent_id = $1, updated_at = NOW() WHERE id = $2`,
		agentID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (r *PgUserRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive,
		&u.AssignedPhoneNumberID, &u.AssignedAgentID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
