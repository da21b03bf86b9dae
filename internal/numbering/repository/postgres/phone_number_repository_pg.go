package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/voxcalls/backend/internal/numbering/domain"
)

const uniqueViolationCode = "23505"

const phoneNumberColumns = `
	id, phone_number, provider_number_id, voice_provider_number_id,
	country_code, number_type, tenant_id, assigned_user_id, assigned_agent_id,
	supports_inbound, supports_outbound, status, assigned_at, created_at`

// PGXPool is the pgxpool.Pool surface the repository uses. pgxmock satisfies
// it in tests.
type PGXPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgPhoneNumberRepository struct {
	db     PGXPool
	logger *slog.Logger
}

func NewPgPhoneNumberRepository(dbPool PGXPool, logger *slog.Logger) *PgPhoneNumberRepository {
	return &PgPhoneNumberRepository{
		db:     dbPool,
		logger: logger,
	}
}

func (r *PgPhoneNumberRepository) Create(ctx context.Context, n *domain.PhoneNumber) error {
	query := `
		INSERT INTO phone_numbers (` + phoneNumberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Exec(ctx, query,
		n.ID, n.PhoneNumber, n.ProviderNumberID, n.VoiceProviderNumberID,
		n.CountryCode, n.NumberType, n.TenantID, n.AssignedUserID, n.AssignedAgentID,
		n.SupportsInbound, n.SupportsOutbound, n.Status, n.AssignedAt, n.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Failed to insert phone number", "phone_number", n.PhoneNumber, "error", err)
		return err
	}
	return nil
}

func (r *PgPhoneNumberRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PhoneNumber, error) {
	query := `SELECT ` + phoneNumberColumns + ` FROM phone_numbers WHERE id = $1`
	return r.scanOne(ctx, r.db.QueryRow(ctx, query, id))
}

func (r *PgPhoneNumberRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*domain.PhoneNumber, error) {
	query := `SELECT ` + phoneNumberColumns + ` FROM phone_numbers WHERE id = $1 AND tenant_id = $2`
	return r.scanOne(ctx, r.db.QueryRow(ctx, query, id, tenantID))
}

func (r *PgPhoneNumberRepository) FindByProviderNumberID(ctx context.Context, providerNumberID string) (*domain.PhoneNumber, error) {
	query := `SELECT ` + phoneNumberColumns + ` FROM phone_numbers WHERE provider_number_id = $1`
	return r.scanOne(ctx, r.db.QueryRow(ctx, query, providerNumberID))
}

func (r *PgPhoneNumberRepository) FindByAssignedUser(ctx context.Context, userID uuid.UUID) (*domain.PhoneNumber, error) {
	query := `SELECT ` + phoneNumberColumns + ` FROM phone_numbers WHERE assigned_user_id = $1 LIMIT 1`
	return r.scanOne(ctx, r.db.QueryRow(ctx, query, userID))
}

func (r *PgPhoneNumberRepository) ListAvailable(ctx context.Context) ([]*domain.PhoneNumber, error) {
	query := `
		SELECT ` + phoneNumberColumns + `
		FROM phone_numbers
		WHERE status = $1 AND tenant_id IS NULL
		ORDER BY created_at
	`
	return r.scanMany(ctx, query, domain.StatusAvailable)
}

func (r *PgPhoneNumberRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.PhoneNumber, error) {
	query := `SELECT ` + phoneNumberColumns + ` FROM phone_numbers WHERE tenant_id = $1 ORDER BY created_at`
	return r.scanMany(ctx, query, tenantID)
}

func (r *PgPhoneNumberRepository) ListAll(ctx context.Context) ([]*domain.PhoneNumber, error) {
	query := `SELECT ` + phoneNumberColumns + ` FROM phone_numbers ORDER BY created_at`
	return r.scanMany(ctx, query)
}

func (r *PgPhoneNumberRepository) CountAssigned(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM phone_numbers WHERE tenant_id = $1`, tenantID).Scan(&count)
	return count, err
}

func (r *PgPhoneNumberRepository) Counts(ctx context.Context) (*domain.PoolCounts, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $1 AND tenant_id IS NULL)
		FROM phone_numbers
	`
	var counts domain.PoolCounts
	if err := r.db.QueryRow(ctx, query, domain.StatusAvailable).Scan(&counts.Total, &counts.Available); err != nil {
		return nil, err
	}
	counts.Assigned = counts.Total - counts.Available
	return &counts, nil
}

// Claim is the pool's serialization point. The tenant row is locked FOR
// UPDATE so the quota count cannot be raced by a concurrent claim of the
// same tenant, and the available→assigned transition is a conditional update
// whose row count decides the winner: the losing request sees zero rows and
// gets ErrNotAvailable.
func (r *PgPhoneNumberRepository) Claim(ctx context.Context, id, tenantID uuid.UUID, assignedAt time.Time) (*domain.PhoneNumber, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var maxPhoneNumbers int
	err = tx.QueryRow(ctx, `SELECT max_phone_numbers FROM tenants WHERE id = $1 FOR UPDATE`, tenantID).Scan(&maxPhoneNumbers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var assignedCount int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM phone_numbers WHERE tenant_id = $1`, tenantID).Scan(&assignedCount); err != nil {
		return nil, err
	}
	if assignedCount >= maxPhoneNumbers {
		return nil, domain.ErrQuotaExceeded
	}

	query := `
		UPDATE phone_numbers
		SET tenant_id = $1, status = $2, assigned_at = $3
		WHERE id = $4 AND status = $5 AND tenant_id IS NULL
		RETURNING ` + phoneNumberColumns
	claimed, err := r.scanOne(ctx, tx.QueryRow(ctx, query, tenantID, domain.StatusAssigned, assignedAt, id, domain.StatusAvailable))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotAvailable
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", err)
	}
	return claimed, nil
}

func (r *PgPhoneNumberRepository) SetVoiceProviderNumberID(ctx context.Context, id uuid.UUID, voiceProviderNumberID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE phone_numbers SET voice_provider_number_id = $1 WHERE id = $2`,
		voiceProviderNumberID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgPhoneNumberRepository) SetAssignedAgent(ctx context.Context, id, tenantID uuid.UUID, agentID *uuid.UUID) (*domain.PhoneNumber, error) {
	query := `
		UPDATE phone_numbers
		SET assigned_agent_id = $1
		WHERE id = $2 AND tenant_id = $3
		RETURNING ` + phoneNumberColumns
	return r.scanOne(ctx, r.db.QueryRow(ctx, query, agentID, id, tenantID))
}

func (r *PgPhoneNumberRepository) SetAssignedUser(ctx context.Context, id, tenantID uuid.UUID, userID *uuid.UUID) (*domain.PhoneNumber, error) {
	query := `
		UPDATE phone_numbers
		SET assigned_user_id = $1
		WHERE id = $2 AND tenant_id = $3
		RETURNING ` + phoneNumberColumns
	return r.scanOne(ctx, r.db.QueryRow(ctx, query, userID, id, tenantID))
}

func (r *PgPhoneNumberRepository) Release(ctx context.Context, id, tenantID uuid.UUID) error {
	query := `
		UPDATE phone_numbers
		SET tenant_id = NULL, assigned_user_id = NULL, assigned_agent_id = NULL,
		    status = $1, assigned_at = NULL
		WHERE id = $2 AND tenant_id = $3
	`
	tag, err := r.db.Exec(ctx, query, domain.StatusAvailable, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete only removes pool numbers. The tenant_id guard closes the window
// between the caller's unclaimed check and the delete: a number claimed in
// between matches zero rows and the delete reports ErrConflict.
func (r *PgPhoneNumberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM phone_numbers WHERE id = $1 AND tenant_id IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *PgPhoneNumberRepository) scanOne(ctx context.Context, row pgx.Row) (*domain.PhoneNumber, error) {
	var n domain.PhoneNumber
	err := row.Scan(
		&n.ID, &n.PhoneNumber, &n.ProviderNumberID, &n.VoiceProviderNumberID,
		&n.CountryCode, &n.NumberType, &n.TenantID, &n.AssignedUserID, &n.AssignedAgentID,
		&n.SupportsInbound, &n.SupportsOutbound, &n.Status, &n.AssignedAt, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *PgPhoneNumberRepository) scanMany(ctx context.Context, query string, args ...interface{}) ([]*domain.PhoneNumber, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []*domain.PhoneNumber
	for rows.Next() {
		var n domain.PhoneNumber
		err := rows.Scan(
			&n.ID, &n.PhoneNumber, &n.ProviderNumberID, &n.VoiceProviderNumberID,
			&n.CountryCode, &n.NumberType, &n.TenantID, &n.AssignedUserID, &n.AssignedAgentID,
			&n.SupportsInbound, &n.SupportsOutbound, &n.Status, &n.AssignedAt, &n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, &n)
	}
	return numbers, rows.Err()
}
