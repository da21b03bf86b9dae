package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxcalls/backend/internal/agents/domain"
)

const agentColumns = `
	id, tenant_id, voice_provider_agent_id, assigned_user_id,
	name, system_prompt, welcome_message, voice_id, llm_model, language,
	status, created_at, updated_at`

type PgAgentRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgAgentRepository(dbPool *pgxpool.Pool, logger *slog.Logger) *PgAgentRepository {
	return &PgAgentRepository{
		db:     dbPool,
		logger: logger,
	}
}

func (r *PgAgentRepository) Create(ctx context.Context, a *domain.Agent) error {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.TenantID, a.VoiceProviderAgentID, a.AssignedUserID,
		a.Name, a.SystemPrompt, a.WelcomeMessage, a.VoiceID, a.LLMModel, a.Language,
		a.Status, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert agent", "agent_name", a.Name, "error", err)
		return err
	}
	return nil
}

func (r *PgAgentRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1 AND tenant_id = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, id, tenantID))
}

func (r *PgAgentRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE tenant_id = $1 AND status != $2
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, tenantID, domain.StatusDeleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		var a domain.Agent
		err := rows.Scan(
			&a.ID, &a.TenantID, &a.VoiceProviderAgentID, &a.AssignedUserID,
			&a.Name, &a.SystemPrompt, &a.WelcomeMessage, &a.VoiceID, &a.LLMModel, &a.Language,
			&a.Status, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		agents = append(agents, &a)
	}
	return agents, rows.Err()
}

func (r *PgAgentRepository) Update(ctx context.Context, a *domain.Agent) error {
	query := `
		UPDATE agents
		SET voice_provider_agent_id = $1, assigned_user_id = $2,
		    name = $3, system_prompt = $4, welcome_message = $5,
		    voice_id = $6, llm_model = $7, language = $8,
		    status = $9, updated_at = $10
		WHERE id = $11 AND tenant_id = $12
	`
	tag, err := r.db.Exec(ctx, query,
		a.VoiceProviderAgentID, a.AssignedUserID,
		a.Name, a.SystemPrompt, a.WelcomeMessage,
		a.VoiceID, a.LLMModel, a.Language,
		a.Status, a.UpdatedAt, a.ID, a.TenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgAgentRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM agents WHERE status = $1`, domain.StatusActive).Scan(&count)
	return count, err
}

func (r *PgAgentRepository) scanOne(row pgx.Row) (*domain.Agent, error) {
	var a domain.Agent
	err := row.Scan(
		&a.ID, &a.TenantID, &a.VoiceProviderAgentID, &a.AssignedUserID,
		&a.Name, &a.SystemPrompt, &a.WelcomeMessage, &a.VoiceID, &a.LLMModel, &a.Language,
		&a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
