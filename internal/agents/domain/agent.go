package domain

import (
	"time"

	"github.com/google/uuid"
)

// Agent statuses.
const (
	StatusActive  = "active"
	StatusPaused  = "paused"
	StatusDeleted = "deleted"
)

// Agent is a tenant-scoped voice AI agent. VoiceProviderAgentID stays nil
// until the remote create succeeds; an agent without it cannot be bound to a
// phone number.
type Agent struct {
	ID                   uuid.UUID  `json:"id"`
	TenantID             uuid.UUID  `json:"tenant_id"`
	VoiceProviderAgentID *string    `json:"voice_provider_agent_id,omitempty"`
	AssignedUserID       *uuid.UUID `json:"assigned_user_id,omitempty"`
	Name                 string     `json:"name"`
	SystemPrompt         string     `json:"system_prompt,omitempty"`
	WelcomeMessage       string     `json:"welcome_message,omitempty"`
	VoiceID              string     `json:"voice_id,omitempty"`
	LLMModel             string     `json:"llm_model"`
	Language             string     `json:"language"`
	Status               string     `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func NewAgent(id, tenantID uuid.UUID, name string) *Agent {
	now := time.Now().UTC()
	return &Agent{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		LLMModel:  "gpt-4o-mini",
		Language:  "en",
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EligibleForBinding reports whether a phone number may be bound to this
// agent on the voice provider.
func (a *Agent) EligibleForBinding() bool {
	return a.Status != StatusDeleted && a.VoiceProviderAgentID != nil && *a.VoiceProviderAgentID != ""
}
