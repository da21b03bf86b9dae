package http

import (
	"time"

	"github.com/google/uuid"

	identitydomain "github.com/voxcalls/backend/internal/identity/domain"
)

// --- Auth DTOs ---

type LoginRequestDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponseDTO struct {
	AccessToken string               `json:"access_token"`
	TokenType   string               `json:"token_type"`
	User        *identitydomain.User `json:"user"`
}

// --- Phone number DTOs ---

type ClaimNumberRequestDTO struct {
	PhoneNumberID uuid.UUID  `json:"phone_number_id" validate:"required"`
	AgentID       *uuid.UUID `json:"agent_id,omitempty"`
}

type AssignAgentRequestDTO struct {
	AgentID *uuid.UUID `json:"agent_id"` // null unbinds
}

type AssignUserRequestDTO struct {
	UserID  uuid.UUID  `json:"user_id" validate:"required"`
	AgentID *uuid.UUID `json:"agent_id,omitempty"`
}

type PurchaseNumberRequestDTO struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	CountryCode string `json:"country_code" validate:"required,iso3166_1_alpha2"`
	NumberType  string `json:"number_type" validate:"omitempty,oneof=local mobile toll_free"`
}

type ImportNumberRequestDTO struct {
	PhoneNumber      string `json:"phone_number" validate:"required,e164"`
	ProviderNumberID string `json:"provider_number_id" validate:"required"`
	CountryCode      string `json:"country_code" validate:"required,iso3166_1_alpha2"`
	NumberType       string `json:"number_type" validate:"omitempty,oneof=local mobile toll_free"`
}

// --- Tenant DTOs ---

type CreateTenantRequestDTO struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
	Slug string `json:"slug" validate:"required,min=2,max=50,lowercase,excludesall= "`
}

type UpdateTenantRequestDTO struct {
	Name                *string    `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Plan                *string    `json:"plan,omitempty" validate:"omitempty,oneof=free starter pro enterprise"`
	TrialEndsAt         *time.Time `json:"trial_ends_at,omitempty"`
	MaxUsers            *int       `json:"max_users,omitempty" validate:"omitempty,min=1"`
	MaxAgents           *int       `json:"max_agents,omitempty" validate:"omitempty,min=1"`
	MaxPhoneNumbers     *int       `json:"max_phone_numbers,omitempty" validate:"omitempty,min=0"`
	MonthlyMinutesLimit *int       `json:"monthly_minutes_limit,omitempty" validate:"omitempty,min=0"`
}

type CreateUserRequestDTO struct {
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=8"`
	FullName string    `json:"full_name" validate:"required,min=2,max=100"`
	Role     string    `json:"role" validate:"omitempty,oneof=user admin super_admin"`
}

// --- Agent DTOs ---

type CreateAgentRequestDTO struct {
	Name           string `json:"name" validate:"required,min=2,max=100"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
	VoiceID        string `json:"voice_id,omitempty"`
	LLMModel       string `json:"llm_model,omitempty"`
	Language       string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}

type UpdateAgentRequestDTO struct {
	Name           string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
	VoiceID        string `json:"voice_id,omitempty"`
	LLMModel       string `json:"llm_model,omitempty"`
	Language       string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}
