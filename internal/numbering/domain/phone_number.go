package domain

import (
	"time"

	"github.com/google/uuid"
)

// PhoneNumber statuses.
const (
	StatusAvailable = "available"
	StatusAssigned  = "assigned"
	StatusSuspended = "suspended"
)

// PhoneNumber is a pool-managed telephony number. A nil TenantID means the
// number sits in the shared pool; pool membership, status and the assignment
// fields move together (released numbers carry no tenant, user or agent).
//
// VoiceProviderNumberID is independent of tenancy: the number may be imported
// to the voice provider at purchase, at claim, or lazily at first agent
// binding. A number bound to an agent always has it set.
type PhoneNumber struct {
	ID                    uuid.UUID  `json:"id"`
	PhoneNumber           string     `json:"phone_number"` // E.164, globally unique
	ProviderNumberID      string     `json:"provider_number_id"`
	VoiceProviderNumberID *string    `json:"voice_provider_number_id,omitempty"`
	CountryCode           string     `json:"country_code"`
	NumberType            string     `json:"number_type"` // local, mobile, toll_free
	TenantID              *uuid.UUID `json:"tenant_id,omitempty"`
	AssignedUserID        *uuid.UUID `json:"assigned_user_id,omitempty"`
	AssignedAgentID       *uuid.UUID `json:"assigned_agent_id,omitempty"`
	SupportsInbound       bool       `json:"supports_inbound"`
	SupportsOutbound      bool       `json:"supports_outbound"`
	Status                string     `json:"status"`
	AssignedAt            *time.Time `json:"assigned_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// NewPhoneNumber creates a pool entry for a number owned at the telephony
// provider. voiceProviderNumberID may be nil when the voice-provider import
// has not happened (or failed best-effort).
func NewPhoneNumber(id uuid.UUID, phoneNumber, providerNumberID, countryCode, numberType string, voiceProviderNumberID *string) *PhoneNumber {
	if numberType == "" {
		numberType = "local"
	}
	return &PhoneNumber{
		ID:                    id,
		PhoneNumber:           phoneNumber,
		ProviderNumberID:      providerNumberID,
		VoiceProviderNumberID: voiceProviderNumberID,
		CountryCode:           countryCode,
		NumberType:            numberType,
		SupportsInbound:       true,
		SupportsOutbound:      true,
		Status:                StatusAvailable,
		CreatedAt:             time.Now().UTC(),
	}
}

// Imported reports whether the number exists on the voice provider.
func (p *PhoneNumber) Imported() bool {
	return p.VoiceProviderNumberID != nil && *p.VoiceProviderNumberID != ""
}

// InPool reports whether the number is claimable.
func (p *PhoneNumber) InPool() bool {
	return p.TenantID == nil && p.Status == StatusAvailable
}

// PoolCounts is the aggregate used by platform analytics.
type PoolCounts struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Assigned  int64 `json:"assigned"`
}
