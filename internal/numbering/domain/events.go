package domain

import (
	"time"

	"github.com/google/uuid"
)

// NATS subjects for pool lifecycle events.
const (
	SubjectNumberPurchased     = "number.purchased"
	SubjectNumberImported      = "number.imported"
	SubjectNumberClaimed       = "number.claimed"
	SubjectNumberAgentAssigned = "number.agent_assigned"
	SubjectNumberReleased      = "number.released"
	SubjectNumberDeleted       = "number.deleted"
)

// NumberEvent is the payload published on pool lifecycle transitions.
type NumberEvent struct {
	PhoneNumberID uuid.UUID  `json:"phone_number_id"`
	PhoneNumber   string     `json:"phone_number"`
	TenantID      *uuid.UUID `json:"tenant_id,omitempty"`
	AgentID       *uuid.UUID `json:"agent_id,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
