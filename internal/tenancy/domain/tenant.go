package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusTrial     = "trial"
	StatusCancelled = "cancelled"
)

// Tenant is a customer organization with isolated data and plan limits.
// MaxPhoneNumbers is enforced at claim time only; lowering it does not
// retroactively release numbers.
type Tenant struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Slug                string     `json:"slug"`
	Status              string     `json:"status"`
	Plan                string     `json:"plan"`
	TrialEndsAt         *time.Time `json:"trial_ends_at,omitempty"`
	MaxUsers            int        `json:"max_users"`
	MaxAgents           int        `json:"max_agents"`
	MaxPhoneNumbers     int        `json:"max_phone_numbers"`
	MonthlyMinutesLimit int        `json:"monthly_minutes_limit"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func NewTenant(id uuid.UUID, name, slug string) *Tenant {
	now := time.Now().UTC()
	return &Tenant{
		ID:                  id,
		Name:                name,
		Slug:                slug,
		Status:              StatusActive,
		Plan:                "free",
		MaxUsers:            5,
		MaxAgents:           1,
		MaxPhoneNumbers:     1,
		MonthlyMinutesLimit: 100,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
