package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	agentdomain "github.com/voxcalls/backend/internal/agents/domain"
	identitydomain "github.com/voxcalls/backend/internal/identity/domain"
	"github.com/voxcalls/backend/internal/numbering/domain"
	"github.com/voxcalls/backend/internal/provider/telephony"
	"github.com/voxcalls/backend/internal/provider/voiceagent"
)

// EventPublisher is the subset of the message broker the lifecycle uses.
// *messagebroker.NATSClient satisfies it; nil disables event publishing.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Application orchestrates the phone number lifecycle: acquisition, claim,
// agent binding, release and deletion across the local pool, the telephony
// provider and the voice provider.
type Application struct {
	numbers   domain.PhoneNumberRepository
	agents    agentdomain.AgentRepository
	users     identitydomain.UserRepository
	telephony telephony.Client
	voice     voiceagent.Client
	events    EventPublisher
	logger    *slog.Logger
}

func NewApplication(
	numbers domain.PhoneNumberRepository,
	agents agentdomain.AgentRepository,
	users identitydomain.UserRepository,
	telephonyClient telephony.Client,
	voiceClient voiceagent.Client,
	events EventPublisher,
	logger *slog.Logger,
) *Application {
	return &Application{
		numbers:   numbers,
		agents:    agents,
		users:     users,
		telephony: telephonyClient,
		voice:     voiceClient,
		events:    events,
		logger:    logger.With("service", "numbering"),
	}
}

// AcquireByPurchase buys a number from the telephony provider and adds it to
// the pool. The purchase is fatal; the voice-provider import is best-effort
// and retried lazily at claim or first agent binding.
func (a *Application) AcquireByPurchase(ctx context.Context, phoneNumber, countryCode, numberType string) (*domain.PhoneNumber, error) {
	var purchased *telephony.PurchaseResult
	err := a.providerCall(ctx, opPurchase, callTelephonyPurchase, func() error {
		var err error
		purchased, err = a.telephony.Purchase(ctx, phoneNumber)
		return err
	})
	if err != nil {
		lifecycleOperationsTotal.WithLabelValues(opPurchase, "provider_error").Inc()
		return nil, err
	}

	voiceID := a.tryImport(ctx, opPurchase, purchased.PhoneNumber, purchased.ProviderNumberID)

	number := domain.NewPhoneNumber(uuid.New(), purchased.PhoneNumber, purchased.ProviderNumberID, countryCode, numberType, voiceID)
	if err := a.numbers.Create(ctx, number); err != nil {
		a.logger.ErrorContext(ctx, "Failed to persist purchased number", "phone_number", purchased.PhoneNumber, "error", err)
		lifecycleOperationsTotal.WithLabelValues(opPurchase, "error").Inc()
		return nil, err
	}

	lifecycleOperationsTotal.WithLabelValues(opPurchase, "success").Inc()
	a.publishEvent(ctx, domain.SubjectNumberPurchased, number)
	a.logger.InfoContext(ctx, "Number purchased and pooled",
		"phone_number_id", number.ID, "phone_number", number.PhoneNumber, "imported", number.Imported())
	return number, nil
}

// AcquireByImport adds a number the account already owns at the telephony
// provider. A duplicate provider_number_id is rejected. The voice-provider
// import is best-effort, mirroring AcquireByPurchase.
func (a *Application) AcquireByImport(ctx context.Context, phoneNumber, providerNumberID, countryCode, numberType string) (*domain.PhoneNumber, error) {
	existing, err := a.numbers.FindByProviderNumberID(ctx, providerNumberID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		lifecycleOperationsTotal.WithLabelValues(opImport, "duplicate").Inc()
		return nil, domain.ErrDuplicateEntry
	}

	voiceID := a.tryImport(ctx, opImport, phoneNumber, providerNumberID)

	number := domain.NewPhoneNumber(uuid.New(), phoneNumber, providerNumberID, countryCode, numberType, voiceID)
	if err := a.numbers.Create(ctx, number); err != nil {
		lifecycleOperationsTotal.WithLabelValues(opImport, "error").Inc()
		return nil, err
	}

	lifecycleOperationsTotal.WithLabelValues(opImport, "success").Inc()
	a.publishEvent(ctx, domain.SubjectNumberImported, number)
	return number, nil
}

// Claim transfers an available number from the pool to a tenant. The voice
// provider import (when still pending) is fatal and happens before any local
// mutation; the optional agent binding is a convenience on top: an ineligible
// agent is skipped silently, a provider failure during binding surfaces as
// ErrUpstreamAssignFailed while the claim itself stays committed.
func (a *Application) Claim(ctx context.Context, numberID, tenantID uuid.UUID, agentID *uuid.UUID) (*domain.PhoneNumber, error) {
	number, err := a.numbers.FindByID(ctx, numberID)
	if err != nil {
		return nil, err
	}
	if !number.InPool() {
		lifecycleOperationsTotal.WithLabelValues(opClaim, "not_available").Inc()
		return nil, domain.ErrNotAvailable
	}

	if !number.Imported() {
		var imported *voiceagent.ImportResult
		err := a.providerCall(ctx, opClaim, callVoiceImport, func() error {
			var err error
			imported, err = a.voice.ImportNumber(ctx, number.PhoneNumber, number.ProviderNumberID)
			return err
		})
		if err != nil {
			lifecycleOperationsTotal.WithLabelValues(opClaim, "import_failed").Inc()
			return nil, err
		}
		if err := a.numbers.SetVoiceProviderNumberID(ctx, number.ID, imported.VoiceProviderNumberID); err != nil {
			return nil, err
		}
		number.VoiceProviderNumberID = &imported.VoiceProviderNumberID
	}

	claimed, err := a.numbers.Claim(ctx, numberID, tenantID, time.Now().UTC())
	if err != nil {
		lifecycleOperationsTotal.WithLabelValues(opClaim, claimResult(err)).Inc()
		return nil, err
	}

	if agentID != nil {
		agent, err := a.agents.FindByIDForTenant(ctx, *agentID, tenantID)
		switch {
		case err != nil || !agent.EligibleForBinding():
			// The claim's primary goal is the pool-to-tenant transfer; a bad
			// agent reference skips the binding rather than unwinding it.
			a.logger.WarnContext(ctx, "Skipping agent binding during claim",
				"phone_number_id", numberID, "agent_id", *agentID, "error", err)
		default:
			err := a.providerCall(ctx, opClaim, callVoiceAssign, func() error {
				return a.voice.AssignNumber(ctx, *claimed.VoiceProviderNumberID, agent.VoiceProviderAgentID)
			})
			if err != nil {
				lifecycleOperationsTotal.WithLabelValues(opClaim, "assign_failed").Inc()
				return claimed, err
			}
			claimed, err = a.numbers.SetAssignedAgent(ctx, numberID, tenantID, agentID)
			if err != nil {
				return nil, err
			}
		}
	}

	lifecycleOperationsTotal.WithLabelValues(opClaim, "success").Inc()
	a.publishEvent(ctx, domain.SubjectNumberClaimed, claimed)
	a.logger.InfoContext(ctx, "Number claimed", "phone_number_id", claimed.ID, "tenant_id", tenantID)
	return claimed, nil
}

// AssignAgent binds (or, with a nil agentID, unbinds) the number's agent.
// Binding is strict: the lazy import and the provider assignment are both
// fatal, and assigned_agent_id is only persisted after the provider accepted
// the binding. Unbinding is best-effort on the provider side so local intent
// always wins.
func (a *Application) AssignAgent(ctx context.Context, numberID, tenantID uuid.UUID, agentID *uuid.UUID) (*domain.PhoneNumber, error) {
	number, err := a.numbers.FindByIDForTenant(ctx, numberID, tenantID)
	if err != nil {
		return nil, err
	}

	if agentID == nil {
		if number.AssignedAgentID != nil && number.Imported() {
			_ = a.providerCall(ctx, opAssignAgent, callVoiceUnassign, func() error {
				return a.voice.AssignNumber(ctx, *number.VoiceProviderNumberID, nil)
			})
		}
		updated, err := a.numbers.SetAssignedAgent(ctx, numberID, tenantID, nil)
		if err != nil {
			return nil, err
		}
		lifecycleOperationsTotal.WithLabelValues(opAssignAgent, "unassigned").Inc()
		a.publishEvent(ctx, domain.SubjectNumberAgentAssigned, updated)
		return updated, nil
	}

	agent, err := a.agents.FindByIDForTenant(ctx, *agentID, tenantID)
	if err != nil {
		if errors.Is(err, agentdomain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !agent.EligibleForBinding() {
		lifecycleOperationsTotal.WithLabelValues(opAssignAgent, "agent_not_eligible").Inc()
		return nil, domain.ErrAgentNotEligible
	}

	if !number.Imported() {
		var imported *voiceagent.ImportResult
		err := a.providerCall(ctx, opAssignAgent, callVoiceImport, func() error {
			var err error
			imported, err = a.voice.ImportNumber(ctx, number.PhoneNumber, number.ProviderNumberID)
			return err
		})
		if err != nil {
			lifecycleOperationsTotal.WithLabelValues(opAssignAgent, "import_failed").Inc()
			return nil, err
		}
		if err := a.numbers.SetVoiceProviderNumberID(ctx, number.ID, imported.VoiceProviderNumberID); err != nil {
			return nil, err
		}
		number.VoiceProviderNumberID = &imported.VoiceProviderNumberID
	}

	err = a.providerCall(ctx, opAssignAgent, callVoiceAssign, func() error {
		return a.voice.AssignNumber(ctx, *number.VoiceProviderNumberID, agent.VoiceProviderAgentID)
	})
	if err != nil {
		lifecycleOperationsTotal.WithLabelValues(opAssignAgent, "assign_failed").Inc()
		return nil, err
	}

	updated, err := a.numbers.SetAssignedAgent(ctx, numberID, tenantID, agentID)
	if err != nil {
		return nil, err
	}

	lifecycleOperationsTotal.WithLabelValues(opAssignAgent, "success").Inc()
	a.publishEvent(ctx, domain.SubjectNumberAgentAssigned, updated)
	a.logger.InfoContext(ctx, "Agent bound to number", "phone_number_id", numberID, "agent_id", *agentID)
	return updated, nil
}

// AssignUser routes the number to a tenant user, optionally binding an agent
// with AssignAgent's strict semantics.
func (a *Application) AssignUser(ctx context.Context, numberID, tenantID, userID uuid.UUID, agentID *uuid.UUID) (*domain.PhoneNumber, error) {
	if _, err := a.numbers.FindByIDForTenant(ctx, numberID, tenantID); err != nil {
		return nil, err
	}

	if _, err := a.users.FindByIDForTenant(ctx, userID, tenantID); err != nil {
		if errors.Is(err, identitydomain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	updated, err := a.numbers.SetAssignedUser(ctx, numberID, tenantID, &userID)
	if err != nil {
		return nil, err
	}
	if err := a.users.SetAssignedPhoneNumber(ctx, userID, &numberID); err != nil {
		return nil, err
	}

	if agentID != nil {
		bound, err := a.AssignAgent(ctx, numberID, tenantID, agentID)
		if err != nil {
			return nil, err
		}
		// The user record mirrors the agent riding along with the number.
		if err := a.users.SetAssignedAgent(ctx, userID, agentID); err != nil {
			a.logger.WarnContext(ctx, "Failed to record user's agent reference",
				"user_id", userID, "agent_id", *agentID, "error", err)
		}
		return bound, nil
	}
	return updated, nil
}

// Release returns a claimed number to the pool. The provider-side unbinding
// is best-effort: a stale remote binding is recoverable, a stuck unreleasable
// number starves the pool.
func (a *Application) Release(ctx context.Context, numberID, tenantID uuid.UUID) error {
	number, err := a.numbers.FindByIDForTenant(ctx, numberID, tenantID)
	if err != nil {
		return err
	}

	if number.AssignedAgentID != nil && number.Imported() {
		_ = a.providerCall(ctx, opRelease, callVoiceUnassign, func() error {
			return a.voice.AssignNumber(ctx, *number.VoiceProviderNumberID, nil)
		})
	}

	if number.AssignedUserID != nil {
		if err := a.users.SetAssignedPhoneNumber(ctx, *number.AssignedUserID, nil); err != nil {
			a.logger.WarnContext(ctx, "Failed to clear user's number reference during release",
				"user_id", *number.AssignedUserID, "error", err)
		}
		if err := a.users.SetAssignedAgent(ctx, *number.AssignedUserID, nil); err != nil {
			a.logger.WarnContext(ctx, "Failed to clear user's agent reference during release",
				"user_id", *number.AssignedUserID, "error", err)
		}
	}

	if err := a.numbers.Release(ctx, numberID, tenantID); err != nil {
		lifecycleOperationsTotal.WithLabelValues(opRelease, "error").Inc()
		return err
	}

	lifecycleOperationsTotal.WithLabelValues(opRelease, "success").Inc()
	// The event carries the post-release state, not the old binding.
	number.TenantID = nil
	number.AssignedUserID = nil
	number.AssignedAgentID = nil
	number.AssignedAt = nil
	number.Status = domain.StatusAvailable
	a.publishEvent(ctx, domain.SubjectNumberReleased, number)
	a.logger.InfoContext(ctx, "Number released to pool", "phone_number_id", numberID, "tenant_id", tenantID)
	return nil
}

// Delete removes an unclaimed number from the pool and, best-effort, from the
// voice provider. Claimed numbers must be released first.
func (a *Application) Delete(ctx context.Context, numberID uuid.UUID) error {
	number, err := a.numbers.FindByID(ctx, numberID)
	if err != nil {
		return err
	}
	if number.TenantID != nil {
		lifecycleOperationsTotal.WithLabelValues(opDelete, "conflict").Inc()
		return domain.ErrConflict
	}

	if number.Imported() {
		_ = a.providerCall(ctx, opDelete, callVoiceDelete, func() error {
			return a.voice.DeleteNumber(ctx, *number.VoiceProviderNumberID)
		})
	}

	if err := a.numbers.Delete(ctx, numberID); err != nil {
		lifecycleOperationsTotal.WithLabelValues(opDelete, "error").Inc()
		return err
	}

	lifecycleOperationsTotal.WithLabelValues(opDelete, "success").Inc()
	a.publishEvent(ctx, domain.SubjectNumberDeleted, number)
	a.logger.InfoContext(ctx, "Number deleted", "phone_number_id", numberID)
	return nil
}

// --- Pool queries ---

func (a *Application) ListAvailable(ctx context.Context) ([]*domain.PhoneNumber, error) {
	return a.numbers.ListAvailable(ctx)
}

func (a *Application) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.PhoneNumber, error) {
	return a.numbers.ListForTenant(ctx, tenantID)
}

func (a *Application) ListAll(ctx context.Context) ([]*domain.PhoneNumber, error) {
	return a.numbers.ListAll(ctx)
}

func (a *Application) FindForUser(ctx context.Context, userID uuid.UUID) (*domain.PhoneNumber, error) {
	return a.numbers.FindByAssignedUser(ctx, userID)
}

// --- Telephony catalogue pass-through ---

func (a *Application) SearchNumbers(ctx context.Context, params telephony.SearchParams) ([]telephony.NumberCandidate, error) {
	return a.telephony.Search(ctx, params)
}

func (a *Application) Pricing(ctx context.Context, countryCode string) (*telephony.CountryPricing, error) {
	return a.telephony.Pricing(ctx, countryCode)
}

func (a *Application) Addresses(ctx context.Context) ([]telephony.Address, error) {
	return a.telephony.Addresses(ctx)
}

// --- helpers ---

// tryImport performs the best-effort voice-provider import used during
// acquisition. Returns nil when the import failed; the number is pooled
// anyway and imported lazily later.
func (a *Application) tryImport(ctx context.Context, op, phoneNumber, providerNumberID string) *string {
	var imported *voiceagent.ImportResult
	_ = a.providerCall(ctx, op, callVoiceImport, func() error {
		var err error
		imported, err = a.voice.ImportNumber(ctx, phoneNumber, providerNumberID)
		return err
	})
	if imported == nil {
		return nil
	}
	return &imported.VoiceProviderNumberID
}

func (a *Application) publishEvent(ctx context.Context, subject string, number *domain.PhoneNumber) {
	if a.events == nil {
		return
	}
	event := domain.NumberEvent{
		PhoneNumberID: number.ID,
		PhoneNumber:   number.PhoneNumber,
		TenantID:      number.TenantID,
		AgentID:       number.AssignedAgentID,
		OccurredAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to marshal number event", "subject", subject, "error", err)
		return
	}
	if err := a.events.Publish(ctx, subject, payload); err != nil {
		a.logger.ErrorContext(ctx, "Failed to publish number event", "subject", subject, "error", err)
	}
}

func claimResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotAvailable):
		return "not_available"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota_exceeded"
	default:
		return "error"
	}
}
