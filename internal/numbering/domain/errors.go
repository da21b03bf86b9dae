package domain

import "errors"

var (
	// ErrNotFound indicates the phone number does not exist or is not visible
	// to the caller's tenant.
	ErrNotFound = errors.New("phone number not found")
	// ErrNotAvailable indicates a claim raced or targeted a non-pool number.
	ErrNotAvailable = errors.New("phone number not available")
	// ErrQuotaExceeded indicates the tenant is at its phone number limit.
	ErrQuotaExceeded = errors.New("phone number limit reached")
	// ErrAgentNotEligible indicates the agent cannot be bound (wrong tenant,
	// deleted, or never provisioned on the voice provider).
	ErrAgentNotEligible = errors.New("agent not eligible for binding")
	// ErrConflict indicates a state precondition was violated, e.g. deleting
	// a number that is still claimed.
	ErrConflict = errors.New("phone number state conflict")
	// ErrDuplicateEntry indicates a unique constraint violation on
	// phone_number or provider_number_id.
	ErrDuplicateEntry = errors.New("phone number already in pool")

	// ErrProviderUnavailable indicates the telephony provider rejected or
	// failed a fatal call (purchase).
	ErrProviderUnavailable = errors.New("telephony provider unavailable")
	// ErrUpstreamImportFailed indicates the voice-provider import failed in a
	// context where it is fatal (claim, assign-agent).
	ErrUpstreamImportFailed = errors.New("voice provider import failed")
	// ErrUpstreamAssignFailed indicates the voice-provider binding call failed.
	ErrUpstreamAssignFailed = errors.New("voice provider assignment failed")
)
