package app

import (
	"context"
	"fmt"

	"github.com/voxcalls/backend/internal/numbering/domain"
)

// Lifecycle operation names.
const (
	opPurchase    = "acquire_purchase"
	opImport      = "acquire_import"
	opClaim       = "claim"
	opAssignAgent = "assign_agent"
	opRelease     = "release"
	opDelete      = "delete"
)

// Provider call names.
const (
	callTelephonyPurchase = "telephony.purchase"
	callVoiceImport       = "voice.import_number"
	callVoiceAssign       = "voice.assign"
	callVoiceUnassign     = "voice.unassign"
	callVoiceDelete       = "voice.delete_number"
)

type providerStep struct {
	op   string
	call string
}

// fatalSteps is the single decision table governing whether a provider call
// failure aborts its lifecycle operation. A step present here maps to the
// typed error the caller sees; a step absent is best-effort: the failure is
// logged and the local transition proceeds.
//
// The asymmetries are deliberate. A claim must not hand a tenant a number
// that cannot reach the voice provider, so import is fatal there; the agent
// binding during claim also surfaces its failure, but only after the claim
// itself has committed. AssignAgent exists solely to bind, so both its
// provider calls are fatal. Release and delete must always succeed locally
// to keep the pool from starving during provider outages.
var fatalSteps = map[providerStep]error{
	{opPurchase, callTelephonyPurchase}: domain.ErrProviderUnavailable,
	{opClaim, callVoiceImport}:          domain.ErrUpstreamImportFailed,
	{opClaim, callVoiceAssign}:          domain.ErrUpstreamAssignFailed,
	{opAssignAgent, callVoiceImport}:    domain.ErrUpstreamImportFailed,
	{opAssignAgent, callVoiceAssign}:    domain.ErrUpstreamAssignFailed,
}

// providerCall runs one provider call under the policy table. Fatal failures
// come back wrapped in the step's typed error; best-effort failures are
// logged, counted and swallowed.
func (a *Application) providerCall(ctx context.Context, op, call string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	if sentinel, fatal := fatalSteps[providerStep{op: op, call: call}]; fatal {
		providerCallFailuresTotal.WithLabelValues(op, call, "fatal").Inc()
		a.logger.ErrorContext(ctx, "Fatal provider call failed", "operation", op, "call", call, "error", err)
		return fmt.Errorf("%w: %v", sentinel, err)
	}

	providerCallFailuresTotal.WithLabelValues(op, call, "best_effort").Inc()
	a.logger.WarnContext(ctx, "Best-effort provider call failed; continuing", "operation", op, "call", call, "error", err)
	return nil
}
