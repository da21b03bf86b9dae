package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	agentdomain "github.com/voxcalls/backend/internal/agents/domain"
	identitydomain "github.com/voxcalls/backend/internal/identity/domain"
	numberingdomain "github.com/voxcalls/backend/internal/numbering/domain"
	tenancydomain "github.com/voxcalls/backend/internal/tenancy/domain"
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("Failed to write JSON response", "error", err)
		}
	}
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// mapDomainErrorToHTTPStatus converts domain errors to HTTP status codes.
// Upstream provider failures surface as 502 so clients can distinguish them
// from faults in this service.
func mapDomainErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, numberingdomain.ErrNotFound),
		errors.Is(err, tenancydomain.ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound),
		errors.Is(err, agentdomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, numberingdomain.ErrNotAvailable),
		errors.Is(err, numberingdomain.ErrConflict),
		errors.Is(err, numberingdomain.ErrDuplicateEntry),
		errors.Is(err, identitydomain.ErrDuplicateEntry),
		errors.Is(err, tenancydomain.ErrDuplicateSlug):
		return http.StatusConflict
	case errors.Is(err, numberingdomain.ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, numberingdomain.ErrAgentNotEligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, identitydomain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, identitydomain.ErrUserInactive):
		return http.StatusForbidden
	case errors.Is(err, numberingdomain.ErrProviderUnavailable),
		errors.Is(err, numberingdomain.ErrUpstreamImportFailed),
		errors.Is(err, numberingdomain.ErrUpstreamAssignFailed),
		errors.Is(err, agentdomain.ErrProviderCreateFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
