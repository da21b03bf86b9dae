package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/voxcalls/backend/internal/api/http/middleware"
	numberingapp "github.com/voxcalls/backend/internal/numbering/app"
)

// PhoneNumberHandler handles the tenant-facing phone number endpoints. All
// lookups are scoped to the authenticated user's tenant.
type PhoneNumberHandler struct {
	numberingApp *numberingapp.Application
	logger       *slog.Logger
	validate     *validator.Validate
}

func NewPhoneNumberHandler(numberingApp *numberingapp.Application, logger *slog.Logger, validate *validator.Validate) *PhoneNumberHandler {
	return &PhoneNumberHandler{
		numberingApp: numberingApp,
		logger:       logger,
		validate:     validate,
	}
}

// RegisterRoutes sets up the phone number routes reserved for tenant admins:
// pool listings, claim/release and the assignment endpoints. Mount behind
// RequireRole(RoleAdmin).
func (h *PhoneNumberHandler) RegisterRoutes(r chi.Router) {
	r.Get("/phone-numbers", h.ListTenantNumbers)
	r.Get("/phone-numbers/available", h.ListAvailable)
	r.Post("/phone-numbers/claim", h.Claim)
	r.Post("/phone-numbers/{numberID}/release", h.Release)
	r.Put("/phone-numbers/{numberID}/agent", h.AssignAgent)
	r.Put("/phone-numbers/{numberID}/user", h.AssignUser)
}

// RegisterUserRoutes sets up the routes any authenticated tenant user may
// call.
func (h *PhoneNumberHandler) RegisterUserRoutes(r chi.Router) {
	r.Get("/phone-numbers/mine", h.GetMine)
}

func (h *PhoneNumberHandler) ListTenantNumbers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	numbers, err := h.numberingApp.ListForTenant(ctx, authUser.TenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list tenant numbers", "tenant_id", authUser.TenantID, "error", err)
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to list phone numbers: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, numbers)
}

func (h *PhoneNumberHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	numbers, err := h.numberingApp.ListAvailable(ctx)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to list available numbers: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, numbers)
}

func (h *PhoneNumberHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	number, err := h.numberingApp.FindForUser(ctx, authUser.ID)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "No phone number assigned")
		return
	}
	respondWithJSON(w, http.StatusOK, number)
}

func (h *PhoneNumberHandler) Claim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	var reqDTO ClaimNumberRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	number, err := h.numberingApp.Claim(ctx, reqDTO.PhoneNumberID, authUser.TenantID, reqDTO.AgentID)
	if err != nil {
		// The claim may be committed even when the agent binding failed; the
		// claimed number rides along with the error status in that case.
		h.logger.ErrorContext(ctx, "Claim failed", "phone_number_id", reqDTO.PhoneNumberID, "tenant_id", authUser.TenantID, "error", err)
		if number != nil {
			respondWithJSON(w, mapDomainErrorToHTTPStatus(err), map[string]interface{}{
				"error":        err.Error(),
				"phone_number": number,
			})
			return
		}
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to claim number: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, number)
}

func (h *PhoneNumberHandler) Release(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	numberID, err := uuid.Parse(chi.URLParam(r, "numberID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid phone number ID format")
		return
	}

	if err := h.numberingApp.Release(ctx, numberID, authUser.TenantID); err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to release number: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *PhoneNumberHandler) AssignAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	numberID, err := uuid.Parse(chi.URLParam(r, "numberID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid phone number ID format")
		return
	}

	var reqDTO AssignAgentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	number, err := h.numberingApp.AssignAgent(ctx, numberID, authUser.TenantID, reqDTO.AgentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Agent assignment failed", "phone_number_id", numberID, "error", err)
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to assign agent: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, number)
}

func (h *PhoneNumberHandler) AssignUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	numberID, err := uuid.Parse(chi.URLParam(r, "numberID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid phone number ID format")
		return
	}

	var reqDTO AssignUserRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	number, err := h.numberingApp.AssignUser(ctx, numberID, authUser.TenantID, reqDTO.UserID, reqDTO.AgentID)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to assign user: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, number)
}
