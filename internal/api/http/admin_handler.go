package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	identityapp "github.com/voxcalls/backend/internal/identity/app"
	numberingapp "github.com/voxcalls/backend/internal/numbering/app"
	"github.com/voxcalls/backend/internal/provider/telephony"
	tenancyapp "github.com/voxcalls/backend/internal/tenancy/app"
)

// AdminHandler handles the operator endpoints: tenant management, the global
// number pool, provider catalogues and platform analytics. The router mounts
// it behind a super_admin role check.
type AdminHandler struct {
	tenancyApp   *tenancyapp.Application
	identityApp  *identityapp.Application
	numberingApp *numberingapp.Application
	logger       *slog.Logger
	validate     *validator.Validate
}

func NewAdminHandler(
	tenancyApp *tenancyapp.Application,
	identityApp *identityapp.Application,
	numberingApp *numberingapp.Application,
	logger *slog.Logger,
	validate *validator.Validate,
) *AdminHandler {
	return &AdminHandler{
		tenancyApp:   tenancyApp,
		identityApp:  identityApp,
		numberingApp: numberingApp,
		logger:       logger,
		validate:     validate,
	}
}

// RegisterRoutes sets up the operator routes.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	// Tenant management
	r.Post("/tenants", h.CreateTenant)
	r.Get("/tenants", h.ListTenants)
	r.Get("/tenants/{tenantID}", h.GetTenant)
	r.Put("/tenants/{tenantID}", h.UpdateTenant)
	r.Post("/tenants/{tenantID}/suspend", h.SuspendTenant)
	r.Post("/tenants/{tenantID}/activate", h.ActivateTenant)

	// User management
	r.Post("/users", h.CreateUser)
	r.Get("/users", h.ListUsers)

	// Global number pool
	r.Get("/phone-numbers", h.ListAllNumbers)
	r.Post("/phone-numbers/purchase", h.PurchaseNumber)
	r.Post("/phone-numbers/import", h.ImportNumber)
	r.Delete("/phone-numbers/{numberID}", h.DeleteNumber)

	// Provider catalogue
	r.Get("/phone-numbers/search", h.SearchNumbers)
	r.Get("/phone-numbers/pricing/{countryCode}", h.Pricing)
	r.Get("/phone-numbers/addresses", h.Addresses)

	// Analytics
	r.Get("/analytics", h.Analytics)
}

// --- Tenant management ---

func (h *AdminHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO CreateTenantRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	tenant, err := h.tenancyApp.Create(ctx, reqDTO.Name, reqDTO.Slug)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to create tenant: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, tenant)
}

func (h *AdminHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenancyApp.List(r.Context())
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to list tenants: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, tenants)
}

func (h *AdminHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid tenant ID format")
		return
	}

	tenant, err := h.tenancyApp.Get(r.Context(), tenantID)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to get tenant: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, tenant)
}

func (h *AdminHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid tenant ID format")
		return
	}

	var reqDTO UpdateTenantRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	tenant, err := h.tenancyApp.Update(ctx, tenantID, tenancyapp.TenantInput{
		Name:                reqDTO.Name,
		Plan:                reqDTO.Plan,
		TrialEndsAt:         reqDTO.TrialEndsAt,
		MaxUsers:            reqDTO.MaxUsers,
		MaxAgents:           reqDTO.MaxAgents,
		MaxPhoneNumbers:     reqDTO.MaxPhoneNumbers,
		MonthlyMinutesLimit: reqDTO.MonthlyMinutesLimit,
	})
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to update tenant: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, tenant)
}

func (h *AdminHandler) SuspendTenant(w http.ResponseWriter, r *http.Request) {
	h.setTenantStatus(w, r, h.tenancyApp.Suspend)
}

func (h *AdminHandler) ActivateTenant(w http.ResponseWriter, r *http.Request) {
	h.setTenantStatus(w, r, h.tenancyApp.Activate)
}

func (h *AdminHandler) setTenantStatus(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) error) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid tenant ID format")
		return
	}

	if err := fn(r.Context(), tenantID); err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to change tenant status: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- User management ---

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO CreateUserRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	user, err := h.identityApp.CreateUser(ctx, reqDTO.TenantID, reqDTO.Email, reqDTO.Password, reqDTO.FullName, reqDTO.Role)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to create user: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var tenantID *uuid.UUID
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid tenant_id filter")
			return
		}
		tenantID = &parsed
	}

	users, err := h.identityApp.ListUsers(ctx, tenantID)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to list users: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// --- Global number pool ---

func (h *AdminHandler) ListAllNumbers(w http.ResponseWriter, r *http.Request) {
	numbers, err := h.numberingApp.ListAll(r.Context())
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to list numbers: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, numbers)
}

func (h *AdminHandler) PurchaseNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO PurchaseNumberRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	number, err := h.numberingApp.AcquireByPurchase(ctx, reqDTO.PhoneNumber, reqDTO.CountryCode, reqDTO.NumberType)
	if err != nil {
		h.logger.ErrorContext(ctx, "Number purchase failed", "phone_number", reqDTO.PhoneNumber, "error", err)
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to purchase number: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, number)
}

func (h *AdminHandler) ImportNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO ImportNumberRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	number, err := h.numberingApp.AcquireByImport(ctx, reqDTO.PhoneNumber, reqDTO.ProviderNumberID, reqDTO.CountryCode, reqDTO.NumberType)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to import number: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, number)
}

func (h *AdminHandler) DeleteNumber(w http.ResponseWriter, r *http.Request) {
	numberID, err := uuid.Parse(chi.URLParam(r, "numberID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid phone number ID format")
		return
	}

	if err := h.numberingApp.Delete(r.Context(), numberID); err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to delete number: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Provider catalogue ---

func (h *AdminHandler) SearchNumbers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	params := telephony.SearchParams{
		CountryCode: q.Get("country_code"),
		NumberType:  q.Get("number_type"),
		AreaCode:    q.Get("area_code"),
		Contains:    q.Get("contains"),
		Limit:       limit,
	}
	if params.CountryCode == "" {
		respondWithError(w, http.StatusBadRequest, "country_code is required")
		return
	}

	candidates, err := h.numberingApp.SearchNumbers(ctx, params)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Number search failed: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, candidates)
}

func (h *AdminHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	countryCode := chi.URLParam(r, "countryCode")

	pricing, err := h.numberingApp.Pricing(r.Context(), countryCode)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Pricing lookup failed: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, pricing)
}

func (h *AdminHandler) Addresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.numberingApp.Addresses(r.Context())
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Address lookup failed: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, addresses)
}

// --- Analytics ---

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.tenancyApp.Analytics(r.Context())
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to load analytics: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, analytics)
}
