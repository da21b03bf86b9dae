package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"log/slog"

	identityapp "github.com/voxcalls/backend/internal/identity/app"
	"github.com/voxcalls/backend/internal/api/http/middleware"
)

// AuthHandler handles login and the current-user endpoint.
type AuthHandler struct {
	identityApp *identityapp.Application
	logger      *slog.Logger
	validate    *validator.Validate
}

func NewAuthHandler(identityApp *identityapp.Application, logger *slog.Logger, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		identityApp: identityApp,
		logger:      logger,
		validate:    validate,
	}
}

// RegisterPublicRoutes mounts the unauthenticated auth endpoints.
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// RegisterRoutes mounts the authenticated auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	token, user, err := h.identityApp.Login(ctx, reqDTO.Email, reqDTO.Password)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponseDTO{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.identityApp.GetUser(ctx, authUser.ID)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to load user: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}
