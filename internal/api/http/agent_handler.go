package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	agentapp "github.com/voxcalls/backend/internal/agents/app"
	"github.com/voxcalls/backend/internal/api/http/middleware"
)

// AgentHandler handles the tenant-facing agent endpoints.
type AgentHandler struct {
	agentApp *agentapp.Application
	logger   *slog.Logger
	validate *validator.Validate
}

func NewAgentHandler(agentApp *agentapp.Application, logger *slog.Logger, validate *validator.Validate) *AgentHandler {
	return &AgentHandler{
		agentApp: agentApp,
		logger:   logger,
		validate: validate,
	}
}

// RegisterRoutes sets up the agent routes.
func (h *AgentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/agents", h.CreateAgent)
	r.Get("/agents", h.ListAgents)
	r.Get("/agents/{agentID}", h.GetAgent)
	r.Put("/agents/{agentID}", h.UpdateAgent)
	r.Post("/agents/{agentID}/provision", h.ProvisionAgent)
	r.Delete("/agents/{agentID}", h.DeleteAgent)
}

func (h *AgentHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	var reqDTO CreateAgentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	agent, err := h.agentApp.Create(ctx, authUser.TenantID, agentapp.AgentInput{
		Name:           reqDTO.Name,
		SystemPrompt:   reqDTO.SystemPrompt,
		WelcomeMessage: reqDTO.WelcomeMessage,
		VoiceID:        reqDTO.VoiceID,
		LLMModel:       reqDTO.LLMModel,
		Language:       reqDTO.Language,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "Agent creation failed", "tenant_id", authUser.TenantID, "error", err)
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to create agent: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, agent)
}

func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	agents, err := h.agentApp.List(ctx, authUser.TenantID)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to list agents: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, agents)
}

func (h *AgentHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid agent ID format")
		return
	}

	agent, err := h.agentApp.Get(ctx, agentID, authUser.TenantID)
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to get agent: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, agent)
}

func (h *AgentHandler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid agent ID format")
		return
	}

	var reqDTO UpdateAgentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	agent, err := h.agentApp.Update(ctx, agentID, authUser.TenantID, agentapp.AgentInput{
		Name:           reqDTO.Name,
		SystemPrompt:   reqDTO.SystemPrompt,
		WelcomeMessage: reqDTO.WelcomeMessage,
		VoiceID:        reqDTO.VoiceID,
		LLMModel:       reqDTO.LLMModel,
		Language:       reqDTO.Language,
	})
	if err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to update agent: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, agent)
}

func (h *AgentHandler) ProvisionAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid agent ID format")
		return
	}

	agent, err := h.agentApp.Provision(ctx, agentID, authUser.TenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Agent provisioning failed", "agent_id", agentID, "error", err)
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to provision agent: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, agent)
}

func (h *AgentHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, _ := middleware.UserFromContext(ctx)

	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid agent ID format")
		return
	}

	if err := h.agentApp.Delete(ctx, agentID, authUser.TenantID); err != nil {
		respondWithError(w, mapDomainErrorToHTTPStatus(err), "Failed to delete agent: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}
