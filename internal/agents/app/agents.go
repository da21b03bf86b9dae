package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxcalls/backend/internal/agents/domain"
	"github.com/voxcalls/backend/internal/provider/voiceagent"
)

// AgentInput carries the editable agent fields.
type AgentInput struct {
	Name           string
	SystemPrompt   string
	WelcomeMessage string
	VoiceID        string
	LLMModel       string
	Language       string
}

// Application manages tenant agents and mirrors them to the voice provider.
type Application struct {
	agents domain.AgentRepository
	voice  voiceagent.Client
	logger *slog.Logger
}

func NewApplication(agents domain.AgentRepository, voiceClient voiceagent.Client, logger *slog.Logger) *Application {
	return &Application{
		agents: agents,
		voice:  voiceClient,
		logger: logger.With("service", "agents"),
	}
}

// Create stores the agent and provisions it at the voice provider. The remote
// create is best-effort: on failure the agent exists locally without a
// voice_provider_agent_id and stays ineligible for number binding until
// Provision succeeds.
func (a *Application) Create(ctx context.Context, tenantID uuid.UUID, input AgentInput) (*domain.Agent, error) {
	agent := domain.NewAgent(uuid.New(), tenantID, input.Name)
	applyInput(agent, input)

	remoteID, err := a.provisionRemote(ctx, agent)
	if err != nil {
		a.logger.WarnContext(ctx, "Voice provider agent creation failed, storing unprovisioned",
			"tenant_id", tenantID, "agent_name", input.Name, "error", err)
	} else {
		agent.VoiceProviderAgentID = &remoteID
	}

	if err := a.agents.Create(ctx, agent); err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Agent created",
		"agent_id", agent.ID, "tenant_id", tenantID, "provisioned", agent.VoiceProviderAgentID != nil)
	return agent, nil
}

// Provision retries the remote creation for an agent stored without a
// voice_provider_agent_id. Unlike Create, a provider failure here is fatal.
func (a *Application) Provision(ctx context.Context, id, tenantID uuid.UUID) (*domain.Agent, error) {
	agent, err := a.agents.FindByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if agent.VoiceProviderAgentID != nil {
		return agent, nil
	}

	remoteID, err := a.provisionRemote(ctx, agent)
	if err != nil {
		a.logger.ErrorContext(ctx, "Voice provider agent provisioning failed", "agent_id", id, "error", err)
		return nil, domain.ErrProviderCreateFailed
	}

	agent.VoiceProviderAgentID = &remoteID
	agent.UpdatedAt = time.Now().UTC()
	if err := a.agents.Update(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// Update applies the input locally and pushes the new configuration to the
// voice provider when the agent is provisioned. The remote push is
// best-effort; the local record is the source of truth for configuration.
func (a *Application) Update(ctx context.Context, id, tenantID uuid.UUID, input AgentInput) (*domain.Agent, error) {
	agent, err := a.agents.FindByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		agent.Name = input.Name
	}
	applyInput(agent, input)
	agent.UpdatedAt = time.Now().UTC()

	if err := a.agents.Update(ctx, agent); err != nil {
		return nil, err
	}

	if agent.VoiceProviderAgentID != nil {
		if err := a.voice.UpdateAgent(ctx, *agent.VoiceProviderAgentID, agentConfig(agent)); err != nil {
			a.logger.WarnContext(ctx, "Voice provider agent update failed", "agent_id", id, "error", err)
		}
	}
	return agent, nil
}

func (a *Application) Get(ctx context.Context, id, tenantID uuid.UUID) (*domain.Agent, error) {
	return a.agents.FindByIDForTenant(ctx, id, tenantID)
}

func (a *Application) List(ctx context.Context, tenantID uuid.UUID) ([]*domain.Agent, error) {
	return a.agents.ListForTenant(ctx, tenantID)
}

// Delete soft-deletes the agent and removes it from the voice provider
// best-effort. A deleted agent is no longer eligible for number binding.
func (a *Application) Delete(ctx context.Context, id, tenantID uuid.UUID) error {
	agent, err := a.agents.FindByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return err
	}

	if agent.VoiceProviderAgentID != nil {
		if err := a.voice.DeleteAgent(ctx, *agent.VoiceProviderAgentID); err != nil {
			a.logger.WarnContext(ctx, "Voice provider agent deletion failed", "agent_id", id, "error", err)
		}
	}

	agent.Status = domain.StatusDeleted
	agent.UpdatedAt = time.Now().UTC()
	if err := a.agents.Update(ctx, agent); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "Agent deleted", "agent_id", id, "tenant_id", tenantID)
	return nil
}

func (a *Application) provisionRemote(ctx context.Context, agent *domain.Agent) (string, error) {
	result, err := a.voice.CreateAgent(ctx, agentConfig(agent))
	if err != nil {
		return "", err
	}
	return result.VoiceProviderAgentID, nil
}

func applyInput(agent *domain.Agent, input AgentInput) {
	if input.SystemPrompt != "" {
		agent.SystemPrompt = input.SystemPrompt
	}
	if input.WelcomeMessage != "" {
		agent.WelcomeMessage = input.WelcomeMessage
	}
	if input.VoiceID != "" {
		agent.VoiceID = input.VoiceID
	}
	if input.LLMModel != "" {
		agent.LLMModel = input.LLMModel
	}
	if input.Language != "" {
		agent.Language = input.Language
	}
}

func agentConfig(agent *domain.Agent) voiceagent.AgentConfig {
	return voiceagent.AgentConfig{
		Name:           agent.Name,
		SystemPrompt:   agent.SystemPrompt,
		WelcomeMessage: agent.WelcomeMessage,
		VoiceID:        agent.VoiceID,
		LLMModel:       agent.LLMModel,
		Language:       agent.Language,
	}
}
