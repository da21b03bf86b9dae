package voiceagent

import "context"

// ImportResult identifies an imported phone number on the voice provider side.
type ImportResult struct {
	VoiceProviderNumberID string `json:"voice_provider_number_id"`
}

// AgentConfig carries the conversational configuration pushed to the provider.
type AgentConfig struct {
	Name           string
	SystemPrompt   string
	WelcomeMessage string
	VoiceID        string
	LLMModel       string
	Language       string
}

// AgentResult identifies a created agent on the voice provider side.
type AgentResult struct {
	VoiceProviderAgentID string `json:"voice_provider_agent_id"`
}

// Client is the conversational-AI provider boundary. AssignNumber with a nil
// agent ID clears the binding on the provider.
type Client interface {
	ImportNumber(ctx context.Context, phoneNumber, providerNumberID string) (*ImportResult, error)
	AssignNumber(ctx context.Context, voiceProviderNumberID string, voiceProviderAgentID *string) error
	DeleteNumber(ctx context.Context, voiceProviderNumberID string) error

	CreateAgent(ctx context.Context, cfg AgentConfig) (*AgentResult, error)
	UpdateAgent(ctx context.Context, voiceProviderAgentID string, cfg AgentConfig) error
	DeleteAgent(ctx context.Context, voiceProviderAgentID string) error
}
