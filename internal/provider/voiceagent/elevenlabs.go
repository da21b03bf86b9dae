package voiceagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/voxcalls/backend/internal/provider"
)

const (
	defaultVoiceID  = "21m00Tcm4TlvDq8ikWAM" // Rachel
	defaultTTSModel = "eleven_turbo_v2_5"
)

// ElevenLabsConfig holds credentials for the ElevenLabs Conversational AI API.
// The Twilio credentials are forwarded in the phone-number import payload so
// the provider can take over inbound routing for the number.
type ElevenLabsConfig struct {
	APIKey           string
	BaseURL          string
	TwilioAccountSID string
	TwilioAuthToken  string
}

type ElevenLabsClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	cfg        ElevenLabsConfig
}

func NewElevenLabsClient(logger *slog.Logger, cfg ElevenLabsConfig, httpClient *http.Client) *ElevenLabsClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1/convai"
	}
	return &ElevenLabsClient{
		logger:     logger.With("provider", "elevenlabs"),
		httpClient: httpClient,
		cfg:        cfg,
	}
}

type elevenLabsImportRequest struct {
	PhoneNumber string `json:"phone_number"`
	Label       string `json:"label"`
	Provider    string `json:"provider"`
	SID         string `json:"sid"`
	Token       string `json:"token"`
}

type elevenLabsImportResponse struct {
	PhoneNumberID string `json:"phone_number_id"`
}

type elevenLabsAssignRequest struct {
	AgentID *string `json:"agent_id"`
}

type elevenLabsAgentRequest struct {
	Name               string                       `json:"name"`
	ConversationConfig elevenLabsConversationConfig `json:"conversation_config"`
}

type elevenLabsConversationConfig struct {
	Agent elevenLabsAgentSection `json:"agent"`
	TTS   elevenLabsTTSSection   `json:"tts"`
}

type elevenLabsAgentSection struct {
	FirstMessage string                `json:"first_message"`
	Language     string                `json:"language"`
	Prompt       elevenLabsAgentPrompt `json:"prompt"`
}

type elevenLabsAgentPrompt struct {
	Prompt string `json:"prompt"`
	LLM    string `json:"llm"`
}

type elevenLabsTTSSection struct {
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id"`
}

type elevenLabsAgentResponse struct {
	AgentID string `json:"agent_id"`
}

func (c *ElevenLabsClient) ImportNumber(ctx context.Context, phoneNumber, providerNumberID string) (*ImportResult, error) {
	c.logger.InfoContext(ctx, "Importing phone number to ElevenLabs", "phone_number", phoneNumber)

	_ = providerNumberID // the provider resolves the number via the account credentials below
	payload := elevenLabsImportRequest{
		PhoneNumber: phoneNumber,
		Label:       fmt.Sprintf("VoxCalls - %s", phoneNumber),
		Provider:    "twilio",
		SID:         c.cfg.TwilioAccountSID,
		Token:       c.cfg.TwilioAuthToken,
	}

	var resp elevenLabsImportResponse
	if err := c.do(ctx, http.MethodPost, "/phone-numbers", "import_number", payload, &resp); err != nil {
		return nil, err
	}
	return &ImportResult{VoiceProviderNumberID: resp.PhoneNumberID}, nil
}

func (c *ElevenLabsClient) AssignNumber(ctx context.Context, voiceProviderNumberID string, voiceProviderAgentID *string) error {
	c.logger.InfoContext(ctx, "Updating agent binding at ElevenLabs",
		"voice_provider_number_id", voiceProviderNumberID, "bound", voiceProviderAgentID != nil)

	payload := elevenLabsAssignRequest{AgentID: voiceProviderAgentID}
	endpoint := fmt.Sprintf("/phone-numbers/%s", voiceProviderNumberID)
	return c.do(ctx, http.MethodPatch, endpoint, "assign_number", payload, nil)
}

func (c *ElevenLabsClient) DeleteNumber(ctx context.Context, voiceProviderNumberID string) error {
	endpoint := fmt.Sprintf("/phone-numbers/%s", voiceProviderNumberID)
	return c.do(ctx, http.MethodDelete, endpoint, "delete_number", nil, nil)
}

func (c *ElevenLabsClient) CreateAgent(ctx context.Context, cfg AgentConfig) (*AgentResult, error) {
	c.logger.InfoContext(ctx, "Creating agent at ElevenLabs", "name", cfg.Name)

	var resp elevenLabsAgentResponse
	if err := c.do(ctx, http.MethodPost, "/agents/create", "create_agent", buildAgentRequest(cfg), &resp); err != nil {
		return nil, err
	}
	return &AgentResult{VoiceProviderAgentID: resp.AgentID}, nil
}

func (c *ElevenLabsClient) UpdateAgent(ctx context.Context, voiceProviderAgentID string, cfg AgentConfig) error {
	endpoint := fmt.Sprintf("/agents/%s", voiceProviderAgentID)
	return c.do(ctx, http.MethodPatch, endpoint, "update_agent", buildAgentRequest(cfg), nil)
}

func (c *ElevenLabsClient) DeleteAgent(ctx context.Context, voiceProviderAgentID string) error {
	endpoint := fmt.Sprintf("/agents/%s", voiceProviderAgentID)
	return c.do(ctx, http.MethodDelete, endpoint, "delete_agent", nil, nil)
}

func buildAgentRequest(cfg AgentConfig) elevenLabsAgentRequest {
	if cfg.WelcomeMessage == "" {
		cfg.WelcomeMessage = "Hello! How can I help you today?"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are a helpful voice assistant."
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = "gpt-4o-mini"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultVoiceID
	}
	return elevenLabsAgentRequest{
		Name: cfg.Name,
		ConversationConfig: elevenLabsConversationConfig{
			Agent: elevenLabsAgentSection{
				FirstMessage: cfg.WelcomeMessage,
				Language:     cfg.Language,
				Prompt: elevenLabsAgentPrompt{
					Prompt: cfg.SystemPrompt,
					LLM:    cfg.LLMModel,
				},
			},
			TTS: elevenLabsTTSSection{
				VoiceID: cfg.VoiceID,
				ModelID: defaultTTSModel,
			},
		},
	}
}

func (c *ElevenLabsClient) do(ctx context.Context, method, endpoint, operation string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		reqBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal ElevenLabs %s request: %w", operation, err)
		}
		body = bytes.NewBuffer(reqBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create ElevenLabs request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to ElevenLabs: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read ElevenLabs response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.ErrorContext(ctx, "ElevenLabs API request failed",
			"operation", operation, "status_code", resp.StatusCode, "body", string(respBody))
		return &provider.Error{
			Provider:   "elevenlabs",
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode ElevenLabs %s response: %w", operation, err)
		}
	}
	return nil
}
