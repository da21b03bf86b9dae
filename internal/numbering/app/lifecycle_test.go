package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	agentdomain "github.com/voxcalls/backend/internal/agents/domain"
	identitydomain "github.com/voxcalls/backend/internal/identity/domain"
	"github.com/voxcalls/backend/internal/numbering/domain"
	"github.com/voxcalls/backend/internal/provider"
	"github.com/voxcalls/backend/internal/provider/telephony"
	"github.com/voxcalls/backend/internal/provider/voiceagent"
)

// --- Mocks ---

type MockPhoneNumberRepository struct {
	mock.Mock
}

func (m *MockPhoneNumberRepository) Create(ctx context.Context, n *domain.PhoneNumber) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockPhoneNumberRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, id, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) FindByProviderNumberID(ctx context.Context, providerNumberID string) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, providerNumberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) FindByAssignedUser(ctx context.Context, userID uuid.UUID) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) ListAvailable(ctx context.Context) ([]*domain.PhoneNumber, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.PhoneNumber, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) ListAll(ctx context.Context) ([]*domain.PhoneNumber, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) CountAssigned(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPhoneNumberRepository) Counts(ctx context.Context) (*domain.PoolCounts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PoolCounts), args.Error(1)
}

func (m *MockPhoneNumberRepository) Claim(ctx context.Context, id, tenantID uuid.UUID, assignedAt time.Time) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, id, tenantID, assignedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) SetVoiceProviderNumberID(ctx context.Context, id uuid.UUID, voiceProviderNumberID string) error {
	args := m.Called(ctx, id, voiceProviderNumberID)
	return args.Error(0)
}

func (m *MockPhoneNumberRepository) SetAssignedAgent(ctx context.Context, id, tenantID uuid.UUID, agentID *uuid.UUID) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, id, tenantID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) SetAssignedUser(ctx context.Context, id, tenantID uuid.UUID, userID *uuid.UUID) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, id, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockPhoneNumberRepository) Release(ctx context.Context, id, tenantID uuid.UUID) error {
	args := m.Called(ctx, id, tenantID)
	return args.Error(0)
}

func (m *MockPhoneNumberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAgentRepository struct {
	mock.Mock
}

func (m *MockAgentRepository) Create(ctx context.Context, agent *agentdomain.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

func (m *MockAgentRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*agentdomain.Agent, error) {
	args := m.Called(ctx, id, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agentdomain.Agent), args.Error(1)
}

func (m *MockAgentRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*agentdomain.Agent, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*agentdomain.Agent), args.Error(1)
}

func (m *MockAgentRepository) Update(ctx context.Context, agent *agentdomain.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

func (m *MockAgentRepository) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identitydomain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identitydomain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identitydomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*identitydomain.User, error) {
	args := m.Called(ctx, id, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, tenantID *uuid.UUID) ([]*identitydomain.User, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identitydomain.User), args.Error(1)
}

func (m *MockUserRepository) SetAssignedPhoneNumber(ctx context.Context, id uuid.UUID, phoneNumberID *uuid.UUID) error {
	args := m.Called(ctx, id, phoneNumberID)
	return args.Error(0)
}

func (m *MockUserRepository) SetAssignedAgent(ctx context.Context, id uuid.UUID, agentID *uuid.UUID) error {
	args := m.Called(ctx, id, agentID)
	return args.Error(0)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockTelephonyClient struct {
	mock.Mock
}

func (m *MockTelephonyClient) Search(ctx context.Context, params telephony.SearchParams) ([]telephony.NumberCandidate, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]telephony.NumberCandidate), args.Error(1)
}

func (m *MockTelephonyClient) Purchase(ctx context.Context, phoneNumber string) (*telephony.PurchaseResult, error) {
	args := m.Called(ctx, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telephony.PurchaseResult), args.Error(1)
}

func (m *MockTelephonyClient) Release(ctx context.Context, providerNumberID string) error {
	args := m.Called(ctx, providerNumberID)
	return args.Error(0)
}

func (m *MockTelephonyClient) Pricing(ctx context.Context, countryCode string) (*telephony.CountryPricing, error) {
	args := m.Called(ctx, countryCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telephony.CountryPricing), args.Error(1)
}

func (m *MockTelephonyClient) Addresses(ctx context.Context) ([]telephony.Address, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]telephony.Address), args.Error(1)
}

type MockVoiceClient struct {
	mock.Mock
}

func (m *MockVoiceClient) ImportNumber(ctx context.Context, phoneNumber, providerNumberID string) (*voiceagent.ImportResult, error) {
	args := m.Called(ctx, phoneNumber, providerNumberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voiceagent.ImportResult), args.Error(1)
}

func (m *MockVoiceClient) AssignNumber(ctx context.Context, voiceProviderNumberID string, voiceProviderAgentID *string) error {
	args := m.Called(ctx, voiceProviderNumberID, voiceProviderAgentID)
	return args.Error(0)
}

func (m *MockVoiceClient) DeleteNumber(ctx context.Context, voiceProviderNumberID string) error {
	args := m.Called(ctx, voiceProviderNumberID)
	return args.Error(0)
}

func (m *MockVoiceClient) CreateAgent(ctx context.Context, cfg voiceagent.AgentConfig) (*voiceagent.AgentResult, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voiceagent.AgentResult), args.Error(1)
}

func (m *MockVoiceClient) UpdateAgent(ctx context.Context, voiceProviderAgentID string, cfg voiceagent.AgentConfig) error {
	args := m.Called(ctx, voiceProviderAgentID, cfg)
	return args.Error(0)
}

func (m *MockVoiceClient) DeleteAgent(ctx context.Context, voiceProviderAgentID string) error {
	args := m.Called(ctx, voiceProviderAgentID)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

// --- Test setup ---

type lifecycleTestComponents struct {
	app           *Application
	mockNumbers   *MockPhoneNumberRepository
	mockAgents    *MockAgentRepository
	mockUsers     *MockUserRepository
	mockTelephony *MockTelephonyClient
	mockVoice     *MockVoiceClient
}

func setupLifecycleTest(t *testing.T) lifecycleTestComponents {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockNumbers := new(MockPhoneNumberRepository)
	mockAgents := new(MockAgentRepository)
	mockUsers := new(MockUserRepository)
	mockTelephony := new(MockTelephonyClient)
	mockVoice := new(MockVoiceClient)

	app := NewApplication(mockNumbers, mockAgents, mockUsers, mockTelephony, mockVoice, nil, logger)
	return lifecycleTestComponents{
		app:           app,
		mockNumbers:   mockNumbers,
		mockAgents:    mockAgents,
		mockUsers:     mockUsers,
		mockTelephony: mockTelephony,
		mockVoice:     mockVoice,
	}
}

func strPtr(s string) *string        { return &s }
func uuidPtr(u uuid.UUID) *uuid.UUID { return &u }

func availableNumber(voiceID *string) *domain.PhoneNumber {
	return &domain.PhoneNumber{
		ID:                    uuid.New(),
		PhoneNumber:           "+61255501234",
		ProviderNumberID:      "PN123",
		VoiceProviderNumberID: voiceID,
		CountryCode:           "AU",
		NumberType:            "local",
		Status:                domain.StatusAvailable,
		SupportsInbound:       true,
		SupportsOutbound:      true,
		CreatedAt:             time.Now().UTC(),
	}
}

func eligibleAgent(tenantID uuid.UUID) *agentdomain.Agent {
	agent := agentdomain.NewAgent(uuid.New(), tenantID, "Receptionist")
	agent.VoiceProviderAgentID = strPtr("va_agent_1")
	return agent
}

func upstreamError(status int) error {
	return &provider.Error{Provider: "elevenlabs", Operation: "import_number", StatusCode: status, Body: "upstream unavailable"}
}

// --- Acquisition ---

func TestAcquireByPurchase_Success(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()

	c.mockTelephony.On("Purchase", ctx, "+61255501234").
		Return(&telephony.PurchaseResult{ProviderNumberID: "PN123", PhoneNumber: "+61255501234"}, nil).Once()
	c.mockVoice.On("ImportNumber", ctx, "+61255501234", "PN123").
		Return(&voiceagent.ImportResult{VoiceProviderNumberID: "vp_1"}, nil).Once()
	c.mockNumbers.On("Create", ctx, mock.AnythingOfType("*domain.PhoneNumber")).Return(nil).Once()

	number, err := c.app.AcquireByPurchase(ctx, "+61255501234", "AU", "local")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, number.Status)
	assert.Nil(t, number.TenantID)
	require.NotNil(t, number.VoiceProviderNumberID)
	assert.Equal(t, "vp_1", *number.VoiceProviderNumberID)
	c.mockNumbers.AssertExpectations(t)
	c.mockVoice.AssertExpectations(t)
}

// The voice-provider import is best-effort during purchase. The number is
// pooled without a voice provider ID and imported lazily later.
func TestAcquireByPurchase_VoiceImportFailureIsNonFatal(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()

	c.mockTelephony.On("Purchase", ctx, "+61255501234").
		Return(&telephony.PurchaseResult{ProviderNumberID: "PN123", PhoneNumber: "+61255501234"}, nil).Once()
	c.mockVoice.On("ImportNumber", ctx, "+61255501234", "PN123").
		Return(nil, upstreamError(503)).Once()
	c.mockNumbers.On("Create", ctx, mock.AnythingOfType("*domain.PhoneNumber")).Return(nil).Once()

	number, err := c.app.AcquireByPurchase(ctx, "+61255501234", "AU", "local")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, number.Status)
	assert.Nil(t, number.VoiceProviderNumberID)
	c.mockNumbers.AssertExpectations(t)
}

func TestAcquireByPurchase_TelephonyFailureIsFatal(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()

	c.mockTelephony.On("Purchase", ctx, "+61255501234").
		Return(nil, upstreamError(400)).Once()

	number, err := c.app.AcquireByPurchase(ctx, "+61255501234", "AU", "local")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Nil(t, number)
	c.mockNumbers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	c.mockVoice.AssertNotCalled(t, "ImportNumber", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquireByImport_DuplicateProviderNumberID(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()

	c.mockNumbers.On("FindByProviderNumberID", ctx, "PN123").
		Return(availableNumber(nil), nil).Once()

	number, err := c.app.AcquireByImport(ctx, "+61255501234", "PN123", "AU", "local")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
	assert.Nil(t, number)
	c.mockNumbers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAcquireByImport_VoiceImportFailureIsNonFatal(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()

	c.mockNumbers.On("FindByProviderNumberID", ctx, "PN123").
		Return(nil, domain.ErrNotFound).Once()
	c.mockVoice.On("ImportNumber", ctx, "+61255501234", "PN123").
		Return(nil, upstreamError(503)).Once()
	c.mockNumbers.On("Create", ctx, mock.AnythingOfType("*domain.PhoneNumber")).Return(nil).Once()

	number, err := c.app.AcquireByImport(ctx, "+61255501234", "PN123", "AU", "local")

	require.NoError(t, err)
	assert.Nil(t, number.VoiceProviderNumberID)
	assert.Equal(t, domain.StatusAvailable, number.Status)
	c.mockNumbers.AssertExpectations(t)
}

// --- Claim ---

func TestClaim_SuccessWithLazyImport(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(nil)
	claimed := *number
	claimed.VoiceProviderNumberID = strPtr("vp_1")
	claimed.TenantID = &tenantID
	claimed.Status = domain.StatusAssigned

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()
	c.mockVoice.On("ImportNumber", ctx, number.PhoneNumber, number.ProviderNumberID).
		Return(&voiceagent.ImportResult{VoiceProviderNumberID: "vp_1"}, nil).Once()
	c.mockNumbers.On("SetVoiceProviderNumberID", ctx, number.ID, "vp_1").Return(nil).Once()
	c.mockNumbers.On("Claim", ctx, number.ID, tenantID, mock.AnythingOfType("time.Time")).
		Return(&claimed, nil).Once()

	got, err := c.app.Claim(ctx, number.ID, tenantID, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, got.Status)
	require.NotNil(t, got.TenantID)
	assert.Equal(t, tenantID, *got.TenantID)
	assert.Nil(t, got.AssignedAgentID)
	c.mockNumbers.AssertExpectations(t)
}

// A failed import during claim leaves the number untouched in the pool.
func TestClaim_ImportFailureAbortsWithoutMutation(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()
	number := availableNumber(nil)

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()
	c.mockVoice.On("ImportNumber", ctx, number.PhoneNumber, number.ProviderNumberID).
		Return(nil, upstreamError(503)).Once()

	got, err := c.app.Claim(ctx, number.ID, tenantID, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamImportFailed)
	assert.Nil(t, got)
	c.mockNumbers.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	c.mockNumbers.AssertNotCalled(t, "SetVoiceProviderNumberID", mock.Anything, mock.Anything, mock.Anything)
}

// The quota check happens inside the claim transaction and aborts it.
func TestClaim_QuotaExceeded(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()
	number := availableNumber(strPtr("vp_1"))

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()
	c.mockNumbers.On("Claim", ctx, number.ID, tenantID, mock.AnythingOfType("time.Time")).
		Return(nil, domain.ErrQuotaExceeded).Once()

	got, err := c.app.Claim(ctx, number.ID, tenantID, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Nil(t, got)
}

func TestClaim_NotAvailable(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.Status = domain.StatusAssigned
	number.TenantID = uuidPtr(uuid.New())

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()

	got, err := c.app.Claim(ctx, number.ID, tenantID, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotAvailable)
	assert.Nil(t, got)
	c.mockVoice.AssertNotCalled(t, "ImportNumber", mock.Anything, mock.Anything, mock.Anything)
}

// The loser of a claim race observes the conditional update matching
// zero rows.
func TestClaim_RaceLoserGetsNotAvailable(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()
	number := availableNumber(strPtr("vp_1"))

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()
	c.mockNumbers.On("Claim", ctx, number.ID, tenantID, mock.AnythingOfType("time.Time")).
		Return(nil, domain.ErrNotAvailable).Once()

	_, err := c.app.Claim(ctx, number.ID, tenantID, nil)

	assert.ErrorIs(t, err, domain.ErrNotAvailable)
}

// An ineligible agent does not fail the claim; the binding is skipped and
// the number comes back claimed but unbound.
func TestClaim_IneligibleAgentIsSkipped(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	claimed := *number
	claimed.TenantID = &tenantID
	claimed.Status = domain.StatusAssigned

	agent := agentdomain.NewAgent(uuid.New(), tenantID, "No remote yet") // no voice provider agent ID

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()
	c.mockNumbers.On("Claim", ctx, number.ID, tenantID, mock.AnythingOfType("time.Time")).
		Return(&claimed, nil).Once()
	c.mockAgents.On("FindByIDForTenant", ctx, agent.ID, tenantID).Return(agent, nil).Once()

	got, err := c.app.Claim(ctx, number.ID, tenantID, &agent.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, got.Status)
	assert.Nil(t, got.AssignedAgentID)
	c.mockVoice.AssertNotCalled(t, "AssignNumber", mock.Anything, mock.Anything, mock.Anything)
	c.mockNumbers.AssertNotCalled(t, "SetAssignedAgent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClaim_EligibleAgentIsBound(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	claimed := *number
	claimed.TenantID = &tenantID
	claimed.Status = domain.StatusAssigned

	agent := eligibleAgent(tenantID)
	bound := claimed
	bound.AssignedAgentID = &agent.ID

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()
	c.mockNumbers.On("Claim", ctx, number.ID, tenantID, mock.AnythingOfType("time.Time")).
		Return(&claimed, nil).Once()
	c.mockAgents.On("FindByIDForTenant", ctx, agent.ID, tenantID).Return(agent, nil).Once()
	c.mockVoice.On("AssignNumber", ctx, "vp_1", agent.VoiceProviderAgentID).Return(nil).Once()
	c.mockNumbers.On("SetAssignedAgent", ctx, number.ID, tenantID, &agent.ID).Return(&bound, nil).Once()

	got, err := c.app.Claim(ctx, number.ID, tenantID, &agent.ID)

	require.NoError(t, err)
	require.NotNil(t, got.AssignedAgentID)
	assert.Equal(t, agent.ID, *got.AssignedAgentID)
	c.mockVoice.AssertExpectations(t)
}

// The claim commits even when the agent binding fails at the provider; the
// caller sees ErrUpstreamAssignFailed together with the claimed number.
func TestClaim_AssignFailureLeavesClaimCommitted(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	claimed := *number
	claimed.TenantID = &tenantID
	claimed.Status = domain.StatusAssigned

	agent := eligibleAgent(tenantID)

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()
	c.mockNumbers.On("Claim", ctx, number.ID, tenantID, mock.AnythingOfType("time.Time")).
		Return(&claimed, nil).Once()
	c.mockAgents.On("FindByIDForTenant", ctx, agent.ID, tenantID).Return(agent, nil).Once()
	c.mockVoice.On("AssignNumber", ctx, "vp_1", agent.VoiceProviderAgentID).
		Return(upstreamError(502)).Once()

	got, err := c.app.Claim(ctx, number.ID, tenantID, &agent.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamAssignFailed)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusAssigned, got.Status)
	assert.Nil(t, got.AssignedAgentID)
	c.mockNumbers.AssertNotCalled(t, "SetAssignedAgent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- AssignAgent ---

// Happy path calls the provider exactly once with the right IDs.
func TestAssignAgent_Success(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned

	agent := eligibleAgent(tenantID)
	bound := *number
	bound.AssignedAgentID = &agent.ID

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	c.mockAgents.On("FindByIDForTenant", ctx, agent.ID, tenantID).Return(agent, nil).Once()
	c.mockVoice.On("AssignNumber", ctx, "vp_1", agent.VoiceProviderAgentID).Return(nil).Once()
	c.mockNumbers.On("SetAssignedAgent", ctx, number.ID, tenantID, &agent.ID).Return(&bound, nil).Once()

	got, err := c.app.AssignAgent(ctx, number.ID, tenantID, &agent.ID)

	require.NoError(t, err)
	require.NotNil(t, got.AssignedAgentID)
	assert.Equal(t, agent.ID, *got.AssignedAgentID)
	c.mockVoice.AssertNumberOfCalls(t, "AssignNumber", 1)
}

// A provider failure must not let the local binding appear to succeed.
func TestAssignAgent_ProviderFailureDoesNotMutate(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned
	agent := eligibleAgent(tenantID)

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	c.mockAgents.On("FindByIDForTenant", ctx, agent.ID, tenantID).Return(agent, nil).Once()
	c.mockVoice.On("AssignNumber", ctx, "vp_1", agent.VoiceProviderAgentID).
		Return(upstreamError(500)).Once()

	got, err := c.app.AssignAgent(ctx, number.ID, tenantID, &agent.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamAssignFailed)
	assert.Nil(t, got)
	c.mockNumbers.AssertNotCalled(t, "SetAssignedAgent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignAgent_IneligibleAgent(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned

	agent := agentdomain.NewAgent(uuid.New(), tenantID, "Unprovisioned")

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	c.mockAgents.On("FindByIDForTenant", ctx, agent.ID, tenantID).Return(agent, nil).Once()

	_, err := c.app.AssignAgent(ctx, number.ID, tenantID, &agent.ID)

	assert.ErrorIs(t, err, domain.ErrAgentNotEligible)
	c.mockVoice.AssertNotCalled(t, "AssignNumber", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignAgent_DeletedAgentIsIneligible(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned

	agent := eligibleAgent(tenantID)
	agent.Status = agentdomain.StatusDeleted

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	c.mockAgents.On("FindByIDForTenant", ctx, agent.ID, tenantID).Return(agent, nil).Once()

	_, err := c.app.AssignAgent(ctx, number.ID, tenantID, &agent.ID)

	assert.ErrorIs(t, err, domain.ErrAgentNotEligible)
}

func TestAssignAgent_LazyImportFailureIsFatal(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()

	number := availableNumber(nil)
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned
	agent := eligibleAgent(tenantID)

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	c.mockAgents.On("FindByIDForTenant", ctx, agent.ID, tenantID).Return(agent, nil).Once()
	c.mockVoice.On("ImportNumber", ctx, number.PhoneNumber, number.ProviderNumberID).
		Return(nil, upstreamError(503)).Once()

	_, err := c.app.AssignAgent(ctx, number.ID, tenantID, &agent.ID)

	assert.ErrorIs(t, err, domain.ErrUpstreamImportFailed)
	c.mockVoice.AssertNotCalled(t, "AssignNumber", mock.Anything, mock.Anything, mock.Anything)
	c.mockNumbers.AssertNotCalled(t, "SetAssignedAgent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Unassignment is best-effort on the provider: local intent always wins.
func TestAssignAgent_UnassignSwallowsProviderFailure(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()
	agentID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned
	number.AssignedAgentID = &agentID

	unbound := *number
	unbound.AssignedAgentID = nil

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	c.mockVoice.On("AssignNumber", ctx, "vp_1", (*string)(nil)).
		Return(upstreamError(503)).Once()
	c.mockNumbers.On("SetAssignedAgent", ctx, number.ID, tenantID, (*uuid.UUID)(nil)).
		Return(&unbound, nil).Once()

	got, err := c.app.AssignAgent(ctx, number.ID, tenantID, nil)

	require.NoError(t, err)
	assert.Nil(t, got.AssignedAgentID)
	c.mockNumbers.AssertExpectations(t)
}

// --- Release ---

// Release always succeeds locally even when the provider unbind call
// fails; the number returns to pool defaults.
func TestRelease_SwallowsProviderFailure(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()
	agentID := uuid.New()
	userID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned
	number.AssignedAgentID = &agentID
	number.AssignedUserID = &userID

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	c.mockVoice.On("AssignNumber", ctx, "vp_1", (*string)(nil)).
		Return(upstreamError(503)).Once()
	c.mockUsers.On("SetAssignedPhoneNumber", ctx, userID, (*uuid.UUID)(nil)).Return(nil).Once()
	c.mockUsers.On("SetAssignedAgent", ctx, userID, (*uuid.UUID)(nil)).Return(nil).Once()
	c.mockNumbers.On("Release", ctx, number.ID, tenantID).Return(nil).Once()

	err := c.app.Release(ctx, number.ID, tenantID)

	require.NoError(t, err)
	c.mockNumbers.AssertExpectations(t)
}

func TestRelease_UnknownNumber(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()
	numberID := uuid.New()

	c.mockNumbers.On("FindByIDForTenant", ctx, numberID, tenantID).
		Return(nil, domain.ErrNotFound).Once()

	err := c.app.Release(ctx, numberID, tenantID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- Delete ---

// A claimed number cannot be deleted.
func TestDelete_ClaimedNumberConflicts(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = uuidPtr(uuid.New())
	number.Status = domain.StatusAssigned

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()

	err := c.app.Delete(ctx, number.ID)

	assert.ErrorIs(t, err, domain.ErrConflict)
	c.mockNumbers.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	c.mockVoice.AssertNotCalled(t, "DeleteNumber", mock.Anything, mock.Anything)
}

func TestDelete_VoiceDeleteIsBestEffort(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	number := availableNumber(strPtr("vp_1"))

	c.mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()
	c.mockVoice.On("DeleteNumber", ctx, "vp_1").Return(upstreamError(404)).Once()
	c.mockNumbers.On("Delete", ctx, number.ID).Return(nil).Once()

	err := c.app.Delete(ctx, number.ID)

	require.NoError(t, err)
	c.mockNumbers.AssertExpectations(t)
}

// --- AssignUser ---

func TestAssignUser_Success(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned

	routed := *number
	routed.AssignedUserID = &userID

	user := identitydomain.NewUser(userID, tenantID, "op@example.com", "x", "Operator", identitydomain.RoleUser)

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	c.mockUsers.On("FindByIDForTenant", ctx, userID, tenantID).Return(user, nil).Once()
	c.mockNumbers.On("SetAssignedUser", ctx, number.ID, tenantID, &userID).Return(&routed, nil).Once()
	c.mockUsers.On("SetAssignedPhoneNumber", ctx, userID, &number.ID).Return(nil).Once()

	got, err := c.app.AssignUser(ctx, number.ID, tenantID, userID, nil)

	require.NoError(t, err)
	require.NotNil(t, got.AssignedUserID)
	assert.Equal(t, userID, *got.AssignedUserID)
}

func TestAssignUser_ForeignUserIsNotFound(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	c.mockUsers.On("FindByIDForTenant", ctx, userID, tenantID).
		Return(nil, identitydomain.ErrNotFound).Once()

	_, err := c.app.AssignUser(ctx, number.ID, tenantID, userID, nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	c.mockNumbers.AssertNotCalled(t, "SetAssignedUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// An agent riding along with the user assignment is mirrored onto the user
// record once the binding went through.
func TestAssignUser_WithAgentRecordsUserRef(t *testing.T) {
	c := setupLifecycleTest(t)
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned

	agent := eligibleAgent(tenantID)

	routed := *number
	routed.AssignedUserID = &userID
	bound := routed
	bound.AssignedAgentID = &agent.ID

	user := identitydomain.NewUser(userID, tenantID, "op@example.com", "x", "Operator", identitydomain.RoleUser)

	c.mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Twice()
	c.mockUsers.On("FindByIDForTenant", ctx, userID, tenantID).Return(user, nil).Once()
	c.mockNumbers.On("SetAssignedUser", ctx, number.ID, tenantID, &userID).Return(&routed, nil).Once()
	c.mockUsers.On("SetAssignedPhoneNumber", ctx, userID, &number.ID).Return(nil).Once()
	c.mockAgents.On("FindByIDForTenant", ctx, agent.ID, tenantID).Return(agent, nil).Once()
	c.mockVoice.On("AssignNumber", ctx, "vp_1", agent.VoiceProviderAgentID).Return(nil).Once()
	c.mockNumbers.On("SetAssignedAgent", ctx, number.ID, tenantID, &agent.ID).Return(&bound, nil).Once()
	c.mockUsers.On("SetAssignedAgent", ctx, userID, &agent.ID).Return(nil).Once()

	got, err := c.app.AssignUser(ctx, number.ID, tenantID, userID, &agent.ID)

	require.NoError(t, err)
	require.NotNil(t, got.AssignedAgentID)
	assert.Equal(t, agent.ID, *got.AssignedAgentID)
	c.mockUsers.AssertExpectations(t)
}

// --- Events ---

func TestClaim_PublishesEvent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockNumbers := new(MockPhoneNumberRepository)
	mockEvents := new(MockEventPublisher)
	app := NewApplication(mockNumbers, new(MockAgentRepository), new(MockUserRepository),
		new(MockTelephonyClient), new(MockVoiceClient), mockEvents, logger)

	ctx := context.Background()
	tenantID := uuid.New()
	number := availableNumber(strPtr("vp_1"))
	claimed := *number
	claimed.TenantID = &tenantID
	claimed.Status = domain.StatusAssigned

	mockNumbers.On("FindByID", ctx, number.ID).Return(number, nil).Once()
	mockNumbers.On("Claim", ctx, number.ID, tenantID, mock.AnythingOfType("time.Time")).
		Return(&claimed, nil).Once()
	mockEvents.On("Publish", ctx, domain.SubjectNumberClaimed, mock.Anything).Return(nil).Once()

	_, err := app.Claim(ctx, number.ID, tenantID, nil)

	require.NoError(t, err)
	mockEvents.AssertExpectations(t)
}

// The released event describes the number back in the pool, not the binding
// it just left.
func TestRelease_EventCarriesPoolState(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockNumbers := new(MockPhoneNumberRepository)
	mockUsers := new(MockUserRepository)
	mockVoice := new(MockVoiceClient)
	mockEvents := new(MockEventPublisher)
	app := NewApplication(mockNumbers, new(MockAgentRepository), mockUsers,
		new(MockTelephonyClient), mockVoice, mockEvents, logger)

	ctx := context.Background()
	tenantID := uuid.New()
	agentID := uuid.New()
	userID := uuid.New()

	number := availableNumber(strPtr("vp_1"))
	number.TenantID = &tenantID
	number.Status = domain.StatusAssigned
	number.AssignedAgentID = &agentID
	number.AssignedUserID = &userID

	var published domain.NumberEvent
	mockNumbers.On("FindByIDForTenant", ctx, number.ID, tenantID).Return(number, nil).Once()
	mockUsers.On("SetAssignedPhoneNumber", ctx, userID, (*uuid.UUID)(nil)).Return(nil).Once()
	mockUsers.On("SetAssignedAgent", ctx, userID, (*uuid.UUID)(nil)).Return(nil).Once()
	mockNumbers.On("Release", ctx, number.ID, tenantID).Return(nil).Once()
	mockEvents.On("Publish", ctx, domain.SubjectNumberReleased, mock.Anything).
		Run(func(args mock.Arguments) {
			require.NoError(t, json.Unmarshal(args.Get(2).([]byte), &published))
		}).Return(nil).Once()

	mockVoice.On("AssignNumber", ctx, "vp_1", (*string)(nil)).Return(nil).Once()

	err := app.Release(ctx, number.ID, tenantID)

	require.NoError(t, err)
	mockEvents.AssertExpectations(t)
	assert.Equal(t, number.ID, published.PhoneNumberID)
	assert.Nil(t, published.TenantID)
	assert.Nil(t, published.AgentID)
}
