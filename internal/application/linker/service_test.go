package linker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prompt-courier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Put(ctx context.Context, lc *domain.LinkCode) error {
	return m.Called(ctx, lc).Error(0)
}
func (m *mockCodeStore) GetByCode(ctx context.Context, codeStr string) (*domain.LinkCode, error) {
	args := m.Called(ctx, codeStr)
	if lc, _ := args.Get(0).(*domain.LinkCode); lc != nil {
		return lc, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) LatestPending(ctx context.Context, now time.Time) (*domain.LinkCode, error) {
	args := m.Called(ctx, now)
	if lc, _ := args.Get(0).(*domain.LinkCode); lc != nil {
		return lc, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) Consume(ctx context.Context, codeID, chatID string, now time.Time) error {
	return m.Called(ctx, codeID, chatID, now).Error(0)
}

type mockConfigStore struct{ mock.Mock }

func (m *mockConfigStore) Get(ctx context.Context, userID string) (*domain.DeliveryConfig, error) {
	args := m.Called(ctx, userID)
	if c, _ := args.Get(0).(*domain.DeliveryConfig); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConfigStore) Put(ctx context.Context, cfg *domain.DeliveryConfig) error {
	return m.Called(ctx, cfg).Error(0)
}
func (m *mockConfigStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockPromptStore struct{ mock.Mock }

func (m *mockPromptStore) HasAny(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type mockMessenger struct{ mock.Mock }

func (m *mockMessenger) SendTo(ctx context.Context, chatID, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

// --- helpers ---

var testDefaults = Defaults{Timezone: "UTC", MorningAt: "08:00", EveningAt: "20:00"}

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func pendingCode(now time.Time) *domain.LinkCode {
	return &domain.LinkCode{
		CodeID:    "c1",
		UserID:    "u1",
		Code:      "123456",
		Timezone:  "Europe/Berlin",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute).Unix(),
	}
}

// --- IssueCode tests ---

func TestIssueCode_HappyPath(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("Put", mock.Anything, mock.AnythingOfType("*domain.LinkCode")).Return(nil)

	svc := NewService(cs, nil, nil, nil, testDefaults)
	lc, err := svc.IssueCode(context.Background(), "u1", "Europe/Berlin")

	require.NoError(t, err)
	assert.Len(t, lc.Code, 6)
	assert.Equal(t, "u1", lc.UserID)
	assert.Equal(t, "Europe/Berlin", lc.Timezone)
	assert.NotEmpty(t, lc.CodeID)
	assert.Greater(t, lc.ExpiresAt, time.Now().Unix())
	cs.AssertExpectations(t)
}

func TestIssueCode_StoreError(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	svc := NewService(cs, nil, nil, nil, testDefaults)
	_, err := svc.IssueCode(context.Background(), "u1", "")
	require.Error(t, err)
}

// --- Consume: code path ---

func TestConsume_ValidCode_FirstLink(t *testing.T) {
	now := fixedNow()
	lc := pendingCode(now)

	cs := &mockCodeStore{}
	cs.On("GetByCode", mock.Anything, "123456").Return(lc, nil)
	cs.On("Consume", mock.Anything, "c1", "chat-1", now).Return(nil)

	cfgs := &mockConfigStore{}
	cfgs.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	cfgs.On("Put", mock.Anything, mock.MatchedBy(func(c *domain.DeliveryConfig) bool {
		return c.UserID == "u1" &&
			c.ChatID == "chat-1" &&
			c.Channel == domain.ChannelTelegram &&
			c.Timezone == "Europe/Berlin" &&
			c.MorningAt == "08:00" &&
			c.Source == domain.SourceOwned
	})).Return(nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.AnythingOfType("string")).Return(nil)

	svc := NewService(cs, cfgs, &mockPromptStore{}, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "123456", "chat-1", now)

	require.NoError(t, err)
	assert.Equal(t, ResultLinked, res)
	cs.AssertExpectations(t)
	cfgs.AssertExpectations(t)
}

func TestConsume_CodeEmbeddedInSentence(t *testing.T) {
	now := fixedNow()
	lc := pendingCode(now)

	cs := &mockCodeStore{}
	cs.On("GetByCode", mock.Anything, "123456").Return(lc, nil)
	cs.On("Consume", mock.Anything, "c1", "chat-1", now).Return(nil)

	cfgs := &mockConfigStore{}
	cfgs.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	cfgs.On("Put", mock.Anything, mock.Anything).Return(nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.Anything).Return(nil)

	svc := NewService(cs, cfgs, &mockPromptStore{}, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "my code is 123456 thanks", "chat-1", now)

	require.NoError(t, err)
	assert.Equal(t, ResultLinked, res)
}

func TestConsume_UnknownCode_Helps(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("GetByCode", mock.Anything, "999999").Return(nil, domain.ErrNotFound)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.MatchedBy(func(s string) bool {
		return s != ""
	})).Return(nil)

	svc := NewService(cs, nil, nil, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "999999", "chat-1", fixedNow())

	require.NoError(t, err)
	assert.Equal(t, ResultHelped, res)
	msgr.AssertExpectations(t)
}

func TestConsume_ExpiredCode_Helps(t *testing.T) {
	now := fixedNow()
	lc := pendingCode(now)
	lc.ExpiresAt = now.Add(-time.Minute).Unix()

	cs := &mockCodeStore{}
	cs.On("GetByCode", mock.Anything, "123456").Return(lc, nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.Anything).Return(nil)

	svc := NewService(cs, nil, nil, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "123456", "chat-1", now)

	require.NoError(t, err)
	assert.Equal(t, ResultHelped, res)
	cs.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConsume_RaceLost_Helps(t *testing.T) {
	now := fixedNow()
	lc := pendingCode(now)

	cs := &mockCodeStore{}
	cs.On("GetByCode", mock.Anything, "123456").Return(lc, nil)
	cs.On("Consume", mock.Anything, "c1", "chat-1", now).Return(domain.ErrConflict)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.Anything).Return(nil)

	svc := NewService(cs, nil, nil, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "123456", "chat-1", now)

	require.NoError(t, err)
	assert.Equal(t, ResultHelped, res)
}

// --- Consume: greeting fallback ---

func TestConsume_Greeting_BindsLatestPending(t *testing.T) {
	now := fixedNow()
	lc := pendingCode(now)

	cs := &mockCodeStore{}
	cs.On("LatestPending", mock.Anything, now).Return(lc, nil)
	cs.On("Consume", mock.Anything, "c1", "chat-1", now).Return(nil)

	cfgs := &mockConfigStore{}
	cfgs.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	cfgs.On("Put", mock.Anything, mock.Anything).Return(nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.Anything).Return(nil)

	svc := NewService(cs, cfgs, &mockPromptStore{}, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "Hello!", "chat-1", now)

	require.NoError(t, err)
	assert.Equal(t, ResultLinked, res)
	cs.AssertNotCalled(t, "GetByCode", mock.Anything, mock.Anything)
}

func TestConsume_Greeting_NothingPending_Helps(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("LatestPending", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.Anything).Return(nil)

	svc := NewService(cs, nil, nil, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "hey there", "chat-1", fixedNow())

	require.NoError(t, err)
	assert.Equal(t, ResultHelped, res)
}

func TestConsume_UnrelatedText_Ignored(t *testing.T) {
	svc := NewService(&mockCodeStore{}, nil, nil, &mockMessenger{}, testDefaults)
	res, err := svc.Consume(context.Background(), "what is the weather like", "chat-1", fixedNow())

	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, res)
}

func TestConsume_ShortDigits_NotACode(t *testing.T) {
	svc := NewService(&mockCodeStore{}, nil, nil, &mockMessenger{}, testDefaults)
	res, err := svc.Consume(context.Background(), "1234", "chat-1", fixedNow())

	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, res)
}

// --- bootstrap on re-link ---

func TestConsume_Relink_UpdatesExistingConfig(t *testing.T) {
	now := fixedNow()
	lc := pendingCode(now)

	cs := &mockCodeStore{}
	cs.On("GetByCode", mock.Anything, "123456").Return(lc, nil)
	cs.On("Consume", mock.Anything, "c1", "chat-2", now).Return(nil)

	cfgs := &mockConfigStore{}
	cfgs.On("Get", mock.Anything, "u1").Return(&domain.DeliveryConfig{UserID: "u1", ChatID: "chat-old"}, nil)
	cfgs.On("Update", mock.Anything, "u1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["chat_id"] == "chat-2"
	})).Return(nil)

	ps := &mockPromptStore{}
	ps.On("HasAny", mock.Anything, "u1").Return(false, nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-2", mock.Anything).Return(nil)

	svc := NewService(cs, cfgs, ps, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "123456", "chat-2", now)

	require.NoError(t, err)
	assert.Equal(t, ResultLinked, res)
	cfgs.AssertExpectations(t)
}

func TestConsume_Relink_WithOwnedContent_Reactivates(t *testing.T) {
	now := fixedNow()
	lc := pendingCode(now)

	cs := &mockCodeStore{}
	cs.On("GetByCode", mock.Anything, "123456").Return(lc, nil)
	cs.On("Consume", mock.Anything, "c1", "chat-2", now).Return(nil)

	cfgs := &mockConfigStore{}
	cfgs.On("Get", mock.Anything, "u1").Return(&domain.DeliveryConfig{UserID: "u1", Enable: 0}, nil)
	cfgs.On("Update", mock.Anything, "u1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["enable"] == 1 && u["source"] == domain.SourceOwned
	})).Return(nil)

	ps := &mockPromptStore{}
	ps.On("HasAny", mock.Anything, "u1").Return(true, nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-2", mock.Anything).Return(nil)

	svc := NewService(cs, cfgs, ps, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "123456", "chat-2", now)

	require.NoError(t, err)
	assert.Equal(t, ResultLinked, res)
	cfgs.AssertExpectations(t)
}

func TestConsume_ConfirmationSendFailure_StillLinked(t *testing.T) {
	now := fixedNow()
	lc := pendingCode(now)

	cs := &mockCodeStore{}
	cs.On("GetByCode", mock.Anything, "123456").Return(lc, nil)
	cs.On("Consume", mock.Anything, "c1", "chat-1", now).Return(nil)

	cfgs := &mockConfigStore{}
	cfgs.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	cfgs.On("Put", mock.Anything, mock.Anything).Return(nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.Anything).Return(errors.New("bot api: 502"))

	svc := NewService(cs, cfgs, &mockPromptStore{}, msgr, testDefaults)
	res, err := svc.Consume(context.Background(), "123456", "chat-1", now)

	require.NoError(t, err)
	assert.Equal(t, ResultLinked, res)
}
