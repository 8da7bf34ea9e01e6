package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prompt-courier/internal/application/linker"
	"github.com/prompt-courier/internal/application/promptsource"
	"github.com/prompt-courier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- mocks ---

type mockConfigStore struct{ mock.Mock }

func (m *mockConfigStore) GetByChatID(ctx context.Context, chatID string) (*domain.DeliveryConfig, error) {
	args := m.Called(ctx, chatID)
	if c, _ := args.Get(0).(*domain.DeliveryConfig); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStateStore struct{ mock.Mock }

func (m *mockStateStore) Get(ctx context.Context, userID string) (*domain.DeliveryState, error) {
	args := m.Called(ctx, userID)
	if s, _ := args.Get(0).(*domain.DeliveryState); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSource struct{ mock.Mock }

func (m *mockSource) FetchDue(ctx context.Context, cfg *domain.DeliveryConfig, date string, slot domain.Slot) (*promptsource.Item, error) {
	args := m.Called(ctx, cfg, date, slot)
	if it, _ := args.Get(0).(*promptsource.Item); it != nil {
		return it, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSource) AppendReply(ctx context.Context, cfg *domain.DeliveryConfig, itemID, reply string) error {
	return m.Called(ctx, cfg, itemID, reply).Error(0)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) For(cfg *domain.DeliveryConfig) (promptsource.Source, error) {
	args := m.Called(cfg)
	if s, _ := args.Get(0).(promptsource.Source); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMessenger struct{ mock.Mock }

func (m *mockMessenger) SendTo(ctx context.Context, chatID, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

type mockLinker struct{ mock.Mock }

func (m *mockLinker) Consume(ctx context.Context, text, chatID string, now time.Time) (linker.Result, error) {
	args := m.Called(ctx, text, chatID, now)
	return args.Get(0).(linker.Result), args.Error(1)
}

// --- helpers ---

func linkedConfig() *domain.DeliveryConfig {
	return &domain.DeliveryConfig{
		UserID:  "u1",
		ChatID:  "chat-1",
		Channel: domain.ChannelTelegram,
		Source:  domain.SourceOwned,
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
}

// --- tests ---

func TestRoute_UnknownChat_DefersToLinker(t *testing.T) {
	cfgs := &mockConfigStore{}
	cfgs.On("GetByChatID", mock.Anything, "chat-9").Return(nil, domain.ErrNotFound)

	lk := &mockLinker{}
	lk.On("Consume", mock.Anything, "123456", "chat-9", fixedNow()).Return(linker.ResultLinked, nil)

	svc := NewService(cfgs, nil, nil, nil, lk)
	res := svc.Route(context.Background(), "chat-9", "123456", fixedNow())

	assert.Equal(t, ResultLinked, res)
	lk.AssertExpectations(t)
}

func TestRoute_UnknownChat_LinkerHelps(t *testing.T) {
	cfgs := &mockConfigStore{}
	cfgs.On("GetByChatID", mock.Anything, "chat-9").Return(nil, domain.ErrNotFound)

	lk := &mockLinker{}
	lk.On("Consume", mock.Anything, "999999", "chat-9", mock.Anything).Return(linker.ResultHelped, nil)

	svc := NewService(cfgs, nil, nil, nil, lk)
	res := svc.Route(context.Background(), "chat-9", "999999", fixedNow())

	assert.Equal(t, ResultHelped, res)
}

func TestRoute_UnknownChat_LinkerError_Ignored(t *testing.T) {
	cfgs := &mockConfigStore{}
	cfgs.On("GetByChatID", mock.Anything, "chat-9").Return(nil, domain.ErrNotFound)

	lk := &mockLinker{}
	lk.On("Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(linker.ResultIgnored, errors.New("dynamo down"))

	svc := NewService(cfgs, nil, nil, nil, lk)
	res := svc.Route(context.Background(), "chat-9", "hello", fixedNow())

	assert.Equal(t, ResultIgnored, res)
}

func TestRoute_ConfigLookupError_Ignored(t *testing.T) {
	cfgs := &mockConfigStore{}
	cfgs.On("GetByChatID", mock.Anything, "chat-1").Return(nil, errors.New("dynamo down"))

	svc := NewService(cfgs, nil, nil, nil, &mockLinker{})
	res := svc.Route(context.Background(), "chat-1", "my reply", fixedNow())

	assert.Equal(t, ResultIgnored, res)
}

func TestRoute_NoDeliveryYet_NotifiesAndReportsNoTarget(t *testing.T) {
	cfgs := &mockConfigStore{}
	cfgs.On("GetByChatID", mock.Anything, "chat-1").Return(linkedConfig(), nil)

	ss := &mockStateStore{}
	ss.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.MatchedBy(func(s string) bool {
		return s != ""
	})).Return(nil)

	svc := NewService(cfgs, ss, nil, msgr, &mockLinker{})
	res := svc.Route(context.Background(), "chat-1", "my reply", fixedNow())

	assert.Equal(t, ResultNoTarget, res)
	msgr.AssertExpectations(t)
}

func TestRoute_AppendsReplyToLastDeliveredItem(t *testing.T) {
	cfg := linkedConfig()
	cfgs := &mockConfigStore{}
	cfgs.On("GetByChatID", mock.Anything, "chat-1").Return(cfg, nil)

	ss := &mockStateStore{}
	ss.On("Get", mock.Anything, "u1").Return(&domain.DeliveryState{
		UserID:     "u1",
		LastItemID: "p1",
	}, nil)

	src := &mockSource{}
	src.On("AppendReply", mock.Anything, cfg, "p1", "Slept well, feeling good.").Return(nil)
	res := &mockResolver{}
	res.On("For", cfg).Return(src, nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", "Reply saved.").Return(nil)

	svc := NewService(cfgs, ss, res, msgr, &mockLinker{})
	out := svc.Route(context.Background(), "chat-1", "Slept well, feeling good.", fixedNow())

	assert.Equal(t, ResultReplySaved, out)
	src.AssertExpectations(t)
	msgr.AssertExpectations(t)
}

func TestRoute_AppendFails_NotifiesUser(t *testing.T) {
	cfg := linkedConfig()
	cfgs := &mockConfigStore{}
	cfgs.On("GetByChatID", mock.Anything, "chat-1").Return(cfg, nil)

	ss := &mockStateStore{}
	ss.On("Get", mock.Anything, "u1").Return(&domain.DeliveryState{UserID: "u1", LastItemID: "p1"}, nil)

	src := &mockSource{}
	src.On("AppendReply", mock.Anything, cfg, "p1", "my reply").Return(errors.New("notion: 503"))
	res := &mockResolver{}
	res.On("For", cfg).Return(src, nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.Anything).Return(nil)

	svc := NewService(cfgs, ss, res, msgr, &mockLinker{})
	out := svc.Route(context.Background(), "chat-1", "my reply", fixedNow())

	assert.Equal(t, ResultReplyFailed, out)
}

func TestRoute_SourceResolutionFails_NotifiesUser(t *testing.T) {
	cfg := linkedConfig()
	cfg.Source = domain.SourceExternal
	cfgs := &mockConfigStore{}
	cfgs.On("GetByChatID", mock.Anything, "chat-1").Return(cfg, nil)

	ss := &mockStateStore{}
	ss.On("Get", mock.Anything, "u1").Return(&domain.DeliveryState{UserID: "u1", LastItemID: "p1"}, nil)

	res := &mockResolver{}
	res.On("For", cfg).Return(nil, domain.ErrBadRequest)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.Anything).Return(nil)

	svc := NewService(cfgs, ss, res, msgr, &mockLinker{})
	out := svc.Route(context.Background(), "chat-1", "my reply", fixedNow())

	assert.Equal(t, ResultReplyFailed, out)
}

func TestRoute_ConfirmationSendFailure_StillSaved(t *testing.T) {
	cfg := linkedConfig()
	cfgs := &mockConfigStore{}
	cfgs.On("GetByChatID", mock.Anything, "chat-1").Return(cfg, nil)

	ss := &mockStateStore{}
	ss.On("Get", mock.Anything, "u1").Return(&domain.DeliveryState{UserID: "u1", LastItemID: "p1"}, nil)

	src := &mockSource{}
	src.On("AppendReply", mock.Anything, cfg, "p1", "my reply").Return(nil)
	res := &mockResolver{}
	res.On("For", cfg).Return(src, nil)

	msgr := &mockMessenger{}
	msgr.On("SendTo", mock.Anything, "chat-1", mock.Anything).Return(errors.New("bot api: 502"))

	svc := NewService(cfgs, ss, res, msgr, &mockLinker{})
	out := svc.Route(context.Background(), "chat-1", "my reply", fixedNow())

	assert.Equal(t, ResultReplySaved, out)
}
