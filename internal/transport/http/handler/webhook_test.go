package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prompt-courier/internal/application/inbound"
	"github.com/prompt-courier/internal/application/linker"
	"github.com/prompt-courier/internal/application/promptsource"
	"github.com/prompt-courier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stubs ---

type stubConfigStore struct{}

func (stubConfigStore) GetByChatID(context.Context, string) (*domain.DeliveryConfig, error) {
	return nil, domain.ErrNotFound
}

type stubStateStore struct{}

func (stubStateStore) Get(context.Context, string) (*domain.DeliveryState, error) {
	return nil, domain.ErrNotFound
}

type stubResolver struct{}

func (stubResolver) For(*domain.DeliveryConfig) (promptsource.Source, error) {
	return nil, domain.ErrBadRequest
}

type stubMessenger struct{}

func (stubMessenger) SendTo(context.Context, string, string) error { return nil }

type recordingLinker struct {
	gotText   string
	gotChatID string
}

func (l *recordingLinker) Consume(_ context.Context, text, chatID string, _ time.Time) (linker.Result, error) {
	l.gotText = text
	l.gotChatID = chatID
	return linker.ResultIgnored, nil
}

func newInboundService(lk inbound.Linker) *inbound.Service {
	return inbound.NewService(stubConfigStore{}, stubStateStore{}, stubResolver{}, stubMessenger{}, lk)
}

func postJSON(t *testing.T, body interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/v1/telegram/webhook", bytes.NewReader(b))
}

// --- tests ---

func TestWebhook_InvalidSecret_Rejected(t *testing.T) {
	h := NewWebhookHandler(newInboundService(&recordingLinker{}), "s3cret")

	req := postJSON(t, map[string]interface{}{})
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	rr := httptest.NewRecorder()
	h.Receive(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhook_GarbageBody_StillAcks(t *testing.T) {
	h := NewWebhookHandler(newInboundService(&recordingLinker{}), "")

	req := httptest.NewRequest(http.MethodPost, "/v1/telegram/webhook", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.Receive(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var ack AckEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ack))
	assert.True(t, ack.OK)
}

func TestWebhook_NonTextUpdate_AckedAndIgnored(t *testing.T) {
	lk := &recordingLinker{}
	h := NewWebhookHandler(newInboundService(lk), "")

	req := postJSON(t, map[string]interface{}{
		"update_id": 7,
		"message": map[string]interface{}{
			"message_id": 1,
			"chat":       map[string]interface{}{"id": 42},
			"sticker":    map[string]interface{}{"file_id": "abc"},
		},
	})
	rr := httptest.NewRecorder()
	h.Receive(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, lk.gotChatID)
}

func TestWebhook_TextMessage_RoutedAndAcked(t *testing.T) {
	lk := &recordingLinker{}
	h := NewWebhookHandler(newInboundService(lk), "")

	req := postJSON(t, map[string]interface{}{
		"update_id": 8,
		"message": map[string]interface{}{
			"message_id": 2,
			"chat":       map[string]interface{}{"id": 42},
			"text":       "123456",
		},
	})
	rr := httptest.NewRecorder()
	h.Receive(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42", lk.gotChatID)
	assert.Equal(t, "123456", lk.gotText)
}

func TestWebhook_ValidSecret_Accepted(t *testing.T) {
	h := NewWebhookHandler(newInboundService(&recordingLinker{}), "s3cret")

	req := postJSON(t, map[string]interface{}{"update_id": 9})
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
	rr := httptest.NewRecorder()
	h.Receive(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
