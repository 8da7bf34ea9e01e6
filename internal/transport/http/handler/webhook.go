package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prompt-courier/internal/application/inbound"
)

// WebhookHandler receives Telegram webhook callbacks. Telegram retries on
// non-2xx responses, which would cause duplicate processing, so every decoded
// request is acknowledged regardless of the routing result.
type WebhookHandler struct {
	svc    *inbound.Service
	secret string // X-Telegram-Bot-Api-Secret-Token, empty disables the check
}

func NewWebhookHandler(svc *inbound.Service, secret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid webhook secret")
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		// Unparseable payloads are acknowledged too; there is nothing to retry.
		writeJSON(w, http.StatusOK, AckEnvelope{OK: true})
		return
	}

	// Non-text payloads (stickers, photos, edits) are acknowledged and ignored.
	if update.Message != nil && update.Message.Text != "" && update.Message.Chat != nil {
		chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
		h.svc.Route(r.Context(), chatID, update.Message.Text, time.Now())
	}

	writeJSON(w, http.StatusOK, AckEnvelope{OK: true})
}
