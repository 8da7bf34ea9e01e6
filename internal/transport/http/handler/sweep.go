package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prompt-courier/internal/application/delivery"
	"github.com/prompt-courier/internal/domain"
)

// SweepRequest is the external trigger payload.
type SweepRequest struct {
	Slot string `json:"slot" validate:"required"`
}

// SweepEnvelope is the per-user outcome report returned to the trigger.
type SweepEnvelope struct {
	Slot     string                 `json:"slot"`
	Outcomes []delivery.UserOutcome `json:"outcomes"`
}

// SweepHandler exposes the delivery sweep to the external periodic invoker.
type SweepHandler struct {
	svc          *delivery.Service
	triggerToken string
}

func NewSweepHandler(svc *delivery.Service, triggerToken string) *SweepHandler {
	return &SweepHandler{svc: svc, triggerToken: triggerToken}
}

// Trigger runs one sweep. Requests lacking a recognized slot type are
// rejected before any work happens.
func (h *SweepHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.triggerToken != "" {
		got := r.Header.Get("X-Trigger-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.triggerToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid trigger token")
			return
		}
	}

	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	slot, err := domain.ParseSlot(req.Slot)
	if err != nil {
		httpError(w, err)
		return
	}

	outcomes, err := h.svc.Sweep(r.Context(), slot, time.Now())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepEnvelope{Slot: string(slot), Outcomes: outcomes})
}
