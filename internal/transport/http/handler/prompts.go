package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prompt-courier/internal/domain"
	"github.com/prompt-courier/internal/infrastructure/dynamo"
	"github.com/prompt-courier/internal/pkg/id"
	"github.com/prompt-courier/internal/pkg/validate"
	"github.com/prompt-courier/internal/transport/http/middleware"
)

// PromptHandler ingests owned prompts for the authenticated user. This is the
// write path the upstream prompt generator uses; prompts are then picked up
// by the scheduler on their delivery day.
type PromptHandler struct {
	repo *dynamo.PromptRepo
}

func NewPromptHandler(repo *dynamo.PromptRepo) *PromptHandler {
	return &PromptHandler{repo: repo}
}

func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.CreatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	p := &domain.Prompt{
		UserID:    claims.UserID,
		DateSlot:  domain.DateSlotKey(req.Date, domain.Slot(req.Slot)),
		PromptID:  id.New(),
		Topic:     req.Topic,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.Put(r.Context(), p); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
