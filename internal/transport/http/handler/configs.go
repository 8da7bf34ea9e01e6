package handler

import (
	"encoding/json"
	"net/http"

	"github.com/prompt-courier/internal/domain"
	"github.com/prompt-courier/internal/infrastructure/dynamo"
	"github.com/prompt-courier/internal/pkg/validate"
	"github.com/prompt-courier/internal/transport/http/middleware"
)

// ConfigHandler exposes the authenticated user's delivery config.
type ConfigHandler struct {
	repo *dynamo.ConfigRepo
}

func NewConfigHandler(repo *dynamo.ConfigRepo) *ConfigHandler {
	return &ConfigHandler{repo: repo}
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	cfg, err := h.repo.Get(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.UpdateDeliveryConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := configUpdates(req)
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if err := h.repo.Update(r.Context(), claims.UserID, updates); err != nil {
		httpError(w, err)
		return
	}

	cfg, err := h.repo.Get(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func configUpdates(req domain.UpdateDeliveryConfigRequest) map[string]interface{} {
	updates := make(map[string]interface{})
	if req.Timezone != nil {
		updates["timezone"] = *req.Timezone
	}
	if req.MorningAt != nil {
		updates["morning_at"] = *req.MorningAt
	}
	if req.EveningAt != nil {
		updates["evening_at"] = *req.EveningAt
	}
	if req.Channel != nil {
		updates["channel"] = *req.Channel
	}
	if req.Source != nil {
		updates["source"] = *req.Source
	}
	if req.NotionToken != nil {
		updates["notion_token"] = *req.NotionToken
	}
	if req.NotionDatabaseID != nil {
		updates["notion_database_id"] = *req.NotionDatabaseID
	}
	if req.Enable != nil {
		updates["enable"] = *req.Enable
	}
	return updates
}
