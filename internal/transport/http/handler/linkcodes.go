package handler

import (
	"encoding/json"
	"net/http"

	"github.com/prompt-courier/internal/application/linker"
	"github.com/prompt-courier/internal/pkg/validate"
	"github.com/prompt-courier/internal/transport/http/middleware"
)

// IssueLinkCodeRequest optionally carries the client-detected timezone.
type IssueLinkCodeRequest struct {
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

// LinkCodeHandler issues channel-linking codes for the authenticated user.
type LinkCodeHandler struct {
	svc *linker.Service
}

func NewLinkCodeHandler(svc *linker.Service) *LinkCodeHandler {
	return &LinkCodeHandler{svc: svc}
}

func (h *LinkCodeHandler) Issue(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IssueLinkCodeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lc, err := h.svc.IssueCode(r.Context(), claims.UserID, req.Timezone)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, LinkCodeEnvelope{Code: lc.Code, ExpiresAt: lc.ExpiresAt})
}
