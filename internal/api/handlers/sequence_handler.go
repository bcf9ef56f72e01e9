package handlers

import (
	"encoding/json"
	"net/http"

	apiContext "funnel/internal/api/context"
	"funnel/internal/engine/triggers"
	"funnel/internal/pkg/errors"
	"funnel/internal/platform/auth"
)

type SequenceHandler struct {
	svc *triggers.Service
}

func NewSequenceHandler(svc *triggers.Service) *SequenceHandler {
	return &SequenceHandler{svc: svc}
}

func (h *SequenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	seq, err := h.svc.CreateSequence(r.Context(), claims.CompanyID, req.Name, req.Category)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	errors.WriteJSON(w, http.StatusCreated, seq)
}

func (h *SequenceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	sequences, err := h.svc.ListSequences(r.Context(), claims.CompanyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, map[string]interface{}{"sequences": sequences})
}
