package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	apiContext "funnel/internal/api/context"
	"funnel/internal/engine/triggers"
	"funnel/internal/pkg/errors"
	"funnel/internal/platform/auth"

	"github.com/julienschmidt/httprouter"
)

type TriggerHandler struct {
	svc *triggers.Service
}

func NewTriggerHandler(svc *triggers.Service) *TriggerHandler {
	return &TriggerHandler{svc: svc}
}

func (h *TriggerHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	trigger, err := h.svc.GetTrigger(r.Context(), claims.CompanyID, params.ByName("sequence_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, map[string]interface{}{"trigger": trigger})
}

func (h *TriggerHandler) Put(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	var req triggers.TriggerInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	trigger, err := h.svc.PutTrigger(r.Context(), claims.CompanyID, params.ByName("sequence_id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, map[string]interface{}{"trigger": trigger})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, triggers.ErrInvalidTrigger), stderrors.Is(err, triggers.ErrInvalidSequence):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
	case stderrors.Is(err, triggers.ErrSequenceNotFound):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Sequence not found", nil)
	case stderrors.Is(err, triggers.ErrForbidden):
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Sequence belongs to another company", nil)
	default:
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal error", nil)
	}
}
