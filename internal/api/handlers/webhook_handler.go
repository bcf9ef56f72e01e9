package handlers

import (
	stderrors "errors"
	"io"
	"net/http"

	"funnel/internal/engine/webhooks"
	"funnel/internal/pkg/errors"
)

// ProviderIDHeader carries the provider's delivery id.
const ProviderIDHeader = "webhook-id"

type WebhookHandler struct {
	intake          *webhooks.Intake
	signatureHeader string
	maxBodyBytes    int64
}

func NewWebhookHandler(intake *webhooks.Intake, signatureHeader string, maxBodyBytes int64) *WebhookHandler {
	if signatureHeader == "" {
		signatureHeader = "whop-signature"
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &WebhookHandler{intake: intake, signatureHeader: signatureHeader, maxBodyBytes: maxBodyBytes}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput, "Payload too large", nil)
			return
		}
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Could not read body", nil)
		return
	}

	receipt, err := h.intake.Receive(r.Context(), webhooks.Delivery{
		Body:       body,
		Signature:  r.Header.Get(h.signatureHeader),
		ProviderID: r.Header.Get(ProviderIDHeader),
	})
	switch {
	case stderrors.Is(err, webhooks.ErrInvalidSignature):
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "invalid signature", nil)
		return
	case stderrors.Is(err, webhooks.ErrMalformedPayload):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "malformed JSON payload", nil)
		return
	case err != nil:
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "failed to record event", nil)
		return
	}

	resp := map[string]interface{}{"ok": true}
	if receipt.Duplicate {
		resp["duplicate"] = true
	}
	errors.WriteJSON(w, http.StatusOK, resp)
}
