package middleware

import (
	"net/http"

	"funnel/internal/pkg/errors"
	"funnel/internal/platform/auth"
)

// InvokerMiddleware guards endpoints called by the external scheduler. The
// key is presented as a bearer token or in X-Invoker-Key. With no hash
// configured every request passes.
type InvokerMiddleware struct {
	keyHash string
}

func NewInvokerMiddleware(keyHash string) *InvokerMiddleware {
	return &InvokerMiddleware{keyHash: keyHash}
}

func (m *InvokerMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.keyHash == "" {
			next(w, r)
			return
		}

		key := r.Header.Get("X-Invoker-Key")
		if key == "" {
			key, _ = bearerToken(r)
		}

		if err := auth.CheckInvokerKey(m.keyHash, key); err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid invoker key", nil)
			return
		}
		next(w, r)
	}
}
