package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "funnel/internal/api/context"
	"funnel/internal/pkg/errors"
	"funnel/internal/platform/auth"
)

type AuthMiddleware struct {
	tokenSvc *auth.TokenService
}

func NewAuthMiddleware(tokenSvc *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing or malformed authorization header", nil)
			return
		}

		claims, err := m.tokenSvc.ValidateToken(token)
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
