package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apiContext "funnel/internal/api/context"
	"funnel/internal/platform/auth"
	"funnel/internal/platform/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "secret", Issuer: "funnel", AccessTokenTTL: time.Minute})
	mw := NewAuthMiddleware(tokens)

	valid, err := tokens.GenerateAccessToken("user_1", "biz_1", "owner")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			mw.Handle(func(w http.ResponseWriter, r *http.Request) {
				claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
				assert.Equal(t, "biz_1", claims.CompanyID)
				w.WriteHeader(http.StatusOK)
			})(rr, req)

			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestInvokerMiddleware(t *testing.T) {
	hash, err := auth.HashInvokerKey("cron-key")
	require.NoError(t, err)

	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	tests := []struct {
		name    string
		hash    string
		headers map[string]string
		want    int
	}{
		{"open when unconfigured", "", nil, http.StatusOK},
		{"bearer key", hash, map[string]string{"Authorization": "Bearer cron-key"}, http.StatusOK},
		{"header key", hash, map[string]string{"X-Invoker-Key": "cron-key"}, http.StatusOK},
		{"wrong key", hash, map[string]string{"X-Invoker-Key": "nope"}, http.StatusUnauthorized},
		{"no key", hash, nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/run", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			NewInvokerMiddleware(tt.hash).Handle(ok)(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	h := RequestLogger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"url":"/healthz"`)
	assert.Contains(t, buf.String(), `"req_id":`)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}
