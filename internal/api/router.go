package api

import (
	"context"
	"net/http"

	apiContext "funnel/internal/api/context"
	"funnel/internal/api/handlers"
	"funnel/internal/api/middleware"
	"funnel/internal/pkg/errors"
	"funnel/internal/platform/auth"

	"github.com/julienschmidt/httprouter"
)

type Dependencies struct {
	WebhookHandler    *handlers.WebhookHandler
	JobsHandler       *handlers.JobsHandler
	TriggerHandler    *handlers.TriggerHandler
	SequenceHandler   *handlers.SequenceHandler
	HealthHandler     *handlers.HealthHandler
	MetricsHandler    *handlers.MetricsHandler
	AuthMiddleware    *middleware.AuthMiddleware
	InvokerMiddleware *middleware.InvokerMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// Platform webhooks authenticate by signature, not by token.
	router.POST("/api/v1/webhooks/whop", wrap(deps.WebhookHandler.Receive))

	// External scheduler
	router.POST("/api/v1/jobs/run", chain(deps.JobsHandler.Run, deps.InvokerMiddleware.Handle))

	authMid := deps.AuthMiddleware

	// Sequence configuration
	router.GET("/api/v1/sequences",
		chain(deps.SequenceHandler.List, authMid.Handle))
	router.POST("/api/v1/sequences",
		chain(deps.SequenceHandler.Create, authMid.Handle, requireRole("admin", "owner")))
	router.GET("/api/v1/sequences/:sequence_id/trigger",
		chain(deps.TriggerHandler.Get, authMid.Handle))
	router.PUT("/api/v1/sequences/:sequence_id/trigger",
		chain(deps.TriggerHandler.Put, authMid.Handle, requireRole("admin", "owner")))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims)

			allowed := false
			for _, role := range roles {
				if ok && claims.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
