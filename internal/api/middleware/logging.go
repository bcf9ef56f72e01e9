package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestLogger attaches l to every request, tags it with a request id and
// writes one access log line per response.
func RequestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			event := hlog.FromRequest(r).Info()
			if status >= http.StatusInternalServerError {
				event = hlog.FromRequest(r).Error()
			}
			event.
				Str("method", r.Method).
				Stringer("url", r.URL).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		})(next)
		h = hlog.RemoteAddrHandler("ip")(h)
		h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
		return hlog.NewHandler(l)(h)
	}
}
