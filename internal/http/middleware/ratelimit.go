package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/medira/clinic-server/internal/httputil"
)

// IPRateLimitConfig holds per-IP rate limiting configuration for a
// route group. This is a coarse outer guard; the identity-keyed
// limiters inside the auth handlers are the real throttle.
type IPRateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// IPRateLimit creates an IP-based rate limiter middleware with logging.
func IPRateLimit(cfg IPRateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("ip rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}
