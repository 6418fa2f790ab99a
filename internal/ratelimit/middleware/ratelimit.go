// Package middleware enforces per-client and per-IP request limits.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"agentconsent/internal/ratelimit/metrics"
	"agentconsent/internal/ratelimit/models"
	"agentconsent/pkg/platform/httputil"
	"agentconsent/pkg/platform/privacy"
	"agentconsent/pkg/requestcontext"
)

// Limiter is satisfied by the in-memory and Redis bucket stores.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter Limiter
	limits  map[models.Class]models.Limit
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(limiter Limiter, limits map[models.Class]models.Limit, logger *slog.Logger, m *metrics.Metrics) *Middleware {
	return &Middleware{
		limiter: limiter,
		limits:  limits,
		logger:  logger,
		metrics: m,
	}
}

// RateLimit limits requests in class. Tool calls are keyed by the
// authenticated client and fall back to the client IP; web pages always use
// the IP. Store failures let the request through.
func (m *Middleware) RateLimit(class models.Class) func(http.Handler) http.Handler {
	limit := m.limits[class]
	return func(next http.Handler) http.Handler {
		if !limit.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := models.Key(class, identifier(ctx, class))

			result, err := m.limiter.Allow(ctx, key, limit.Requests, limit.Window)
			if err != nil {
				m.metrics.IncrementStoreErrors()
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"error", err,
					"class", string(class),
					"ip_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
				)
				next.ServeHTTP(w, r)
				return
			}

			m.metrics.ObserveDecision(string(class), result.Allowed)
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", string(class),
					"client_id", requestcontext.ClientID(ctx),
					"retry_after", result.RetryAfter,
				)
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identifier(ctx context.Context, class models.Class) string {
	if class == models.ClassTools {
		if id := requestcontext.ClientID(ctx); id != "" {
			return "client:" + id
		}
	}
	return "ip:" + requestcontext.ClientIP(ctx)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
