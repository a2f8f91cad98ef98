package middleware

import (
	"net/http"

	"github.com/tailorline/settlement-api/pkg/logger"
	"github.com/tailorline/settlement-api/pkg/ratelimit"
)

// ActorRateLimiterMiddleware applies per-actor rate limiting to settlement
// endpoints. Requests without an actor header fall through; the handler
// rejects those itself.
type ActorRateLimiterMiddleware struct {
	limiter *ratelimit.ActorRateLimiter
	logger  logger.Logger
}

// ActorRateLimiterConfig configures the rate limiter middleware
type ActorRateLimiterConfig struct {
	MaxTokens  float64
	RefillRate float64
}

// NewActorRateLimiterMiddleware creates a new actor rate limiter middleware
func NewActorRateLimiterMiddleware(cfg *ActorRateLimiterConfig, logger logger.Logger) *ActorRateLimiterMiddleware {
	return &ActorRateLimiterMiddleware{
		limiter: ratelimit.NewActorRateLimiter(cfg.MaxTokens, cfg.RefillRate),
		logger:  logger,
	}
}

// Middleware returns a middleware function
func (m *ActorRateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get("X-Actor-ID")

		if actorID != "" && !m.limiter.Allow(actorID) {
			m.logger.Warn("Actor rate limit exceeded",
				"actorID", actorID,
				"method", r.Method,
				"path", r.URL.Path)

			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Rate limit exceeded. Please try again later."))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Stop releases the limiter's background resources
func (m *ActorRateLimiterMiddleware) Stop() {
	m.limiter.Stop()
}
