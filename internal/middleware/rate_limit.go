package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/projectflow/loginguard/pkg/http"
	"github.com/projectflow/loginguard/pkg/ratelimit"
)

// RateLimitConfig holds per-IP request throttling configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// RateLimitByIP throttles requests per client IP using a fixed per-minute budget
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
		}),
	)
}

// AttemptLimitConfig configures the sliding window limiter on the authentication flow
type AttemptLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
	IPConfig    *pkghttp.IPConfig
	Now         func() time.Time
}

// RateLimitAttempts admits at most MaxAttempts requests per client IP in any Window.
// Rejected requests are not counted against the caller.
func RateLimitAttempts(limiter *ratelimit.Limiter, config AttemptLimitConfig) func(next http.Handler) http.Handler {
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + pkghttp.ExtractClientIP(r, config.IPConfig)
			result := limiter.Attempt(key, config.MaxAttempts, config.Window)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.MaxAttempts))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

			if !result.Success {
				retryAfter := math.Ceil(result.ResetTime.Sub(now()).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(max(1, int(retryAfter))))
				pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
