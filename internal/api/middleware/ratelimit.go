package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimitBySession throttles next per cart session. Requests without a
// session pass through, as does everything while the limiter is failing.
func RateLimitBySession(limiter Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := SessionIDFromContext(r.Context())
		if sessionID == "" {
			next(w, r)
			return
		}

		logger := LoggerFromContext(r.Context())

		allowed, retryAfter, err := limiter.Allow(r.Context(), sessionID)
		if err != nil {
			logger.Error("Rate limiter unavailable", slog.String("error", err.Error()))
			next(w, r)
			return
		}

		if !allowed {
			seconds := int64(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}

			metrics.RecordRateLimited(r.Pattern)
			w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
			response.Error(w, errors.TooManyRequestsError(time.Duration(seconds)*time.Second))
			return
		}

		next(w, r)
	}
}
