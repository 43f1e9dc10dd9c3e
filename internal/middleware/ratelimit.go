package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ulule/limiter/v3"
)

// RateLimitMessage is the plain-text body of every 429 response.
const RateLimitMessage = "Too many requests from this IP, please try again later."

// RateLimit enforces lim per client address, keyed the way lim was built to
// key clients (socket address, or forwarded headers behind a proxy).
//
// If the counter store fails the request is let through and a warning logged.
func RateLimit(lim *limiter.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := lim.GetIPKey(r)

			res, err := lim.Get(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					slog.String("ip", key),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))

			if res.Reached {
				retry := res.Reset - time.Now().Unix()
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(RateLimitMessage))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
