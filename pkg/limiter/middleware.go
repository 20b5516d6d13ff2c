package limiter

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// KeyFunc extracts the client key from a request.
type KeyFunc func(r *http.Request) string

// Options configures Middleware.
type Options struct {
	Store  *Store
	Stats  StatsStore
	KeyFn  KeyFunc
	Logger *slog.Logger

	// KeyHeader is consulted by the default KeyFn before the remote address.
	KeyHeader string

	// Reject writes the rejection. Defaults to a plain 429.
	Reject func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)
}

// HeaderOrIP keys requests by header when present and by remote host otherwise.
func HeaderOrIP(header string) KeyFunc {
	return func(r *http.Request) string {
		if header != "" {
			if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
				return v
			}
		}
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware rejects requests from clients whose bucket is empty.
// Rejections carry a Retry-After header in whole seconds.
func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = HeaderOrIP(opts.KeyHeader)
	}
	if opts.Reject == nil {
		opts.Reject = func(w http.ResponseWriter, _ *http.Request, _ time.Duration) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			allowed, wait := opts.Store.Allow(key)

			if opts.Stats != nil {
				ev := Event{Key: key, Allowed: allowed, Method: r.Method, Path: r.URL.Path, At: time.Now()}
				if err := opts.Stats.Record(r.Context(), ev); err != nil {
					opts.Logger.Warn("limiter stats", "error", err)
				}
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				opts.Reject(w, r, wait)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
