package httpserver

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/helixir/scholar-search-service/internal/observability"
)

const (
	scopeGlobal = "global"
	scopeSearch = "search"
)

// ThrottleConfig holds per-client inbound request limits.
type ThrottleConfig struct {
	Enabled bool

	// GlobalRequests requests are allowed per GlobalWindow on every route.
	GlobalRequests int
	GlobalWindow   time.Duration

	// SearchRequests requests are allowed per SearchWindow on search routes.
	SearchRequests int
	SearchWindow   time.Duration

	// MaxClients bounds the number of client addresses tracked at once.
	MaxClients int
}

// DefaultThrottleConfig returns the default inbound limits.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		Enabled:        true,
		GlobalRequests: 100,
		GlobalWindow:   15 * time.Minute,
		SearchRequests: 20,
		SearchWindow:   time.Minute,
		MaxClients:     10000,
	}
}

// ipThrottle limits requests per client address with a token bucket that
// holds `requests` tokens and refills fully over `window`.
type ipThrottle struct {
	scope    string
	requests int
	every    rate.Limit
	message  string
	metrics  *observability.Metrics

	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
}

func newIPThrottle(scope string, requests int, window time.Duration, maxClients int, message string, metrics *observability.Metrics) *ipThrottle {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if maxClients <= 0 {
		maxClients = 10000
	}

	return &ipThrottle{
		scope:    scope,
		requests: requests,
		every:    rate.Every(window / time.Duration(requests)),
		message:  message,
		metrics:  metrics,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxClients, nil, window),
	}
}

// limiter returns the bucket for a client, creating it on first use.
func (t *ipThrottle) limiter(client string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.limiters.Get(client); ok {
		return l
	}
	l := rate.NewLimiter(t.every, t.requests)
	t.limiters.Add(client, l)
	return l
}

func (t *ipThrottle) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		l := t.limiter(clientAddress(r))
		now := time.Now()
		res := l.ReserveN(now, 1)
		w.Header().Set("RateLimit-Limit", strconv.Itoa(t.requests))

		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			w.Header().Set("RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", retryAfterSeconds(delay))
			t.metrics.RecordThrottled(t.scope)
			writeError(w, http.StatusTooManyRequests, t.message)
			return
		}

		remaining := int(l.TokensAt(now))
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}

// clientAddress returns the client host. RealIP has already rewritten
// RemoteAddr from proxy headers.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
