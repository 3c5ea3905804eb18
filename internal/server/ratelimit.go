package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipRateLimiter applies a per-client-IP token bucket to API routes.
// Buckets refill at requests-per-window and allow a burst of the full
// window quota. Idle buckets are dropped after three windows.
type ipRateLimiter struct {
	limit  rate.Limit
	burst  int
	maxAge time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(requests int, window time.Duration) *ipRateLimiter {
	if requests <= 0 {
		requests = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &ipRateLimiter{
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		maxAge:   3 * window,
		visitors: make(map[string]*visitor),
	}
	go l.cleanup(window)
	return l
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (l *ipRateLimiter) cleanup(interval time.Duration) {
	for range time.Tick(interval) {
		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) > l.maxAge {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Handler is chi middleware rejecting requests over the per-IP quota
// with 429.
func (l *ipRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.allow(ip) {
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
