package mid

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jrazmi/devcamper/bridge/scaffolding/errs"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"golang.org/x/time/rate"
)

// RateLimitConfig allows Max requests per Window from one client address.
type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// limiters holds one token bucket per client address. Buckets idle for a
// whole window are full again and get dropped.
type limiters struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
	swept    time.Time
}

func (l *limiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.window {
		for k, v := range l.visitors {
			if now.Sub(v.seen) > l.window {
				delete(l.visitors, k)
			}
		}
		l.swept = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.seen = now
	return v.limiter
}

// RateLimit rejects clients that exceed cfg with 429. A zero Max disables
// the limit.
func RateLimit(cfg RateLimitConfig) web.Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next web.HandlerFunc) web.HandlerFunc { return next }
	}

	l := &limiters{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(cfg.Window / time.Duration(cfg.Max)),
		burst:    cfg.Max,
		window:   cfg.Window,
		swept:    time.Now(),
	}
	retryAfter := strconv.Itoa(int((cfg.Window / time.Duration(cfg.Max)).Seconds()) + 1)

	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(ctx context.Context, r *http.Request) web.Encoder {
			if !l.get(clientIP(r), time.Now()).Allow() {
				if w := web.GetWriter(ctx); w != nil {
					w.Header().Set("Retry-After", retryAfter)
				}
				return errs.Newf(errs.TooManyRequests, "Too many requests, please try again later")
			}
			return next(ctx, r)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
