package mid

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClientIP returns the caller's address. The last X-Forwarded-For hop is
// trusted, so the server must sit behind a proxy that appends it.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		p := strings.Split(xff, ",")
		return strings.TrimSpace(p[len(p)-1])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitOpts configures per-client rate limiting.
type RateLimitOpts struct {
	// Rate is requests per second allowed per client.
	Rate float64
	// Burst is the bucket size per client.
	Burst int
	// IdleTTL drops limiters for clients unseen this long. Zero means 10m.
	IdleTTL time.Duration
	// Key identifies the client. Nil uses ClientIP.
	Key func(*http.Request) string
	// OnLimit writes the rejection. Nil writes a plain 429.
	OnLimit http.Handler
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// clientLimiter keeps one token bucket per client key.
type clientLimiter struct {
	mu       sync.Mutex
	opts     RateLimitOpts
	visitors map[string]*visitor
	lastGC   time.Time
	now      func() time.Time
}

func newClientLimiter(opts RateLimitOpts) *clientLimiter {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	if opts.Key == nil {
		opts.Key = ClientIP
	}
	return &clientLimiter{opts: opts, visitors: make(map[string]*visitor), now: time.Now}
}

func (c *clientLimiter) allow(key string) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastGC) > c.opts.IdleTTL {
		for k, v := range c.visitors {
			if now.Sub(v.seen) > c.opts.IdleTTL {
				delete(c.visitors, k)
			}
		}
		c.lastGC = now
	}
	v, ok := c.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rate.Limit(c.opts.Rate), c.opts.Burst)}
		c.visitors[key] = v
	}
	v.seen = now
	if v.lim.AllowN(now, 1) {
		return true, 0
	}
	r := v.lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// RateLimit returns middleware that limits each client to opts.Rate requests
// per second. A non-positive rate disables limiting.
func RateLimit(opts RateLimitOpts) Middleware {
	if opts.Rate <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	cl := newClientLimiter(opts)
	return cl.middleware
}

func (c *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := c.allow(c.opts.Key(r))
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		secs := int(wait.Seconds() + 0.999)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		if c.opts.OnLimit != nil {
			c.opts.OnLimit.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	})
}
