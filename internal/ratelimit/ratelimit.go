package ratelimit

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter is a token bucket per key. n events are allowed per window, all of
// them at once as a burst.
type Limiter struct {
	name  string
	every rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func New(name string, n int, window time.Duration) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{
		name:     name,
		every:    rate.Every(window / time.Duration(n)),
		burst:    n,
		visitors: map[string]*visitor{},
		now:      time.Now,
	}
}

func (l *Limiter) Name() string { return l.name }

// Allow takes a token for key. When none is left it reports how long until
// the next one.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}
	v.seen = now
	l.mu.Unlock()

	r := v.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Sweep forgets keys idle for longer than ttl and returns how many went.
func (l *Limiter) Sweep(ttl time.Duration) int {
	cutoff := l.now().Add(-ttl)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, v := range l.visitors {
		if v.seen.Before(cutoff) {
			delete(l.visitors, k)
			n++
		}
	}
	return n
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

type KeyFunc func(r *http.Request) string

// ByIP keys on the client address. Run chi's RealIP first behind a proxy.
func ByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ByUser keys on the authenticated subject, falling back to the IP.
func ByUser(subject func(context.Context) string) KeyFunc {
	return func(r *http.Request) string {
		if s := subject(r.Context()); s != "" {
			return "user:" + s
		}
		return ByIP(r)
	}
}

// Middleware answers 429 with Retry-After once key's bucket is empty.
// A nil limiter disables limiting.
func Middleware(l *Limiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Allow(key(r))
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Sweeper evicts idle keys from a set of limiters on a schedule.
type Sweeper struct {
	Limiters []*Limiter
	TTL      time.Duration
}

func (s Sweeper) Name() string { return "ratelimit_sweep" }

func (s Sweeper) Run() error {
	for _, l := range s.Limiters {
		if l != nil {
			l.Sweep(s.TTL)
		}
	}
	return nil
}
