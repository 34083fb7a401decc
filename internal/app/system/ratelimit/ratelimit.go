// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a set of token buckets keyed by an arbitrary string (client
// IP, email). It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	rate    rate.Limit
	burst   int
	now     func() time.Time
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing perMinute requests per key with the given burst.
func New(perMinute, burst int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		entries: make(map[string]*entry),
		rate:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.rate, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = l.now()
	return e.lim
}

// Allow reports whether one more request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).AllowN(l.now(), 1)
}

// Reset forgets key, e.g. after a successful login.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Sweep drops keys idle for longer than idle and returns how many it removed.
func (l *Limiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	n := 0
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ClientIP extracts the client IP, preferring X-Forwarded-For and
// X-Real-IP over RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Messages returned by LoginLimiter.Check.
const (
	MsgIPLimited    = "Too many login attempts. Please wait a minute before trying again."
	MsgEmailLimited = "Too many login attempts for this account. Please wait a few minutes."
)

// LoginLimiter tracks login attempts per IP and per email.
type LoginLimiter struct {
	IP    *Limiter
	Email *Limiter
}

// NewLoginLimiter limits each IP to perMinute attempts (with burst) and each
// email to a fifth of that.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	return &LoginLimiter{
		IP:    New(perMinute, burst),
		Email: New(max(perMinute/5, 1), max(burst/2, 1)),
	}
}

// Check reports whether a login attempt may proceed and, if not, why.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.IP.Allow(ClientIP(r)) {
		return false, MsgIPLimited
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		if !ll.Email.Allow(key) {
			return false, MsgEmailLimited
		}
	}
	return true, ""
}

// ResetEmail clears the per-email bucket after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		ll.Email.Reset(key)
	}
}

// Sweep drops idle keys from both limiters.
func (ll *LoginLimiter) Sweep(idle time.Duration) int {
	return ll.IP.Sweep(idle) + ll.Email.Sweep(idle)
}
