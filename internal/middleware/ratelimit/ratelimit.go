// Package ratelimit throttles credential endpoints per client.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter counts requests per key in fixed one-minute windows.
type Limiter struct {
	limit   int
	window  time.Duration
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start    time.Time
	lastSeen time.Time
	count    int
}

type Config struct {
	RequestsPerMinute int

	// CleanupInterval is how often idle keys are swept.
	CleanupInterval time.Duration
	// IdleTTL is how long a key may stay silent before it is forgotten.
	IdleTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 20,
		CleanupInterval:   5 * time.Minute,
		IdleTTL:           10 * time.Minute,
	}
}

// NewLimiter starts the sweeper goroutine; Stop releases it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}

	rl := &Limiter{
		limit:   config.RequestsPerMinute,
		window:  time.Minute,
		idleTTL: config.IdleTTL,
		now:     time.Now,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	go rl.sweep(config.CleanupInterval)
	return rl
}

// Allow records a request for key and reports whether it is within the limit.
func (rl *Limiter) Allow(key string) bool {
	ok, _ := rl.take(key)
	return ok
}

// take is Allow plus the time left until key's window resets.
func (rl *Limiter) take(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		w = &window{start: now}
		rl.windows[key] = w
	}
	w.count++
	w.lastSeen = now
	return w.count <= rl.limit, rl.window - now.Sub(w.start)
}

func (rl *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stop:
			return
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	for key, w := range rl.windows {
		if w.lastSeen.Before(cutoff) {
			delete(rl.windows, key)
		}
	}
}

// ActiveClients returns the number of tracked keys.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware rejects requests over the limit with Retry-After set to the
// seconds left in the window. onLimit writes the body; nil sends a plain 429.
func (rl *Limiter) Middleware(keyOf func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, reset := rl.take(keyOf(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(reset.Seconds()))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
