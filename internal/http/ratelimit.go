package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// rateWindow is the counting window for one client.
	rateWindow = time.Minute
	// staleClientAge is how long an idle client entry survives before the
	// sweep drops it.
	staleClientAge = 10 * time.Minute
	// sweepInterval paces the stale-entry sweep.
	sweepInterval = 5 * time.Minute
)

// rateLimiter counts mutating requests per client IP within a fixed window.
// The limit comes from configuration; reads are never counted.
type rateLimiter struct {
	mu       sync.Mutex
	limit    int
	clients  map[string]*clientWindow
	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int) *rateLimiter {
	rl := &rateLimiter{
		limit:   limit,
		clients: make(map[string]*clientWindow),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropStaleClients()
		case <-rl.stop:
			return
		}
	}
}

func (rl *rateLimiter) dropStaleClients() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-staleClientAge)
	for ip, c := range rl.clients {
		if c.windowStart.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stopSweep ends the background sweep. Safe to call more than once.
func (rl *rateLimiter) stopSweep() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
}

// allow reports whether one more request from clientIP fits the window.
// Denials are counted on metrics when provided.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	c, exists := rl.clients[clientIP]
	if !exists || now.Sub(c.windowStart) > rateWindow {
		rl.clients[clientIP] = &clientWindow{windowStart: now, count: 1}
		return true
	}

	c.count++
	if c.count > rl.limit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
