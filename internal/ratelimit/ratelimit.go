// Package ratelimit limits how many chat messages one user may send per minute.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// Limiter is a fixed one-minute window counter per user.
type Limiter struct {
	mu           sync.Mutex
	users        map[int64]*userWindow
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	rejected     int64

	perMinute       int
	cleanupInterval time.Duration
	now             func() time.Time
}

type userWindow struct {
	start    time.Time
	requests int
}

// Config holds rate limiter configuration
type Config struct {
	PerMinute       int
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PerMinute:       30,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewLimiter creates a limiter and starts its cleanup goroutine; call Stop to end it.
func NewLimiter(config Config) *Limiter {
	if config.PerMinute <= 0 {
		config.PerMinute = DefaultConfig().PerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}
	rl := &Limiter{
		users:           make(map[int64]*userWindow),
		stopCleanup:     make(chan struct{}),
		perMinute:       config.PerMinute,
		cleanupInterval: config.CleanupInterval,
		now:             time.Now,
	}
	go rl.startCleanup()
	return rl
}

// Allow records one message from userID and reports whether it is within the limit.
func (rl *Limiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.users[userID]
	if !ok || now.Sub(w.start) >= time.Minute {
		rl.users[userID] = &userWindow{start: now, requests: 1}
		return true
	}
	w.requests++
	if w.requests > rl.perMinute {
		atomic.AddInt64(&rl.rejected, 1)
		return false
	}
	return true
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries drops windows that started more than ten minutes ago.
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-10 * time.Minute)
	for id, w := range rl.users {
		if w.start.Before(cutoff) {
			delete(rl.users, id)
		}
	}
}

// ActiveUsers returns the number of currently tracked users
func (rl *Limiter) ActiveUsers() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.users)
}

// Rejected returns how many messages were refused so far.
func (rl *Limiter) Rejected() int64 {
	return atomic.LoadInt64(&rl.rejected)
}

// Stop gracefully shuts down the cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
