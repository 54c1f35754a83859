// Package ratelimit provides a per-client fixed-window request limiter.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Limiter allows up to limit requests per client key in each window. State
// for idle clients is reclaimed by the sweep loop started with Start.
type Limiter struct {
	limit         int
	window        time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	clients  map[string]*window
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// DefaultWindow replaces a non-positive window passed to New.
const DefaultWindow = time.Minute

func New(limit int, windowSize, sweepInterval time.Duration) *Limiter {
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}
	if sweepInterval <= 0 {
		sweepInterval = windowSize
	}
	return &Limiter{
		limit:         limit,
		window:        windowSize,
		sweepInterval: sweepInterval,
		clients:       make(map[string]*window),
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
}

// Allow records a request for key. When the key is over its limit it
// returns false and the time until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l.limit <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.clients[key] = &window{start: now, count: 1}
		return true, 0
	}
	if w.count >= l.limit {
		return false, w.start.Add(l.window).Sub(now)
	}
	w.count++
	return true, 0
}

func (l *Limiter) Limit() int {
	return l.limit
}

// Sweep drops windows that have expired and returns how many were dropped.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Start(ctx context.Context) {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	slog.Info("Rate limiter sweep started", "interval", l.sweepInterval, "limit", l.limit, "window", l.window)

	for {
		select {
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				slog.Debug("Rate limiter swept idle clients", "removed", n)
			}
		case <-l.stopChan:
			slog.Info("Rate limiter sweep stopped")
			return
		case <-ctx.Done():
			slog.Info("Rate limiter sweep stopped due to context cancellation")
			return
		}
	}
}

// Stop ends the sweep loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
