package core

// scheduler.go runs background maintenance. Sessions live only in memory,
// so idle ones are dropped after the configured TTL. A session with a
// window in flight is never expired.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultJanitorInterval is how often idle sessions are swept.
const DefaultJanitorInterval = 5 * time.Minute

// StartSessionJanitor periodically closes sessions idle for longer than the
// session TTL. It blocks until ctx is cancelled.
func (s *Service) StartSessionJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	slog.Info("session janitor started", "interval", interval, "ttl", s.cfg.SessionTTL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case now := <-ticker.C:
			if n := s.expireSessions(now); n > 0 {
				slog.Info("expired idle sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}

// expireSessions closes every session idle since before now-TTL and
// returns how many were closed.
func (s *Service) expireSessions(now time.Time) int {
	cutoff := now.Add(-s.cfg.SessionTTL)

	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastAccess.Before(cutoff)
		busy := sess.processor != nil && sess.processor.InFlight()
		sess.mu.Unlock()
		if idle && !busy {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	closed := 0
	for _, id := range expired {
		if s.Close(id) == nil {
			closed++
		}
	}
	return closed
}
