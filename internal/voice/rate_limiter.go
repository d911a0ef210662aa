package voice

import (
	"sync"
	"time"

	"github.com/interviewly/voicegate/internal/domain"
)

// nowFunc is swapped out in tests.
var nowFunc = time.Now

// RateLimiter is a sliding-window counter keyed by user. It guards the
// externally-billed transcription path only. State is in-memory and
// best-effort: a restart forgets history, which is acceptable for a
// protective throttle.
type RateLimiter struct {
	mu       sync.Mutex
	history  map[domain.UserID][]time.Time
	limit    int
	interval time.Duration
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

// Allow records an attempt and reports whether it is within the limit.
func (rl *RateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := nowFunc()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[uid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[uid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[uid] = fresh
	return true
}

// RetryAfter reports how long until the oldest in-window attempt falls
// out of the window. Zero when the caller is not limited.
func (rl *RateLimiter) RetryAfter(uid domain.UserID) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	attempts := rl.history[uid]
	if len(attempts) < rl.limit {
		return 0
	}
	oldest := attempts[0]
	wait := rl.interval - nowFunc().Sub(oldest)
	if wait < 0 {
		return 0
	}
	return wait
}
