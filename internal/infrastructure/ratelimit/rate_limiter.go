package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage        = "send_message"
	ActionCreateConversation = "create_conversation"
)

// Limit allows Burst actions at once, refilled evenly over Per.
type Limit struct {
	Burst int
	Per   time.Duration
}

func (l Limit) every() rate.Limit {
	if l.Burst <= 0 || l.Per <= 0 {
		return rate.Inf
	}
	return rate.Every(l.Per / time.Duration(l.Burst))
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one bucket per user and action.
type RateLimiter struct {
	limits   map[string]Limit
	fallback Limit
	buckets  map[string]*bucket
	mutex    sync.Mutex
	now      func() time.Time
}

func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	return &RateLimiter{
		limits:   limits,
		fallback: Limit{Burst: 20, Per: time.Minute},
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

// DefaultLimits builds the chat limits from per-minute and per-hour budgets.
func DefaultLimits(sendPerMinute, createPerHour int) map[string]Limit {
	return map[string]Limit{
		ActionSendMessage:        {Burst: sendPerMinute, Per: time.Minute},
		ActionCreateConversation: {Burst: createPerHour, Per: time.Hour},
	}
}

// Allow consumes a token for the user action. When none is available it
// reports how long until one is.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		limit, ok := rl.limits[action]
		if !ok {
			limit = rl.fallback
		}
		b = &bucket{limiter: rate.NewLimiter(limit.every(), max(limit.Burst, 1))}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup drops buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every interval until stop is closed.
func (rl *RateLimiter) StartCleanupRoutine(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-stop:
				return
			}
		}
	}()
}

func (rl *RateLimiter) size() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.buckets)
}
