package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when an event exceeds its bucket's limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate limit buckets.
const (
	BucketQuestion = "question"
	BucketAuth     = "auth"
	BucketRefresh  = "refresh"
)

// RateLimitConfig holds per-bucket limits. Zero means the default.
type RateLimitConfig struct {
	QuestionsPerMin  int `yaml:"questions_per_min"`
	AuthPerMin       int `yaml:"auth_per_min"`
	RefreshesPerHour int `yaml:"refreshes_per_hour"`
}

func (c *RateLimitConfig) defaults() {
	if c.QuestionsPerMin <= 0 {
		c.QuestionsPerMin = 600
	}
	if c.AuthPerMin <= 0 {
		c.AuthPerMin = 30
	}
	if c.RefreshesPerHour <= 0 {
		c.RefreshesPerHour = 12
	}
}

// sweepEvery is how many calls pass between sweeps of idle keys.
const sweepEvery = 1024

// RateLimiter enforces sliding-window limits per named bucket. Each bucket
// is tracked separately per key, so one client exhausting its window does
// not affect another.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]limit
	events map[bucketKey][]time.Time
	calls  int
	now    func() time.Time
}

type limit struct {
	window time.Duration
	max    int
}

type bucketKey struct {
	kind string
	key  string
}

// NewRateLimiter creates a limiter with the question, auth and refresh
// buckets.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg.defaults()
	return &RateLimiter{
		now: time.Now,
		limits: map[string]limit{
			BucketQuestion: {window: time.Minute, max: cfg.QuestionsPerMin},
			BucketAuth:     {window: time.Minute, max: cfg.AuthPerMin},
			BucketRefresh:  {window: time.Hour, max: cfg.RefreshesPerHour},
		},
		events: make(map[bucketKey][]time.Time),
	}
}

// Allow records one event in the shared window of bucket kind.
func (rl *RateLimiter) Allow(kind string) error {
	return rl.AllowKey(kind, "")
}

// AllowKey records one event for key in bucket kind, or returns
// ErrRateLimited when that key's window is full. Unknown buckets are
// unlimited. A nil limiter allows everything.
func (rl *RateLimiter) AllowKey(kind, key string) error {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limits[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	rl.calls++
	if rl.calls%sweepEvery == 0 {
		rl.sweep(now)
	}

	k := bucketKey{kind: kind, key: key}
	events := evict(rl.events[k], now.Add(-lim.window))
	if len(events) >= lim.max {
		rl.events[k] = events
		return ErrRateLimited
	}
	rl.events[k] = append(events, now)
	return nil
}

// Limit returns the configured limit of bucket kind, or 0 if unknown.
func (rl *RateLimiter) Limit(kind string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.limits[kind].max
}

// sweep forgets keys whose window has emptied.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, events := range rl.events {
		events = evict(events, now.Add(-rl.limits[k.kind].window))
		if len(events) == 0 {
			delete(rl.events, k)
			continue
		}
		rl.events[k] = events
	}
}

// evict drops events before cutoff. Events are chronological.
func evict(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	return events[i:]
}
