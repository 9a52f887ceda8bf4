package ratelimit

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config parameterizes one independent limiter. Prefix namespaces the
// underlying keys so limiters sharing a store never collide.
type Config struct {
	Window time.Duration
	Max    int
	Prefix string
}

// Preset limiter configs shared across the app.
var (
	ContactForm     = Config{Window: time.Hour, Max: 3, Prefix: "contact"}
	AgeVerification = Config{Window: time.Hour, Max: 10, Prefix: "age-verification"}
	GeneralAPI      = Config{Window: 15 * time.Minute, Max: 100, Prefix: "api"}
)

type Result struct {
	Success   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Store records one attempt under key and reports how many attempts fall
// inside the trailing window, including this one, plus the oldest in-window
// attempt time.
type Store interface {
	Record(key string, now time.Time, window time.Duration) (count int, oldest time.Time, err error)
}

// Limiter is a sliding-window counter over an attempt store. A nil store
// means "no limit": every check succeeds. A store error also passes the
// check (fail open, availability over strict abuse prevention) but is
// logged.
type Limiter struct {
	store   Store
	nowFunc func() time.Time
}

func New(store Store) *Limiter {
	return &Limiter{store: store, nowFunc: time.Now}
}

// Check records an attempt by identifier and reports whether it is within
// cfg's budget. identifier must already be privacy-safe (a hashed IP); the
// limiter performs no hashing of its own.
func (l *Limiter) Check(identifier string, cfg Config) Result {
	allowAll := Result{Success: true, Limit: cfg.Max, Remaining: cfg.Max, Reset: l.nowFunc().Add(cfg.Window)}
	if l == nil || l.store == nil {
		return allowAll
	}

	now := l.nowFunc()
	key := cfg.Prefix + ":" + identifier
	count, oldest, err := l.store.Record(key, now, cfg.Window)
	if err != nil {
		zap.L().Warn("rate limit store error, allowing request",
			zap.String("prefix", cfg.Prefix),
			zap.Error(err))
		return allowAll
	}

	remaining := cfg.Max - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Success:   count <= cfg.Max,
		Limit:     cfg.Max,
		Remaining: remaining,
		Reset:     oldest.Add(cfg.Window),
	}
}

// MemoryStore keeps attempt timestamps per key in process memory, pruning
// entries that fall out of the window as they are touched.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]time.Time)}
}

func (s *MemoryStore) Record(key string, now time.Time, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	kept := s.attempts[key][:0]
	for _, t := range s.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	s.attempts[key] = kept

	return len(kept), kept[0], nil
}

// Prune drops keys with no in-window attempts. Call periodically to keep
// memory bounded under many distinct clients.
func (s *MemoryStore) Prune(now time.Time, window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	for key, times := range s.attempts {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(s.attempts, key)
		}
	}
}

// RetryAfterMessage renders a human wait duration: minutes when under an
// hour, otherwise rounded-up hours.
func RetryAfterMessage(until time.Duration) string {
	if until < 0 {
		until = 0
	}
	minutes := int(until.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return strconv.Itoa(minutes) + " minutes"
	}
	hours := (minutes + 59) / 60
	if hours == 1 {
		return "1 hour"
	}
	return strconv.Itoa(hours) + " hours"
}
