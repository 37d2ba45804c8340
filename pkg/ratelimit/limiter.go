package ratelimit

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"docchat-be/internal/pkg/logger"
)

// Store records one admission attempt and reports the window state.
// Add must be atomic per identifier: concurrent callers may never observe
// a count that skips or double-counts an entry.
type Store interface {
	// Add records an attempt at now, prunes entries older than now-window,
	// and returns the entry count and the oldest entry inside the window.
	Add(ctx context.Context, identifier string, now time.Time, window time.Duration) (count int64, oldest time.Time, err error)

	// Remove drops a previously added attempt so a rejected request does not
	// occupy a window slot.
	Remove(ctx context.Context, identifier string, at time.Time) error
}

// Decision is the outcome of an admission check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Config encapsulates limiter parameters
type Config struct {
	Window          time.Duration
	Max             int
	RoleMultipliers map[string]float64
	Exempt          []string
}

// DefaultConfig returns the default limiter configuration
func DefaultConfig() Config {
	return Config{
		Window: 5 * time.Minute,
		Max:    30,
		RoleMultipliers: map[string]float64{
			"pro":   2.0,
			"admin": 5.0,
		},
	}
}

// Limiter enforces a sliding-window admission policy per identifier.
// The primary store is typically distributed; when it fails the limiter
// degrades to the fallback store. The fallback has no cross-instance
// consistency, which is an accepted limitation, logged once per degradation.
type Limiter struct {
	primary  Store
	fallback Store
	config   Config
	exempt   map[string]struct{}
	logger   logger.ILogger

	degradedOnce sync.Once
}

func NewLimiter(primary, fallback Store, config Config, log logger.ILogger) *Limiter {
	exempt := make(map[string]struct{}, len(config.Exempt))
	for _, id := range config.Exempt {
		id = strings.TrimSpace(id)
		if id != "" {
			exempt[id] = struct{}{}
		}
	}
	return &Limiter{
		primary:  primary,
		fallback: fallback,
		config:   config,
		exempt:   exempt,
		logger:   log,
	}
}

// Admit decides whether a request for identifier may proceed.
// Store errors never block the caller: the limiter falls back to the local
// store and, as a last resort, admits.
func (l *Limiter) Admit(ctx context.Context, identifier, role string) Decision {
	max := l.maxForRole(role)

	if _, ok := l.exempt[identifier]; ok {
		return Decision{Allowed: true, Limit: max, Remaining: max}
	}

	now := time.Now()

	store := l.primary
	count, oldest, err := store.Add(ctx, identifier, now, l.config.Window)
	if err != nil {
		l.degradedOnce.Do(func() {
			l.logger.Warn("RateLimit", "Distributed store unreachable, degrading to local window", map[string]interface{}{
				"error": err.Error(),
			})
		})
		store = l.fallback
		count, oldest, err = store.Add(ctx, identifier, now, l.config.Window)
		if err != nil {
			// Both stores down. Fail open rather than blocking traffic.
			l.logger.Error("RateLimit", "All limiter stores failed, admitting", map[string]interface{}{
				"identifier": identifier,
				"error":      err.Error(),
			})
			return Decision{Allowed: true, Limit: max, Remaining: max}
		}
	}

	if oldest.IsZero() {
		oldest = now
	}
	resetAt := oldest.Add(l.config.Window)

	if count > int64(max) {
		// Give the slot back so a rejected attempt does not extend the window
		if remErr := store.Remove(ctx, identifier, now); remErr != nil {
			l.logger.Warn("RateLimit", "Failed to release rejected slot", map[string]interface{}{
				"identifier": identifier,
				"error":      remErr.Error(),
			})
		}
		return Decision{Allowed: false, Limit: max, Remaining: 0, ResetAt: resetAt}
	}

	return Decision{
		Allowed:   true,
		Limit:     max,
		Remaining: max - int(count),
		ResetAt:   resetAt,
	}
}

func (l *Limiter) maxForRole(role string) int {
	mult, ok := l.config.RoleMultipliers[role]
	if !ok || mult <= 0 {
		return l.config.Max
	}
	return int(math.Round(float64(l.config.Max) * mult))
}
