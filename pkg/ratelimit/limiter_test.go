package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

type failingStore struct{}

func (failingStore) Add(context.Context, string, time.Time, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("store unreachable")
}
func (failingStore) Remove(context.Context, string, time.Time) error {
	return errors.New("store unreachable")
}

func newTestLimiter(max int) *Limiter {
	cfg := DefaultConfig()
	cfg.Max = max
	cfg.Window = time.Minute
	return NewLimiter(NewLocalStore(), NewLocalStore(), cfg, noopLogger{})
}

func TestAdmitMonotonicity(t *testing.T) {
	const max = 5
	l := newTestLimiter(max)
	ctx := context.Background()

	for i := 1; i <= max; i++ {
		d := l.Admit(ctx, "user-1", "user")
		if !d.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
		if d.Remaining != max-i {
			t.Errorf("request %d: remaining = %d, want %d", i, d.Remaining, max-i)
		}
	}

	d := l.Admit(ctx, "user-1", "user")
	if d.Allowed {
		t.Fatal("request max+1 should be rejected")
	}
	if d.Remaining != 0 {
		t.Errorf("rejected remaining = %d, want 0", d.Remaining)
	}
	if d.ResetAt.IsZero() {
		t.Error("rejected decision must carry a reset time")
	}
}

func TestRejectedAttemptDoesNotExtendWindow(t *testing.T) {
	const max = 2
	l := newTestLimiter(max)
	ctx := context.Background()

	l.Admit(ctx, "user-1", "user")
	l.Admit(ctx, "user-1", "user")
	l.Admit(ctx, "user-1", "user") // rejected, slot released

	store := l.primary.(*LocalStore)
	store.mu.Lock()
	count := len(store.windows["user-1"])
	store.mu.Unlock()

	if count != max {
		t.Errorf("window holds %d entries after rejection, want %d", count, max)
	}
}

func TestResetAtIsWindowAfterFirstRequest(t *testing.T) {
	l := newTestLimiter(1)
	ctx := context.Background()

	first := l.Admit(ctx, "user-1", "user")
	rejected := l.Admit(ctx, "user-1", "user")

	if !first.Allowed || rejected.Allowed {
		t.Fatal("expected first admitted, second rejected")
	}
	// Reset is anchored on the oldest entry in the window
	diff := rejected.ResetAt.Sub(first.ResetAt)
	if diff < 0 {
		diff = -diff
	}
	if diff > time.Second {
		t.Errorf("reset drifted %v from first request's window end", diff)
	}
}

func TestWindowElapsesInStore(t *testing.T) {
	store := NewLocalStore()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		store.Add(ctx, "user-1", base.Add(time.Duration(i)*time.Second), time.Minute)
	}

	// One window later, old entries are pruned and admission restarts
	count, oldest, err := store.Add(ctx, "user-1", base.Add(2*time.Minute), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count after window elapsed = %d, want 1", count)
	}
	if !oldest.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("oldest should be the fresh entry, got %v", oldest)
	}
}

func TestExemptIdentifierAlwaysAdmits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Max = 1
	cfg.Exempt = []string{"health-checker"}
	l := NewLimiter(NewLocalStore(), NewLocalStore(), cfg, noopLogger{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d := l.Admit(ctx, "health-checker", "user")
		if !d.Allowed {
			t.Fatalf("exempt identifier rejected on attempt %d", i+1)
		}
		if d.Remaining != cfg.Max {
			t.Errorf("exempt remaining = %d, want %d", d.Remaining, cfg.Max)
		}
	}
}

func TestRoleMultipliers(t *testing.T) {
	tests := []struct {
		role    string
		wantMax int
	}{
		{"user", 10},
		{"pro", 20},
		{"admin", 50},
		{"unknown", 10},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Max = 10
			l := NewLimiter(NewLocalStore(), NewLocalStore(), cfg, noopLogger{})

			d := l.Admit(context.Background(), "u", tt.role)
			if d.Limit != tt.wantMax {
				t.Errorf("limit = %d, want %d", d.Limit, tt.wantMax)
			}
		})
	}
}

func TestFallbackOnPrimaryFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Max = 2
	l := NewLimiter(failingStore{}, NewLocalStore(), cfg, noopLogger{})
	ctx := context.Background()

	// Fallback still enforces the window locally
	if d := l.Admit(ctx, "user-1", "user"); !d.Allowed {
		t.Fatal("first request through fallback should admit")
	}
	if d := l.Admit(ctx, "user-1", "user"); !d.Allowed {
		t.Fatal("second request through fallback should admit")
	}
	if d := l.Admit(ctx, "user-1", "user"); d.Allowed {
		t.Fatal("third request through fallback should be rejected")
	}
}

func TestBothStoresFailingAdmits(t *testing.T) {
	cfg := DefaultConfig()
	l := NewLimiter(failingStore{}, failingStore{}, cfg, noopLogger{})

	d := l.Admit(context.Background(), "user-1", "user")
	if !d.Allowed {
		t.Fatal("limiter must fail open, never closed")
	}
}
