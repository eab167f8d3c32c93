package resilience

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream 503")

func newTestBreaker(threshold int, now *time.Time) *Breaker {
	return NewBreaker("scores", CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: threshold,
		OpenTimeout:      5 * time.Second,
		HalfOpenMaxReq:   1,
	}, WithClock(func() time.Time { return *now }))
}

func TestBreaker_Transitions(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(2, &now)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}
	b.Record(errUpstream, nil)
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	_ = b.Allow()
	b.Record(errUpstream, nil)
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second probe to be rejected, got %v", err)
	}
	b.Record(nil, nil)
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful probe, got %s", state)
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(1, &now)

	_ = b.Allow()
	b.Record(errUpstream, nil)
	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe: %v", err)
	}
	b.Record(errUpstream, nil)
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected reopen after failed probe, got %s", state)
	}
}

func TestBreaker_IgnoresNonTransientErrors(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(1, &now)
	notFound := errors.New("404")

	_, err := Guard(b, func(err error) bool { return errors.Is(err, errUpstream) }, func() (int, error) {
		return 0, notFound
	})
	if !errors.Is(err, notFound) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("non-transient error must not trip the breaker, got %s", state)
	}
}

func TestGuard_RejectsWithoutCalling(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(1, &now)
	_ = b.Allow()
	b.Record(errUpstream, nil)

	called := false
	_, err := Guard(b, nil, func() (string, error) {
		called = true
		return "page", nil
	})
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("expected rejection without call: err=%v called=%t", err, called)
	}
}

func TestBreaker_DisabledAdmitsEverything(t *testing.T) {
	b := NewBreaker("feeds", CircuitBreakerConfig{Enabled: false, FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("disabled breaker rejected call: %v", err)
		}
		b.Record(errUpstream, nil)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("disabled breaker must stay closed, got %s", state)
	}

	var nilBreaker *Breaker
	if err := nilBreaker.Allow(); err != nil {
		t.Fatalf("nil breaker must admit: %v", err)
	}
}
