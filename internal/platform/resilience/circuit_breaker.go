package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// Breaker guards one upstream host. A disabled breaker admits every call.
type Breaker struct {
	name    string
	enabled bool
	logger  *logging.Logger
	now     func() time.Time

	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int

	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	probesInFlight      int
	probeSuccesses      int
}

type BreakerOption func(*Breaker)

// WithStateLogger logs every state transition at warn level.
func WithStateLogger(logger *logging.Logger) BreakerOption {
	return func(b *Breaker) {
		b.logger = logger
	}
}

func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBreaker(name string, cfg CircuitBreakerConfig, opts ...BreakerOption) *Breaker {
	cfg = cfg.withDefaults()
	b := &Breaker{
		name:             name,
		enabled:          cfg.Enabled,
		now:              time.Now,
		failureThreshold: cfg.FailureThreshold,
		openTimeout:      cfg.OpenTimeout,
		halfOpenMaxReq:   cfg.HalfOpenMaxReq,
		state:            CircuitStateClosed,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may proceed. Every admitted call must be
// followed by exactly one Record.
func (b *Breaker) Allow() error {
	if b == nil || !b.enabled {
		return nil
	}

	b.mu.Lock()
	from := b.state
	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		b.moveTo(CircuitStateHalfOpen)
	}
	err := error(nil)
	switch b.state {
	case CircuitStateOpen:
		err = ErrCircuitOpen
	case CircuitStateHalfOpen:
		if b.probesInFlight >= b.halfOpenMaxReq {
			err = ErrCircuitOpen
		} else {
			b.probesInFlight++
		}
	}
	to := b.state
	b.mu.Unlock()

	b.logTransition(from, to)
	return err
}

// Record feeds the outcome of an admitted call back into the breaker. Only
// errors for which isFailure returns true count against the upstream; a nil
// isFailure counts every non-nil error.
func (b *Breaker) Record(err error, isFailure func(error) bool) {
	if b == nil || !b.enabled {
		return
	}
	failed := err != nil
	if failed && isFailure != nil {
		failed = isFailure(err)
	}

	b.mu.Lock()
	from := b.state
	if failed {
		b.onFailure()
	} else {
		b.onSuccess()
	}
	to := b.state
	b.mu.Unlock()

	b.logTransition(from, to)
}

func (b *Breaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

// Guard runs fn behind b. A rejected call returns ErrCircuitOpen without
// invoking fn.
func Guard[T any](b *Breaker, isFailure func(error) bool, fn func() (T, error)) (T, error) {
	if err := b.Allow(); err != nil {
		var zero T
		return zero, err
	}
	out, err := fn()
	b.Record(err, isFailure)
	return out, err
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures = 0
	case CircuitStateHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		b.probeSuccesses++
		if b.probeSuccesses >= b.halfOpenMaxReq && b.probesInFlight == 0 {
			b.moveTo(CircuitStateClosed)
		}
	}
}

func (b *Breaker) onFailure() {
	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.moveTo(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		b.moveTo(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

func (b *Breaker) moveTo(state CircuitState) {
	b.state = state
	b.probesInFlight = 0
	b.probeSuccesses = 0
	switch state {
	case CircuitStateOpen:
		b.openedAt = b.now()
	case CircuitStateClosed:
		b.consecutiveFailures = 0
		b.openedAt = time.Time{}
	}
}

func (b *Breaker) logTransition(from, to CircuitState) {
	if from == to || b.logger == nil {
		return
	}
	b.logger.Warn("circuit breaker state changed", "breaker", b.name, "from", from, "to", to)
}
