package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ckb-pop/popcli/pkg/logger"
)

// RotationInterval is the fixed tick between emitted codes.
const RotationInterval = 30 * time.Second

// State is the rotator lifecycle state.
type State int

const (
	// StateIdle is the state before Run is called.
	StateIdle State = iota
	// StateRunning is the state while codes are being emitted.
	StateRunning
	// StateStopped is terminal. A closed window must be reopened through a
	// fresh DeriveWindowSecret call, never by restarting the rotator.
	StateStopped
)

// ErrRotatorUsed reports a Run call on a rotator that already ran.
var ErrRotatorUsed = errors.New("rotator already started; open a new window instead")

// Rotator emits a fresh proof code on every rotation tick for one window.
type Rotator struct {
	eventID  string
	secret   WindowSecret
	interval time.Duration
	duration time.Duration // 0 means open-ended
	now      func() time.Time
	log      *logger.Logger

	mu    sync.Mutex
	state State
	codes chan Code
}

// RotatorOption configures a Rotator.
type RotatorOption func(*Rotator)

// WithInterval overrides the rotation interval (tests use short ticks).
func WithInterval(d time.Duration) RotatorOption {
	return func(r *Rotator) { r.interval = d }
}

// WithDuration bounds the window; zero keeps it open until cancellation.
func WithDuration(d time.Duration) RotatorOption {
	return func(r *Rotator) { r.duration = d }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) RotatorOption {
	return func(r *Rotator) { r.now = now }
}

// NewRotator creates an idle rotator for one opened window.
func NewRotator(eventID string, secret WindowSecret, log *logger.Logger, opts ...RotatorOption) *Rotator {
	if log == nil {
		log = logger.NewDefault("rotator")
	}
	r := &Rotator{
		eventID:  eventID,
		secret:   secret,
		interval: RotationInterval,
		now:      time.Now,
		log:      log,
		state:    StateIdle,
		codes:    make(chan Code, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Codes is the stream of emitted codes. It is closed when the rotator stops.
func (r *Rotator) Codes() <-chan Code {
	return r.codes
}

// State reports the current lifecycle state.
func (r *Rotator) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run emits the first code immediately, then one per tick, until the window
// duration elapses or ctx is cancelled. Cancellation is observed at the
// select, i.e. within one tick. Returns ctx.Err on cancellation and nil on
// duration expiry. Run may be called at most once.
func (r *Rotator) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrRotatorUsed
	}
	r.state = StateRunning
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.state = StateStopped
		r.mu.Unlock()
		close(r.codes)
	}()

	var deadline <-chan time.Time
	if r.duration > 0 {
		timer := time.NewTimer(r.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.emit(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("window closed by cancellation")
			return ctx.Err()
		case <-deadline:
			r.log.Info("window duration elapsed")
			return nil
		case <-ticker.C:
			r.emit(ctx)
		}
	}
}

// emit issues a code stamped with the wall-clock time of emission. If the
// consumer has fallen behind, the stale buffered code is replaced so the
// channel always carries the newest code.
func (r *Rotator) emit(ctx context.Context) {
	code := NewCode(r.secret, r.eventID, r.now().Unix())
	for {
		select {
		case r.codes <- code:
			r.log.WithField("issued_at", code.IssuedAt).Debug("emitted proof code")
			return
		case <-ctx.Done():
			return
		default:
		}
		select {
		case <-r.codes:
		default:
		}
	}
}
