// Package ratelimit tracks the GitHub request budget and gates outgoing calls.
//
// A Limiter moves between three states:
//
//	Normal   remaining >= threshold (or nothing known yet)
//	Warning  0 < remaining < threshold
//	Blocked  remaining == 0 and the reset time is still ahead
//
// Blocked clears itself once the reset time passes; the check happens lazily
// on the next Guard call and on every probe tick.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ghboard/internal/errors"
	"ghboard/internal/logger"
)

// DefaultWarningThreshold is the remaining-request count below which the
// limiter advises the user.
const DefaultWarningThreshold = 10

// State is the limiter's position in the Normal/Warning/Blocked machine.
type State int

const (
	Normal State = iota
	Warning
	Blocked
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Blocked:
		return "blocked"
	}
	return "unknown"
}

// Presenter shows limiter state to the user. Calls are made outside the
// limiter's lock and may arrive from any goroutine, but never concurrently
// and never out of order: a call superseded by a newer state is dropped.
type Presenter interface {
	// ShowBlocked displays a persistent banner until ClearRateLimit.
	ShowBlocked(resetAt time.Time)
	// ShowWarning displays a dismissible advisory.
	ShowWarning(remaining, limit int, resetAt time.Time)
	// ClearRateLimit removes both the banner and the advisory.
	ClearRateLimit()
}

// Snapshot is a copy of the limiter's budget. ResetAt is in epoch seconds.
type Snapshot struct {
	Remaining int
	Limit     int
	ResetAt   int64
	IsLimited bool
	Known     bool
	State     State
}

// ResetTime converts ResetAt to a time.Time; zero when unknown.
func (s Snapshot) ResetTime() time.Time {
	if s.ResetAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ResetAt, 0)
}

// Limiter is safe for concurrent use. One instance is shared by every repo
// context in a process because the budget belongs to the token and host.
type Limiter struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetAt   int64
	known     bool
	state     State
	threshold int
	presenter Presenter
	now       func() time.Time
	pacer     *rate.Limiter
	// seq numbers presenter calls under mu.
	seq uint64

	deliverMu sync.Mutex
	delivered uint64
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWarningThreshold overrides DefaultWarningThreshold.
func WithWarningThreshold(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.threshold = n
		}
	}
}

// WithPresenter attaches a presenter at construction time.
func WithPresenter(p Presenter) Option {
	return func(l *Limiter) { l.presenter = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithMutationInterval spaces mutating calls at least d apart (burst of 3).
// Zero disables pacing.
func WithMutationInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d <= 0 {
			l.pacer = rate.NewLimiter(rate.Inf, 1)
			return
		}
		l.pacer = rate.NewLimiter(rate.Every(d), 3)
	}
}

// New creates a limiter in the Normal state with an unknown budget.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		threshold: DefaultWarningThreshold,
		now:       time.Now,
		pacer:     rate.NewLimiter(rate.Every(time.Second), 3),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetPresenter attaches or replaces the presenter. The current state is
// replayed so a late presenter does not miss an active banner.
func (l *Limiter) SetPresenter(p Presenter) {
	l.mu.Lock()
	l.presenter = p
	notify := l.notification(l.state, true)
	l.mu.Unlock()
	notify()
}

// Update records a budget reading. resetAt is in epoch seconds.
func (l *Limiter) Update(remaining, limit int, resetAt int64) {
	l.mu.Lock()
	l.remaining = remaining
	if limit > 0 {
		l.limit = limit
	}
	if resetAt > 0 {
		l.resetAt = resetAt
	}
	l.known = true
	notify := l.transition()
	l.mu.Unlock()
	notify()
}

// BlockFor blocks the limiter for d, used when GitHub answers with
// Retry-After instead of budget headers (secondary limits).
func (l *Limiter) BlockFor(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	until := l.now().Add(d)
	l.remaining = 0
	l.resetAt = until.Unix()
	if until.Nanosecond() > 0 {
		l.resetAt++
	}
	l.known = true
	notify := l.transition()
	l.mu.Unlock()
	notify()
}

// ObserveHeaders feeds a response into the limiter. It matches
// httputil.HeaderObserver so it can sit in the transport chain.
func (l *Limiter) ObserveHeaders(status int, h http.Header) {
	remaining, okRemaining := headerInt(h, "X-RateLimit-Remaining")
	if okRemaining {
		limit, _ := headerInt(h, "X-RateLimit-Limit")
		reset, _ := headerInt(h, "X-RateLimit-Reset")
		l.Update(remaining, limit, int64(reset))
	}

	if status == http.StatusForbidden || status == http.StatusTooManyRequests {
		if secs, ok := headerInt(h, "Retry-After"); ok && secs > 0 {
			logger.GitHub("secondary rate limit, retry after %ds", secs)
			l.BlockFor(time.Duration(secs) * time.Second)
		}
	}
}

// Guard reports whether a remote call may proceed. A Blocked limiter whose
// reset time has passed returns to Normal here.
func (l *Limiter) Guard() bool {
	l.mu.Lock()
	notify := l.transition()
	allowed := l.state != Blocked
	l.mu.Unlock()
	notify()
	return allowed
}

// Err returns the rate limit error while Blocked, nil otherwise.
func (l *Limiter) Err() error {
	if l.Guard() {
		return nil
	}
	return errors.NewRateLimitError(l.Snapshot().ResetTime())
}

// Pace waits for the mutation token bucket.
func (l *Limiter) Pace(ctx context.Context) error {
	return l.pacer.Wait(ctx)
}

// State returns the current state without re-evaluating expiry.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Snapshot returns a copy of the budget.
func (l *Limiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Remaining: l.remaining,
		Limit:     l.limit,
		ResetAt:   l.resetAt,
		IsLimited: l.state == Blocked,
		Known:     l.known,
		State:     l.state,
	}
}

// compute derives the state from the budget. Callers hold mu.
func (l *Limiter) compute() State {
	if !l.known {
		return Normal
	}
	if l.remaining <= 0 {
		if l.now().UnixMilli() < l.resetAt*1000 {
			return Blocked
		}
		// The window rolled over; the next response tells us the new budget.
		l.known = false
		return Normal
	}
	if l.remaining < l.threshold {
		return Warning
	}
	return Normal
}

// transition recomputes the state and returns the presenter call to make
// once mu is released. Callers hold mu.
func (l *Limiter) transition() func() {
	next := l.compute()
	if next == l.state {
		return func() {}
	}
	logger.GitHub("rate limit state %s -> %s (remaining=%d limit=%d reset=%d)", l.state, next, l.remaining, l.limit, l.resetAt)
	l.state = next
	return l.notification(next, false)
}

// notification builds the presenter call for s. Callers hold mu.
func (l *Limiter) notification(s State, replay bool) func() {
	p := l.presenter
	if p == nil {
		return func() {}
	}
	reset := time.Unix(l.resetAt, 0)
	remaining, limit := l.remaining, l.limit
	var show func()
	switch s {
	case Blocked:
		show = func() { p.ShowBlocked(reset) }
	case Warning:
		show = func() { p.ShowWarning(remaining, limit, reset) }
	default:
		if replay {
			return func() {}
		}
		show = p.ClearRateLimit
	}
	l.seq++
	seq := l.seq
	return func() { l.deliver(seq, show) }
}

// deliver runs show unless a later notification was already delivered.
func (l *Limiter) deliver(seq uint64, show func()) {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()
	if seq <= l.delivered {
		return
	}
	l.delivered = seq
	show()
}

func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
