package wcf

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
)

// Observer is notified after every guarded call, outside the lock.
type Observer interface {
	ObserveCall(op string, elapsed time.Duration, err error)
}

// Guard serialises access to a single Client.
//
// Thread Safety:
//   - Safe for concurrent use. At most one backend call runs at a time
//     process-wide; waiters are admitted in sync.Mutex order.
type Guard struct {
	mu     sync.Mutex
	client Client

	logger   *logging.Logger
	observer Observer

	statsMu sync.Mutex
	stats   map[string]*OpStats
	waiting int64
}

// OpStats counts the calls made for one operation.
type OpStats struct {
	Op         string  `json:"op"`
	Calls      uint64  `json:"calls"`
	Failures   uint64  `json:"failures"`
	TotalMilli float64 `json:"total_ms"`
}

// GuardStats is a point-in-time snapshot of guard activity.
type GuardStats struct {
	Calls    uint64    `json:"calls"`
	Failures uint64    `json:"failures"`
	Waiting  int64     `json:"waiting"`
	Ops      []OpStats `json:"ops"`
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithLogger logs each call at debug level.
func WithLogger(logger *logging.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger.With("component", "guard")
	}
}

// WithObserver reports each call to o.
func WithObserver(o Observer) GuardOption {
	return func(g *Guard) {
		g.observer = o
	}
}

// NewGuard wraps client. The Guard borrows client; it never closes it.
func NewGuard(client Client, opts ...GuardOption) *Guard {
	g := &Guard{
		client: client,
		stats:  make(map[string]*OpStats),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Call runs fn against the guarded client while holding the lock.
//
// fn must make exactly one backend call and must not sleep. The lock is
// released on every exit path; a panic in fn is returned as an error
// wrapping ErrPanic. The result of fn is returned unchanged.
func Call[R any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context, c Client) (R, error)) (R, error) {
	g.addWaiting(1)
	g.mu.Lock()
	g.addWaiting(-1)

	start := time.Now()
	result, err := invoke(ctx, g, op, fn)
	g.record(op, time.Since(start), err)

	return result, err
}

// invoke runs fn and unlocks g. g.mu must be held.
func invoke[R any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context, c Client) (R, error)) (result R, err error) {
	defer g.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			var zero R
			result = zero
			err = fmt.Errorf("%w: %s: %v", ErrPanic, op, r)
		}
	}()
	return fn(ctx, g.client)
}

func (g *Guard) addWaiting(delta int64) {
	g.statsMu.Lock()
	g.waiting += delta
	g.statsMu.Unlock()
}

func (g *Guard) record(op string, elapsed time.Duration, err error) {
	g.statsMu.Lock()
	s, ok := g.stats[op]
	if !ok {
		s = &OpStats{Op: op}
		g.stats[op] = s
	}
	s.Calls++
	if err != nil {
		s.Failures++
	}
	s.TotalMilli += float64(elapsed.Microseconds()) / 1000
	g.statsMu.Unlock()

	if g.logger != nil {
		g.logger.Debug("backend call",
			"op", op,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
	}
	if g.observer != nil {
		g.observer.ObserveCall(op, elapsed, err)
	}
}

// Stats returns a snapshot of call counts. Ops are sorted by name.
func (g *Guard) Stats() GuardStats {
	g.statsMu.Lock()
	defer g.statsMu.Unlock()

	out := GuardStats{
		Waiting: g.waiting,
		Ops:     make([]OpStats, 0, len(g.stats)),
	}
	for _, s := range g.stats {
		out.Calls += s.Calls
		out.Failures += s.Failures
		out.Ops = append(out.Ops, *s)
	}
	sort.Slice(out.Ops, func(i, j int) bool { return out.Ops[i].Op < out.Ops[j].Op })
	return out
}
