package timer

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quizmania/stage/internal/domain"
	"github.com/quizmania/stage/internal/telemetry"
)

// Snapshot is the countdown state the engine polls. StartedAt and PausedAt
// are unix milliseconds, matching how the session document stores anchors.
type Snapshot struct {
	Active    bool
	Paused    bool
	Duration  time.Duration
	StartedAt int64
	PausedAt  int64
}

// Remaining derives the time left from the anchor. The countdown is never
// decremented in place: any process that knows the anchor and the wall clock
// computes the same value, which is what keeps reloaded and replicated views
// in agreement.
func Remaining(s Snapshot, now time.Time) time.Duration {
	if !s.Active {
		return s.Duration
	}
	at := now.UnixMilli()
	if s.Paused {
		at = s.PausedAt
	}
	elapsed := time.Duration(at-s.StartedAt) * time.Millisecond
	if elapsed >= s.Duration {
		return 0
	}
	return s.Duration - elapsed
}

type Config struct {
	Kind     domain.TimerKind
	Clock    clockwork.Clock
	Interval time.Duration
	Source   func() Snapshot
	OnExpire func(ctx context.Context)
}

// Engine polls a countdown and fires the expiry callback exactly once per
// armed anchor. Re-arming with a new anchor re-enables firing; polling the
// same expired anchor again does not.
type Engine struct {
	kind     domain.TimerKind
	clock    clockwork.Clock
	interval time.Duration
	source   func() Snapshot
	onExpire func(ctx context.Context)

	firedAnchor int64
}

func NewEngine(c Config) *Engine {
	clock := c.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := c.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Engine{
		kind:     c.Kind,
		clock:    clock,
		interval: interval,
		source:   c.Source,
		onExpire: c.OnExpire,
	}
}

// Run polls until ctx is done. It always returns ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	t := e.clock.NewTicker(e.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Chan():
			e.Tick(ctx)
		}
	}
}

// Tick evaluates the countdown once. Exposed so the poll loop and tests share
// the exact same code path.
func (e *Engine) Tick(ctx context.Context) {
	s := e.source()
	if !s.Active || s.Paused {
		return
	}
	if Remaining(s, e.clock.Now()) > 0 {
		return
	}
	if e.firedAnchor == s.StartedAt {
		return
	}
	e.firedAnchor = s.StartedAt

	slog.InfoContext(ctx, "timer: expired", "kind", string(e.kind))
	telemetry.TimerExpirations.WithLabelValues(string(e.kind)).Inc()
	e.onExpire(ctx)
}
