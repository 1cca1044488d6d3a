package display

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quizmania/stage/internal/domain"
	"github.com/quizmania/stage/internal/event"
	"github.com/quizmania/stage/internal/store"
)

// celebrationDwell is how long the celebration screen stays up before the
// stage moves on to the scoreboard by itself.
const celebrationDwell = 3 * time.Second

type Config struct {
	Store    *store.Store
	EventBus *event.Bus
	Clock    clockwork.Clock
}

// Machine owns the self-triggered display transitions. Mode changes arrive
// over the event bus; entering a mode cancels whatever the previous mode had
// scheduled, so there is never more than one pending transition.
type Machine struct {
	store *store.Store
	clock clockwork.Clock

	mu      sync.Mutex
	pending clockwork.Timer
}

func NewMachine(c Config) *Machine {
	clock := c.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	m := &Machine{
		store: c.Store,
		clock: clock,
	}
	c.EventBus.Subscribe(domain.EventNameDisplayModeChanged, func(ctx context.Context, e event.Event) error {
		m.OnModeChanged(ctx, e.(domain.EventDisplayModeChanged))
		return nil
	})
	return m
}

// Frame renders the current audience screen.
func (m *Machine) Frame() Frame {
	return Render(m.store.Snapshot(), m.clock.Now())
}

// OnModeChanged cancels the previous mode's scheduled work and arms the new
// mode's, if any.
func (m *Machine) OnModeChanged(ctx context.Context, e domain.EventDisplayModeChanged) {
	m.mu.Lock()
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}

	if e.Mode == domain.ModeCelebration {
		m.pending = m.clock.AfterFunc(celebrationDwell, func() {
			m.endCelebration()
		})
	}
	m.mu.Unlock()

	slog.DebugContext(ctx, "display: mode changed", "from", string(e.Previous), "to", string(e.Mode))
}

func (m *Machine) endCelebration() {
	ctx := context.Background()

	// The operator may have moved on during the dwell.
	if m.store.Snapshot().DisplayMode != domain.ModeCelebration {
		return
	}
	if err := m.store.SetDisplayMode(ctx, domain.ModeScoreboard); err != nil {
		slog.ErrorContext(ctx, "display: failed to leave celebration", "error", err)
	}
}

// Stop cancels any pending transition.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}
