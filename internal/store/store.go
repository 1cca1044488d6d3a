package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/event"
	"github.com/quizmania/stage/internal/replica"
)

// Replica is the durable replication channel the store writes through. Save
// persists the whole serialized document and broadcasts the revision token;
// Load returns the latest persisted document.
type Replica interface {
	Save(ctx context.Context, data []byte, revision string) error
	Load(ctx context.Context) ([]byte, error)
}

type Config struct {
	Replica  Replica
	EventBus *event.Bus
	Clock    clockwork.Clock
}

// Store owns the session document. Every mutation goes through a named
// mutator; each mutator applies atomically under the store lock and then
// commits: write-through to the replica plus an in-process notification so
// local views re-render. A mutator that cannot find its target entity logs
// and returns a not-found error without writing; it never partially applies.
type Store struct {
	mu      sync.Mutex
	doc     *domain.SessionDocument
	replica Replica
	eb      *event.Bus
	clock   clockwork.Clock

	// autoSave mirrors doc.Settings.AutoSaveEnabled. Persisters consult it
	// from inside Replica.Save while commit holds mu, so it must be readable
	// without the lock.
	autoSave atomic.Bool
}

func New(c Config) *Store {
	clock := c.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	st := &Store{
		doc:     domain.NewDocument(),
		replica: c.Replica,
		eb:      c.EventBus,
		clock:   clock,
	}
	st.autoSave.Store(st.doc.Settings.AutoSaveEnabled)
	return st
}

// Open loads the persisted document, or seeds sample data when this device
// has no document yet.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.replica.Load(ctx)
	if err != nil {
		if !errors.Is(err, replica.ErrNoDocument) {
			return apperrors.New(apperrors.CodeUnavailable,
				apperrors.WithMessagef("load document"),
				apperrors.WithCause(err),
			)
		}
		slog.InfoContext(ctx, "store: no document found, seeding sample data")
		s.seedSampleData()
		return s.commit(ctx, domain.SourceMutation)
	}

	doc := domain.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		slog.ErrorContext(ctx, "store: persisted document is malformed, seeding sample data", "error", err)
		s.seedSampleData()
		return s.commit(ctx, domain.SourceMutation)
	}
	doc.Normalize()
	s.doc = doc
	s.autoSave.Store(doc.Settings.AutoSaveEnabled)
	return nil
}

// Reload replaces the in-memory document with whatever the replica holds.
// There is no merge: the last writer's full document wins. Invoked on every
// cross-context change notification and on periodic reconcile, so it must be
// safe to call at any time.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()

	data, err := s.replica.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, replica.ErrNoDocument) {
			return nil
		}
		return apperrors.New(apperrors.CodeUnavailable,
			apperrors.WithMessagef("reload document"),
			apperrors.WithCause(err),
		)
	}

	doc := domain.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		s.mu.Unlock()
		slog.ErrorContext(ctx, "store: reload skipped, persisted document is malformed", "error", err)
		return apperrors.New(apperrors.CodeInternal, apperrors.WithCause(err))
	}
	doc.Normalize()

	if doc.Revision != "" && doc.Revision == s.doc.Revision {
		s.mu.Unlock()
		return nil
	}
	s.doc = doc
	s.autoSave.Store(doc.Settings.AutoSaveEnabled)
	revision := doc.Revision
	s.mu.Unlock()

	s.eb.Publish(ctx, domain.EventDocumentUpdated{
		Revision: revision,
		Source:   domain.SourceReplica,
	})
	return nil
}

// Snapshot returns a deep copy of the current document. Callers may read it
// freely; it never aliases store-owned state.
func (s *Store) Snapshot() *domain.SessionDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// AutoSaveEnabled reports the operator's auto-save setting without taking
// the store lock. Safe to call from persisters running inside a commit.
func (s *Store) AutoSaveEnabled() bool {
	return s.autoSave.Load()
}

// SortedTeams returns the non-eliminated teams by score descending.
func (s *Store) SortedTeams() []domain.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.SortedTeams()
}

// commit stamps a fresh revision, writes the whole document through the
// replica and publishes the local update notification. The in-memory
// mutation stays applied even when persistence fails; the caller is told so
// it can surface the failure. Callers must hold s.mu.
func (s *Store) commit(ctx context.Context, src domain.UpdateSource, extra ...event.Event) error {
	s.doc.Revision = uuid.NewString()
	s.autoSave.Store(s.doc.Settings.AutoSaveEnabled)

	data, err := json.Marshal(s.doc)
	if err != nil {
		return apperrors.Internal(err)
	}

	saveErr := s.replica.Save(ctx, data, s.doc.Revision)

	s.eb.Publish(ctx, domain.EventDocumentUpdated{
		Revision: s.doc.Revision,
		Source:   src,
	})
	for _, e := range extra {
		s.eb.Publish(ctx, e)
	}

	return saveErr
}

func (s *Store) notFound(ctx context.Context, format string, args ...any) error {
	err := apperrors.New(apperrors.CodeNotFound, apperrors.WithMessagef(format, args...))
	slog.WarnContext(ctx, "store: "+err.Message)
	return err
}
