package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/event"
	"github.com/quizmania/stage/internal/replica"
	"github.com/quizmania/stage/internal/store"
)

func TestStore_AddTeam(t *testing.T) {
	s := makeStore(t)

	team, err := s.AddTeam(context.Background(), domain.Team{Name: "Quiz Wizards", Members: "A, B"})
	require.NoError(t, err)
	require.NotZero(t, team.ID)
	require.NotEmpty(t, team.Color, "a default color should be assigned")

	doc := s.Snapshot()
	require.Len(t, doc.Teams, 1)
	require.Equal(t, "Quiz Wizards", doc.Teams[0].Name)
}

func TestStore_CurrentQuestionIsACopy(t *testing.T) {
	s := makeStore(t)
	ctx := context.Background()

	q, err := s.AddQuestion(ctx, domain.RoundGeneral1, domain.Question{Text: "old text", Answer: "a", Points: 10})
	require.NoError(t, err)

	_, err = s.SetCurrentQuestion(ctx, domain.RoundGeneral1, q.ID)
	require.NoError(t, err)

	newText := "new text"
	require.NoError(t, s.UpdateQuestion(ctx, domain.RoundGeneral1, q.ID, store.QuestionPatch{Text: &newText}))

	doc := s.Snapshot()
	require.Equal(t, "new text", doc.Questions[domain.RoundGeneral1][0].Text, "the bank entry should change")
	require.Equal(t, "old text", doc.CurrentQuestion.Text, "the on-stage snapshot should not")
}

func TestStore_MarkQuestionUsed(t *testing.T) {
	s := makeStore(t)
	ctx := context.Background()

	q, err := s.AddQuestion(ctx, domain.RoundGeneral1, domain.Question{Text: "q", Answer: "a", Points: 10})
	require.NoError(t, err)

	_, err = s.SetCurrentQuestion(ctx, domain.RoundGeneral1, q.ID)
	require.NoError(t, err)

	require.NoError(t, s.MarkQuestionUsed(ctx, domain.RoundGeneral1, q.ID))

	doc := s.Snapshot()
	require.True(t, doc.Questions[domain.RoundGeneral1][0].Used)
	require.False(t, doc.CurrentQuestion.Used, "marking used must not touch the on-stage snapshot")
}

func TestStore_SortedTeamsExcludesEliminated(t *testing.T) {
	s := makeStore(t)
	ctx := context.Background()

	a, err := s.AddTeam(ctx, domain.Team{Name: "A"})
	require.NoError(t, err)
	b, err := s.AddTeam(ctx, domain.Team{Name: "B"})
	require.NoError(t, err)
	c, err := s.AddTeam(ctx, domain.Team{Name: "C"})
	require.NoError(t, err)

	_, err = s.UpdateTeamScore(ctx, a.ID, 50)
	require.NoError(t, err)
	_, err = s.UpdateTeamScore(ctx, b.ID, 30)
	require.NoError(t, err)
	_, err = s.UpdateTeamScore(ctx, c.ID, 10)
	require.NoError(t, err)

	require.NoError(t, s.SetTeamEliminated(ctx, a.ID, true))

	sorted := s.SortedTeams()
	require.Len(t, sorted, 2, "the eliminated leader should be excluded")
	require.Equal(t, "B", sorted[0].Name)
	require.Equal(t, "C", sorted[1].Name)
}

func TestStore_MutatorsAreNoOpsOnMissingTargets(t *testing.T) {
	tests := map[string]struct {
		act func(ctx context.Context, s *store.Store) error
	}{
		"update score for unknown team": {
			act: func(ctx context.Context, s *store.Store) error {
				_, err := s.UpdateTeamScore(ctx, 99, 10)
				return err
			},
		},
		"delete unknown team": {
			act: func(ctx context.Context, s *store.Store) error {
				return s.DeleteTeam(ctx, 99)
			},
		},
		"mark unknown question used": {
			act: func(ctx context.Context, s *store.Store) error {
				return s.MarkQuestionUsed(ctx, domain.RoundGeneral1, 99)
			},
		},
		"select unknown question": {
			act: func(ctx context.Context, s *store.Store) error {
				_, err := s.SetCurrentQuestion(ctx, domain.RoundGeneral1, 99)
				return err
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			s := makeStore(t)
			ctx := context.Background()

			_, err := s.AddTeam(ctx, domain.Team{Name: "A"})
			require.NoError(t, err)
			before := s.Snapshot()

			err = tt.act(ctx, s)
			require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "want not found, got: %v", err)
			require.Equal(t, before, s.Snapshot(), "a failed mutator must not change the document")
		})
	}
}

func TestStore_RoundChangeClearsCurrentQuestion(t *testing.T) {
	s := makeStore(t)
	ctx := context.Background()

	q, err := s.AddQuestion(ctx, domain.RoundGeneral1, domain.Question{Text: "q", Answer: "a", Points: 10})
	require.NoError(t, err)
	_, err = s.SetCurrentQuestion(ctx, domain.RoundGeneral1, q.ID)
	require.NoError(t, err)

	require.NoError(t, s.SetCurrentRound(ctx, domain.RoundBuzzer1))
	require.Nil(t, s.Snapshot().CurrentQuestion)
}

func TestStore_NonBannerModeClearsFullscreen(t *testing.T) {
	s := makeStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetBannerFullscreen(ctx, true))
	require.True(t, s.Snapshot().BannerFullscreen)

	require.NoError(t, s.SetDisplayMode(ctx, domain.ModeScoreboard))

	doc := s.Snapshot()
	require.Equal(t, domain.ModeScoreboard, doc.DisplayMode)
	require.False(t, doc.BannerFullscreen)
}

func TestStore_TimerIsAnchored(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := makeStore(t, withClock(clock))
	ctx := context.Background()

	require.NoError(t, s.StartTimer(ctx, 90))

	doc := s.Snapshot()
	require.True(t, doc.Timer.Active)
	require.Equal(t, 90, doc.Timer.Duration)
	require.Equal(t, clock.Now().UnixMilli(), doc.Timer.StartTime)

	require.NoError(t, s.StopTimer(ctx))
	doc = s.Snapshot()
	require.False(t, doc.Timer.Active)
	require.Equal(t, 90, doc.Timer.Remaining)
}

func TestStore_RapidFirePauseShiftsAnchor(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := makeStore(t, withClock(clock))
	ctx := context.Background()

	qs := []domain.Question{{ID: 1, Text: "q1", Answer: "a1", Points: 10}}
	require.NoError(t, s.StartRapidFire(ctx, qs, 90, 9, 0))
	started := s.Snapshot().RapidFire.StartTime

	clock.Advance(30 * time.Second)
	require.NoError(t, s.PauseRapidFire(ctx))

	clock.Advance(20 * time.Second)
	require.NoError(t, s.ResumeRapidFire(ctx))

	doc := s.Snapshot()
	require.False(t, doc.RapidFire.Paused)
	require.Equal(t, started+(20*time.Second).Milliseconds(), doc.RapidFire.StartTime,
		"the anchor should move forward by exactly the paused span")
}

func TestStore_EndRapidFire(t *testing.T) {
	tests := map[string]struct {
		stopped  bool
		wantMode domain.DisplayMode
	}{
		"completed run lands on the scoreboard": {stopped: false, wantMode: domain.ModeScoreboard},
		"operator stop returns to the banner":   {stopped: true, wantMode: domain.ModeBanner},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			s := makeStore(t)
			ctx := context.Background()

			qs := []domain.Question{{ID: 1, Text: "q1", Answer: "a1", Points: 10}}
			require.NoError(t, s.StartRapidFire(ctx, qs, 90, 9, 0))

			require.NoError(t, s.EndRapidFire(ctx, tt.stopped))

			doc := s.Snapshot()
			require.False(t, doc.RapidFire.Active)
			require.Equal(t, tt.wantMode, doc.DisplayMode)
			require.False(t, doc.BannerFullscreen)
			require.Nil(t, doc.CurrentQuestion)
		})
	}
}

func TestStore_ImportExportRoundTrip(t *testing.T) {
	s := makeStore(t)
	ctx := context.Background()

	_, err := s.AddTeam(ctx, domain.Team{Name: "A", Members: "x"})
	require.NoError(t, err)
	_, err = s.AddQuestion(ctx, domain.RoundTopic, domain.Question{Text: "q", Answer: "a", Points: 10, Topic: "Science"})
	require.NoError(t, err)

	exported, err := s.Export()
	require.NoError(t, err)

	s2 := makeStore(t)
	require.NoError(t, s2.Import(ctx, exported))

	want, got := s.Snapshot(), s2.Snapshot()
	want.Revision, got.Revision = "", ""
	require.Equal(t, want, got)
}

func TestStore_ImportRejectsMalformedPayload(t *testing.T) {
	s := makeStore(t)
	ctx := context.Background()

	_, err := s.AddTeam(ctx, domain.Team{Name: "A"})
	require.NoError(t, err)
	before := s.Snapshot()

	err = s.Import(ctx, []byte(`not json at all`))
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument), "want invalid argument, got: %v", err)
	require.Equal(t, before, s.Snapshot(), "a rejected import must leave the document unchanged")
}

func TestStore_CommitPublishesDocumentUpdated(t *testing.T) {
	eb := event.NewBus()

	var mu sync.Mutex
	var got []domain.EventDocumentUpdated
	eb.Subscribe(domain.EventNameDocumentUpdated, func(ctx context.Context, e event.Event) error {
		mu.Lock()
		got = append(got, e.(domain.EventDocumentUpdated))
		mu.Unlock()
		return nil
	})

	s := makeStore(t, withEventBus(eb))

	_, err := s.AddTeam(context.Background(), domain.Team{Name: "A"})
	require.NoError(t, err)

	eb.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	require.Equal(t, domain.SourceMutation, got[0].Source)
	require.NotEmpty(t, got[0].Revision)
}

func TestStore_PersisterMayConsultTheGateDuringSave(t *testing.T) {
	r := &gateReplica{}
	s := makeStore(t, withReplica(r))
	r.gate = s.AutoSaveEnabled

	done := make(chan error, 1)
	go func() {
		_, err := s.AddTeam(context.Background(), domain.Team{Name: "A"})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("mutator blocked while the persister read the auto-save gate")
	}

	enabled := true
	require.NoError(t, s.UpdateSettings(context.Background(), store.SettingsPatch{AutoSaveEnabled: &enabled}))

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Equal(t, []bool{false, true}, r.seen,
		"the save that carries the settings change must already see the new gate value")
}

// gateReplica reads the auto-save gate from inside Save, the way the file
// persister does in production.
type gateReplica struct {
	fakeReplica
	gate func() bool
	seen []bool
}

func (g *gateReplica) Save(ctx context.Context, data []byte, revision string) error {
	g.mu.Lock()
	g.seen = append(g.seen, g.gate())
	g.mu.Unlock()
	return g.fakeReplica.Save(ctx, data, revision)
}

// fakeReplica keeps the last saved payload in memory.
type fakeReplica struct {
	mu   sync.Mutex
	data []byte
}

func (f *fakeReplica) Save(_ context.Context, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append([]byte(nil), data...)
	return nil
}

func (f *fakeReplica) Load(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		return nil, replica.ErrNoDocument
	}
	return append([]byte(nil), f.data...), nil
}

func makeStore(t *testing.T, opts ...options) *store.Store {
	t.Helper()

	c := store.Config{
		Replica:  &fakeReplica{},
		EventBus: event.NewBus(),
		Clock:    clockwork.NewFakeClock(),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return store.New(c)
}

type options func(c *store.Config)

func withReplica(r store.Replica) options {
	return func(c *store.Config) {
		c.Replica = r
	}
}

func withClock(clock clockwork.Clock) options {
	return func(c *store.Config) {
		c.Clock = clock
	}
}

func withEventBus(eb *event.Bus) options {
	return func(c *store.Config) {
		c.EventBus = eb
	}
}
