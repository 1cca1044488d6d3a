package rapidfire_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/event"
	"github.com/quizmania/stage/internal/rapidfire"
	"github.com/quizmania/stage/internal/replica"
	"github.com/quizmania/stage/internal/store"
)

func TestService_StartSelectsAtMostWhatTheBankHolds(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	seedRapidBank(t, s, 7)

	require.NoError(t, svc.Start(ctx, 10, 90))

	doc := s.Snapshot()
	require.True(t, doc.RapidFire.Active)
	require.Len(t, doc.RapidFire.Questions, 7, "want min(desired=10, available=7)")
	require.Equal(t, 90, doc.RapidFire.Duration)
	require.InDelta(t, 90.0/7.0, doc.RapidFire.TimePerQuestion, 0.001)
	require.Equal(t, domain.ModeRapidFire, doc.DisplayMode)
	require.Equal(t, domain.RoundRapid, doc.CurrentRound)
	require.NotNil(t, doc.CurrentQuestion)
}

func TestService_SessionQuestionsAreAValueCopy(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	seedRapidBank(t, s, 3)
	require.NoError(t, svc.Start(ctx, 3, 90))

	// Mutate the master bank mid-session.
	newText := "rewritten"
	for _, q := range s.Snapshot().Questions[domain.RoundRapid] {
		require.NoError(t, s.UpdateQuestion(ctx, domain.RoundRapid, q.ID, store.QuestionPatch{Text: &newText}))
	}

	for _, q := range s.Snapshot().RapidFire.Questions {
		require.NotEqual(t, "rewritten", q.Text, "the session snapshot must not follow bank edits")
	}
}

func TestService_StartWithEmptyBank(t *testing.T) {
	svc, _ := makeService(t)

	err := svc.Start(context.Background(), 5, 90)
	require.True(t, apperrors.IsCode(err, apperrors.CodeFailedPrecondition), "want failed precondition, got: %v", err)
}

func TestService_NextPastLastQuestionEndsTheRound(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	seedRapidBank(t, s, 2)
	require.NoError(t, svc.Start(ctx, 2, 90))

	require.NoError(t, svc.Next(ctx))
	require.True(t, s.Snapshot().RapidFire.Active, "one question left")

	require.NoError(t, svc.Next(ctx))
	doc := s.Snapshot()
	require.False(t, doc.RapidFire.Active)
	require.Equal(t, domain.ModeScoreboard, doc.DisplayMode, "a completed round lands on the scoreboard")
}

func TestService_CorrectAwardsPointsAndAdvances(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	team, err := s.AddTeam(ctx, domain.Team{Name: "A"})
	require.NoError(t, err)
	seedRapidBank(t, s, 3)
	require.NoError(t, svc.Start(ctx, 3, 90))

	firstID := s.Snapshot().CurrentQuestion.ID

	require.NoError(t, svc.Correct(ctx, team.ID))

	doc := s.Snapshot()
	require.Equal(t, 10, doc.FindTeam(team.ID).Score)
	require.Equal(t, 1, doc.RapidFire.CurrentIndex)
	require.True(t, doc.FindQuestion(domain.RoundRapid, firstID).Used, "the master bank entry should be flagged")
	require.True(t, doc.RapidFire.Questions[0].Used, "the snapshot entry should be flagged")
}

func TestService_CorrectWithoutTeam(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	seedRapidBank(t, s, 2)
	require.NoError(t, svc.Start(ctx, 2, 90))

	err := svc.Correct(ctx, 0)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument), "want invalid argument, got: %v", err)
}

func TestService_StopReturnsToBanner(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	seedRapidBank(t, s, 2)
	require.NoError(t, svc.Start(ctx, 2, 90))
	require.NoError(t, s.SetBannerFullscreen(ctx, false))

	require.NoError(t, svc.Stop(ctx))

	doc := s.Snapshot()
	require.False(t, doc.RapidFire.Active)
	require.Equal(t, domain.ModeBanner, doc.DisplayMode)
	require.False(t, doc.BannerFullscreen)
}

func seedRapidBank(t *testing.T, s *store.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.AddQuestion(context.Background(), domain.RoundRapid, domain.Question{
			Text:   "rapid question",
			Answer: "answer",
			Points: 10,
		})
		require.NoError(t, err)
	}
}

func makeService(t *testing.T) (*rapidfire.Service, *store.Store) {
	t.Helper()

	s := store.New(store.Config{
		Replica:  &fakeReplica{},
		EventBus: event.NewBus(),
		Clock:    clockwork.NewFakeClock(),
	})
	svc := rapidfire.NewService(rapidfire.Config{
		Store: s,
		Rand:  rand.New(rand.NewSource(1)),
	})
	return svc, s
}

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
