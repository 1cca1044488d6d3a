package control_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/quizmania/stage/internal/control"
	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/event"
	"github.com/quizmania/stage/internal/replica"
	"github.com/quizmania/stage/internal/store"
)

func TestService_StartEvent(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	require.NoError(t, s.SetBannerFullscreen(ctx, true))
	require.NoError(t, svc.StartEvent(ctx, domain.RoundBuzzer1))

	doc := s.Snapshot()
	require.Equal(t, domain.RoundBuzzer1, doc.CurrentRound)
	require.Equal(t, domain.ModeRound, doc.DisplayMode)
	require.False(t, doc.BannerFullscreen, "starting the event should drop the fullscreen banner")
}

func TestService_ShowQuestionPrefersUnused(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	q1, err := s.AddQuestion(ctx, domain.RoundGeneral1, domain.Question{Text: "q1", Answer: "a", Points: 10})
	require.NoError(t, err)
	q2, err := s.AddQuestion(ctx, domain.RoundGeneral1, domain.Question{Text: "q2", Answer: "a", Points: 10})
	require.NoError(t, err)
	require.NoError(t, s.MarkQuestionUsed(ctx, domain.RoundGeneral1, q1.ID))

	cq, err := svc.ShowQuestion(ctx, domain.RoundGeneral1, 0)
	require.NoError(t, err)
	require.Equal(t, q2.ID, cq.ID, "random pick should prefer the unused question")
	require.Equal(t, domain.ModeQuestion, s.Snapshot().DisplayMode)
}

func TestService_ShowQuestionEmptyRound(t *testing.T) {
	svc, _ := makeService(t)

	_, err := svc.ShowQuestion(context.Background(), domain.RoundExtra, 0)
	require.True(t, apperrors.IsCode(err, apperrors.CodeFailedPrecondition), "want failed precondition, got: %v", err)
}

func TestService_MarkCorrect(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	team, err := s.AddTeam(ctx, domain.Team{Name: "A"})
	require.NoError(t, err)
	q, err := s.AddQuestion(ctx, domain.RoundGeneral1, domain.Question{Text: "q", Answer: "a", Points: 25})
	require.NoError(t, err)
	_, err = svc.ShowQuestion(ctx, domain.RoundGeneral1, q.ID)
	require.NoError(t, err)

	require.NoError(t, svc.MarkCorrect(ctx, team.ID))

	doc := s.Snapshot()
	require.Equal(t, 25, doc.FindTeam(team.ID).Score, "the question's points should be awarded")
	require.True(t, doc.Questions[domain.RoundGeneral1][0].Used)
	require.Equal(t, domain.ModeCelebration, doc.DisplayMode)
}

func TestService_MarkCorrectWithoutQuestion(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	team, err := s.AddTeam(ctx, domain.Team{Name: "A"})
	require.NoError(t, err)

	err = svc.MarkCorrect(ctx, team.ID)
	require.True(t, apperrors.IsCode(err, apperrors.CodeFailedPrecondition), "want failed precondition, got: %v", err)
	require.Zero(t, s.Snapshot().FindTeam(team.ID).Score)
}

func TestService_MarkIncorrectChangesNothing(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	team, err := s.AddTeam(ctx, domain.Team{Name: "A"})
	require.NoError(t, err)
	q, err := s.AddQuestion(ctx, domain.RoundGeneral1, domain.Question{Text: "q", Answer: "a", Points: 10})
	require.NoError(t, err)
	_, err = svc.ShowQuestion(ctx, domain.RoundGeneral1, q.ID)
	require.NoError(t, err)
	before := s.Snapshot()

	require.NoError(t, svc.MarkIncorrect(ctx, team.ID))
	require.Equal(t, before, s.Snapshot())
}

func TestService_ShowAnswerNeedsAQuestion(t *testing.T) {
	svc, _ := makeService(t)

	err := svc.ShowAnswer(context.Background())
	require.True(t, apperrors.IsCode(err, apperrors.CodeFailedPrecondition), "want failed precondition, got: %v", err)
}

func TestService_StopRound(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	q, err := s.AddQuestion(ctx, domain.RoundGeneral1, domain.Question{Text: "q", Answer: "a", Points: 10})
	require.NoError(t, err)
	require.NoError(t, svc.StartEvent(ctx, domain.RoundGeneral1))
	_, err = svc.ShowQuestion(ctx, domain.RoundGeneral1, q.ID)
	require.NoError(t, err)

	require.NoError(t, svc.StopRound(ctx))

	doc := s.Snapshot()
	require.Nil(t, doc.CurrentQuestion)
	require.Equal(t, domain.RoundGeneral1, doc.CurrentRound, "the round itself is kept")
	require.Equal(t, domain.ModeRound, doc.DisplayMode)
}

func TestService_ShowJeopardyQuestion(t *testing.T) {
	svc, s := makeService(t)
	ctx := context.Background()

	row, col := 2, 3
	_, err := s.AddQuestion(ctx, domain.RoundJeopardy, domain.Question{
		Text: "tile", Answer: "a", Points: 50, Row: &row, Column: &col,
	})
	require.NoError(t, err)

	cq, err := svc.ShowJeopardyQuestion(ctx, 2, 3)
	require.NoError(t, err)
	require.Equal(t, "tile", cq.Text)

	_, err = svc.ShowJeopardyQuestion(ctx, 1, 1)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "want not found for an empty tile, got: %v", err)
}

func makeService(t *testing.T) (*control.Service, *store.Store) {
	t.Helper()

	s := store.New(store.Config{
		Replica:  &fakeReplica{},
		EventBus: event.NewBus(),
		Clock:    clockwork.NewFakeClock(),
	})
	svc := control.NewService(control.Config{
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
