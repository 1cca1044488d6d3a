package control

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/store"
)

type Config struct {
	Store *store.Store

	// Rand picks random questions. Defaults to a time-seeded source.
	Rand *rand.Rand
}

// Service is the operator-facing workflow layer: it turns admin actions into
// sequences of store mutations. It holds no state of its own beyond the
// random source.
type Service struct {
	store *store.Store
	rand  *rand.Rand
}

func NewService(c Config) *Service {
	r := c.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{store: c.Store, rand: r}
}

// StartEvent opens the show on the given round's overview screen.
func (s *Service) StartEvent(ctx context.Context, round domain.RoundID) error {
	if round == "" {
		round = domain.RoundGeneral1
	}
	if err := s.store.SetCurrentRound(ctx, round); err != nil {
		return err
	}
	slog.InfoContext(ctx, "control: event started", "round", string(round))
	return s.store.SetDisplayMode(ctx, domain.ModeRound)
}

// ShowQuestion puts a question on stage. With id zero a random question from
// the round is chosen, preferring unused ones.
func (s *Service) ShowQuestion(ctx context.Context, round domain.RoundID, id int) (domain.CurrentQuestion, error) {
	if id == 0 {
		picked, err := s.pickRandom(round)
		if err != nil {
			return domain.CurrentQuestion{}, err
		}
		id = picked
	}

	cq, err := s.store.SetCurrentQuestion(ctx, round, id)
	if err != nil {
		return domain.CurrentQuestion{}, err
	}
	return cq, s.store.SetDisplayMode(ctx, domain.ModeQuestion)
}

// ShowJeopardyQuestion stages the jeopardy tile at the given coordinates.
func (s *Service) ShowJeopardyQuestion(ctx context.Context, row, column int) (domain.CurrentQuestion, error) {
	doc := s.store.Snapshot()

	for _, q := range doc.Questions[domain.RoundJeopardy] {
		if q.Row != nil && q.Column != nil && *q.Row == row && *q.Column == column {
			return s.ShowQuestion(ctx, domain.RoundJeopardy, q.ID)
		}
	}
	return domain.CurrentQuestion{}, apperrors.New(apperrors.CodeNotFound,
		apperrors.WithMessagef("jeopardy: no question at row %d, column %d", row, column),
	)
}

// MarkCorrect awards the on-stage question's points, flags the bank entry
// used and cuts to the celebration screen.
func (s *Service) MarkCorrect(ctx context.Context, teamID int) error {
	doc := s.store.Snapshot()
	if doc.CurrentQuestion == nil {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("mark correct: no question is on stage"),
		)
	}
	if doc.FindTeam(teamID) == nil {
		return apperrors.New(apperrors.CodeNotFound,
			apperrors.WithMessagef("mark correct: team %d not found", teamID),
		)
	}

	cq := doc.CurrentQuestion
	if _, err := s.store.UpdateTeamScore(ctx, teamID, cq.Points); err != nil {
		return err
	}
	if err := s.store.MarkQuestionUsed(ctx, cq.Round, cq.ID); err != nil {
		return err
	}

	slog.InfoContext(ctx, "control: answer marked correct",
		"team_id", teamID,
		"points", cq.Points,
		"question_id", cq.ID,
	)
	return s.store.SetDisplayMode(ctx, domain.ModeCelebration)
}

// MarkIncorrect records a wrong answer. It awards nothing and changes no
// state; the question stays on stage for the next team.
func (s *Service) MarkIncorrect(ctx context.Context, teamID int) error {
	doc := s.store.Snapshot()
	if doc.CurrentQuestion == nil {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("mark incorrect: no question is on stage"),
		)
	}
	if doc.FindTeam(teamID) == nil {
		return apperrors.New(apperrors.CodeNotFound,
			apperrors.WithMessagef("mark incorrect: team %d not found", teamID),
		)
	}

	slog.InfoContext(ctx, "control: answer marked incorrect",
		"team_id", teamID,
		"question_id", doc.CurrentQuestion.ID,
	)
	return nil
}

// ShowAnswer reveals the on-stage question's answer.
func (s *Service) ShowAnswer(ctx context.Context) error {
	if s.store.Snapshot().CurrentQuestion == nil {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("show answer: no question is on stage"),
		)
	}
	return s.store.SetDisplayMode(ctx, domain.ModeAnswer)
}

// StopRound clears the stage and falls back to the round overview. The
// current round is kept.
func (s *Service) StopRound(ctx context.Context) error {
	if err := s.store.ClearCurrentQuestion(ctx); err != nil {
		return err
	}
	return s.store.SetDisplayMode(ctx, domain.ModeRound)
}

// ShowBanner returns the stage to the banner, optionally fullscreen.
func (s *Service) ShowBanner(ctx context.Context, fullscreen bool) error {
	if err := s.store.SetDisplayMode(ctx, domain.ModeBanner); err != nil {
		return err
	}
	return s.store.SetBannerFullscreen(ctx, fullscreen)
}

func (s *Service) ShowScoreboard(ctx context.Context) error {
	return s.store.SetDisplayMode(ctx, domain.ModeScoreboard)
}

// ShowTimer arms the question timer and cuts to the countdown screen.
func (s *Service) ShowTimer(ctx context.Context, durationSec int) error {
	if err := s.store.StartTimer(ctx, durationSec); err != nil {
		return err
	}
	return s.store.SetDisplayMode(ctx, domain.ModeTimer)
}

func (s *Service) pickRandom(round domain.RoundID) (int, error) {
	doc := s.store.Snapshot()

	pool := doc.UnusedQuestions(round)
	if len(pool) == 0 {
		pool = doc.Questions[round]
	}
	if len(pool) == 0 {
		return 0, apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("show question: round %q has no questions", round),
		)
	}
	return pool[s.rand.Intn(len(pool))].ID, nil
}
