package rapidfire

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/store"
)

const correctAnswerPoints = 10

type Config struct {
	Store *store.Store

	// Rand drives question selection. Defaults to a time-seeded source;
	// tests inject a fixed seed.
	Rand *rand.Rand
}

// Service runs the rapid-fire round: a shuffled snapshot of the rapid bank
// played against a single total-round countdown, with manual progression
// only. Scoring and question state go through the session store like every
// other mutation.
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

// Start snapshots up to desiredCount questions from the rapid bank and
// begins the round. When the bank holds fewer questions than asked for, the
// round simply runs with what is there.
func (s *Service) Start(ctx context.Context, desiredCount, totalTimeSec int) error {
	doc := s.store.Snapshot()

	if desiredCount <= 0 {
		desiredCount = doc.RapidFireSettings.QuestionCount
	}
	if desiredCount <= 0 {
		desiredCount = 5
	}
	if totalTimeSec <= 0 {
		totalTimeSec = doc.RapidFireSettings.TotalTime
	}
	if totalTimeSec <= 0 {
		totalTimeSec = 90
	}

	bank := doc.Questions[domain.RoundRapid]
	if len(bank) == 0 {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("start rapid fire: the rapid bank is empty"),
		)
	}

	count := desiredCount
	if count > len(bank) {
		count = len(bank)
	}

	if err := s.store.ResetQuestionsUsed(ctx, domain.RoundRapid); err != nil {
		return err
	}

	// bank is already a copy from Snapshot, so shuffling in place is safe.
	s.rand.Shuffle(len(bank), func(i, j int) {
		bank[i], bank[j] = bank[j], bank[i]
	})
	selected := bank[:count]

	slog.InfoContext(ctx, "rapidfire: starting round",
		"questions", count,
		"total_time_sec", totalTimeSec,
	)

	return s.store.StartRapidFire(ctx, selected, totalTimeSec,
		float64(totalTimeSec)/float64(count), doc.RapidFire.SelectedTeam)
}

// Next advances to the following question; past the last one the round ends.
func (s *Service) Next(ctx context.Context) error {
	doc := s.store.Snapshot()
	if !doc.RapidFire.Active {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("next question: no rapid fire session in progress"),
		)
	}

	next := doc.RapidFire.CurrentIndex + 1
	if next >= len(doc.RapidFire.Questions) {
		return s.store.EndRapidFire(ctx, false)
	}
	return s.store.SetRapidFireIndex(ctx, next)
}

// Prev steps back one question. At the first question it does nothing.
func (s *Service) Prev(ctx context.Context) error {
	doc := s.store.Snapshot()
	if !doc.RapidFire.Active {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("previous question: no rapid fire session in progress"),
		)
	}

	if doc.RapidFire.CurrentIndex == 0 {
		return nil
	}
	return s.store.SetRapidFireIndex(ctx, doc.RapidFire.CurrentIndex-1)
}

// Correct awards the answering team, marks the question used in both the
// session snapshot and the master bank, and advances. With teamID zero the
// team picked at the start of the round answers.
func (s *Service) Correct(ctx context.Context, teamID int) error {
	doc := s.store.Snapshot()
	if !doc.RapidFire.Active {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("mark correct: no rapid fire session in progress"),
		)
	}

	if teamID == 0 {
		teamID = doc.RapidFire.SelectedTeam
	}
	if teamID == 0 {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("mark correct: no team selected"),
		)
	}

	if _, err := s.store.UpdateTeamScore(ctx, teamID, correctAnswerPoints); err != nil {
		return err
	}

	if cq := doc.CurrentQuestion; cq != nil && cq.Round == domain.RoundRapid {
		if err := s.store.MarkQuestionUsed(ctx, domain.RoundRapid, cq.ID); err != nil {
			slog.WarnContext(ctx, "rapidfire: unable to mark bank question used", "question_id", cq.ID, "error", err)
		}
	}
	if err := s.store.MarkRapidFireUsed(ctx, doc.RapidFire.CurrentIndex); err != nil {
		slog.WarnContext(ctx, "rapidfire: unable to mark snapshot question used", "index", doc.RapidFire.CurrentIndex, "error", err)
	}

	return s.Next(ctx)
}

// Pass skips the current question without scoring.
func (s *Service) Pass(ctx context.Context) error {
	return s.Next(ctx)
}

func (s *Service) Pause(ctx context.Context) error {
	return s.store.PauseRapidFire(ctx)
}

func (s *Service) Resume(ctx context.Context) error {
	return s.store.ResumeRapidFire(ctx)
}

// End closes a completed round and shows the scoreboard.
func (s *Service) End(ctx context.Context) error {
	return s.store.EndRapidFire(ctx, false)
}

// Stop aborts the round and returns the stage to the banner.
func (s *Service) Stop(ctx context.Context) error {
	return s.store.EndRapidFire(ctx, true)
}
