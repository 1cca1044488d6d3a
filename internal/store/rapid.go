package store

import (
	"context"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
)

// StartRapidFire installs a prepared question snapshot and flips the stage
// into the rapid-fire round in one write. The snapshot is owned by the
// document from here on; the caller must not keep mutating it.
func (s *Store) StartRapidFire(ctx context.Context, questions []domain.Question, totalTimeSec int, timePerQuestion float64, teamID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(questions) == 0 {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("start rapid fire: no questions available"),
		)
	}
	if totalTimeSec <= 0 {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("start rapid fire: total time must be positive, got %d", totalTimeSec),
		)
	}

	for i := range questions {
		questions[i].Used = false
	}

	s.doc.RapidFire = domain.RapidFireState{
		Active:          true,
		Questions:       questions,
		CurrentIndex:    0,
		StartTime:       s.clock.Now().UnixMilli(),
		Duration:        totalTimeSec,
		TimePerQuestion: timePerQuestion,
		SelectedTeam:    teamID,
	}
	s.doc.CurrentRound = domain.RoundRapid
	s.doc.CurrentQuestion = domain.SnapshotOf(domain.RoundRapid, questions[0])
	s.doc.DisplayMode = domain.ModeRapidFire
	s.doc.BannerFullscreen = false

	return s.commit(ctx, domain.SourceMutation)
}

// SetRapidFireIndex moves the session to the given snapshot position and
// refreshes the current-question slot from it.
func (s *Store) SetRapidFireIndex(ctx context.Context, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf := &s.doc.RapidFire
	if !rf.Active {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("set rapid fire index: no session in progress"),
		)
	}
	if idx < 0 || idx >= len(rf.Questions) {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("set rapid fire index: %d out of range [0, %d)", idx, len(rf.Questions)),
		)
	}

	rf.CurrentIndex = idx
	s.doc.CurrentQuestion = domain.SnapshotOf(domain.RoundRapid, rf.Questions[idx])

	return s.commit(ctx, domain.SourceMutation)
}

// MarkRapidFireUsed flags the snapshot entry at idx as answered.
func (s *Store) MarkRapidFireUsed(ctx context.Context, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf := &s.doc.RapidFire
	if !rf.Active || idx < 0 || idx >= len(rf.Questions) {
		return s.notFound(ctx, "mark rapid fire used: no snapshot entry at %d", idx)
	}
	rf.Questions[idx].Used = true

	return s.commit(ctx, domain.SourceMutation)
}

// PauseRapidFire freezes the countdown by recording the pause instant. The
// anchor itself is untouched until resume.
func (s *Store) PauseRapidFire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf := &s.doc.RapidFire
	if !rf.Active {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("pause rapid fire: no session in progress"),
		)
	}
	if rf.Paused {
		return nil
	}
	rf.Paused = true
	rf.PauseTime = s.clock.Now().UnixMilli()

	return s.commit(ctx, domain.SourceMutation)
}

// ResumeRapidFire shifts the anchor forward by the paused span so the
// remaining time picks up exactly where it stopped.
func (s *Store) ResumeRapidFire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf := &s.doc.RapidFire
	if !rf.Active {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("resume rapid fire: no session in progress"),
		)
	}
	if !rf.Paused {
		return nil
	}
	rf.StartTime += s.clock.Now().UnixMilli() - rf.PauseTime
	rf.Paused = false
	rf.PauseTime = 0

	return s.commit(ctx, domain.SourceMutation)
}

// EndRapidFire closes the session. A completed run lands on the scoreboard;
// an operator stop returns to the plain banner.
func (s *Store) EndRapidFire(ctx context.Context, stopped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf := &s.doc.RapidFire
	if !rf.Active {
		return nil
	}

	shown := rf.CurrentIndex + 1
	rf.Active = false
	rf.Paused = false
	rf.PauseTime = 0
	s.doc.CurrentQuestion = nil
	s.doc.BannerFullscreen = false
	if stopped {
		s.doc.DisplayMode = domain.ModeBanner
	} else {
		s.doc.DisplayMode = domain.ModeScoreboard
	}

	return s.commit(ctx, domain.SourceMutation, domain.EventRapidFireEnded{
		QuestionsShown: shown,
		Stopped:        stopped,
	})
}

func (s *Store) SetRapidFireTeam(ctx context.Context, teamID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if teamID != 0 && s.doc.FindTeam(teamID) == nil {
		return s.notFound(ctx, "select rapid fire team: team %d not found", teamID)
	}
	s.doc.RapidFire.SelectedTeam = teamID

	return s.commit(ctx, domain.SourceMutation)
}

func (s *Store) SetRapidFireSettings(ctx context.Context, settings domain.RapidFireSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.TotalTime <= 0 || settings.QuestionCount <= 0 {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("rapid fire settings: total time and question count must be positive"),
		)
	}
	s.doc.RapidFireSettings = settings

	return s.commit(ctx, domain.SourceMutation)
}
