package store

import (
	"context"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
)

func (s *Store) SetCurrentRound(ctx context.Context, round domain.RoundID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !round.Valid() {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("set round: unknown round %q", round),
		)
	}

	s.doc.CurrentRound = round
	s.doc.CurrentQuestion = nil

	return s.commit(ctx, domain.SourceMutation)
}

// SetCurrentQuestion snapshots the question into the current-question slot.
// The snapshot is a value copy taken now; later edits to the bank entry do
// not retroactively change what the stage shows.
func (s *Store) SetCurrentQuestion(ctx context.Context, round domain.RoundID, id int) (domain.CurrentQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.doc.FindQuestion(round, id)
	if q == nil {
		return domain.CurrentQuestion{}, s.notFound(ctx, "set current question: question %d not found in round %q", id, round)
	}

	cq := domain.SnapshotOf(round, *q)
	s.doc.CurrentQuestion = cq

	return *cq, s.commit(ctx, domain.SourceMutation)
}

func (s *Store) ClearCurrentQuestion(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.CurrentQuestion = nil
	return s.commit(ctx, domain.SourceMutation)
}

// SetDisplayMode moves the stage to the given mode. The fullscreen banner
// flag is a modifier of banner mode only and is cleared on any other mode.
func (s *Store) SetDisplayMode(ctx context.Context, mode domain.DisplayMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !mode.Valid() {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("set display mode: unknown mode %q", mode),
		)
	}

	prev := s.doc.DisplayMode
	s.doc.DisplayMode = mode
	if mode != domain.ModeBanner {
		s.doc.BannerFullscreen = false
	}

	return s.commit(ctx, domain.SourceMutation, domain.EventDisplayModeChanged{
		Previous: prev,
		Mode:     mode,
	})
}

func (s *Store) SetBannerFullscreen(ctx context.Context, fullscreen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fullscreen && s.doc.DisplayMode != domain.ModeBanner {
		s.doc.DisplayMode = domain.ModeBanner
	}
	s.doc.BannerFullscreen = fullscreen

	return s.commit(ctx, domain.SourceMutation)
}

// StartTimer arms the question timer. The anchor is the wall clock now;
// remaining time is always derived from it, never decremented in place.
func (s *Store) StartTimer(ctx context.Context, durationSec int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if durationSec <= 0 {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("start timer: duration must be positive, got %d", durationSec),
		)
	}

	s.doc.Timer = domain.TimerState{
		Active:    true,
		Duration:  durationSec,
		Remaining: durationSec,
		StartTime: s.clock.Now().UnixMilli(),
	}

	return s.commit(ctx, domain.SourceMutation)
}

func (s *Store) StopTimer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Timer.Active = false
	s.doc.Timer.Remaining = s.doc.Timer.Duration
	s.doc.Timer.StartTime = 0

	return s.commit(ctx, domain.SourceMutation)
}

// SettingsPatch carries the fields of a settings update. Nil fields are left
// as-is.
type SettingsPatch struct {
	EventTitle      *string
	EventSubtitle   *string
	BannerImage     *string
	PrimaryColor    *string
	AccentColor     *string
	AutoSaveEnabled *bool
}

func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.doc.Settings
	if patch.EventTitle != nil {
		st.EventTitle = *patch.EventTitle
	}
	if patch.EventSubtitle != nil {
		st.EventSubtitle = *patch.EventSubtitle
	}
	if patch.BannerImage != nil {
		st.BannerImage = *patch.BannerImage
	}
	if patch.PrimaryColor != nil {
		st.PrimaryColor = *patch.PrimaryColor
	}
	if patch.AccentColor != nil {
		st.AccentColor = *patch.AccentColor
	}
	if patch.AutoSaveEnabled != nil {
		st.AutoSaveEnabled = *patch.AutoSaveEnabled
	}

	return s.commit(ctx, domain.SourceMutation)
}

func (s *Store) SetRoundRule(ctx context.Context, round domain.RoundID, rule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !round.Valid() {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("set round rule: unknown round %q", round),
		)
	}
	if s.doc.RoundRules == nil {
		s.doc.RoundRules = map[domain.RoundID]string{}
	}
	s.doc.RoundRules[round] = rule

	return s.commit(ctx, domain.SourceMutation)
}
