package store

import (
	"context"
	"strings"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
)

// QuestionPatch carries the fields of a question update. Nil fields are left
// as-is.
type QuestionPatch struct {
	Text            *string
	Answer          *string
	Points          *int
	Used            *bool
	Type            *domain.QuestionType
	Media           *string
	MediaType       *string
	MediaName       *string
	Topic           *string
	Row             *int
	Column          *int
	DisplayAtStart  *bool
	ShowTeamChoices *bool
}

func (s *Store) AddQuestion(ctx context.Context, round domain.RoundID, q domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !round.Valid() {
		return domain.Question{}, apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("add question: unknown round %q", round),
		)
	}
	if strings.TrimSpace(q.Text) == "" {
		return domain.Question{}, apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("add question: text is required"),
		)
	}
	if q.Points <= 0 {
		q.Points = 10
	}

	q.ID = s.doc.NextQuestionID(round)
	q.Used = false
	s.doc.Questions[round] = append(s.doc.Questions[round], q)

	return q, s.commit(ctx, domain.SourceMutation)
}

func (s *Store) UpdateQuestion(ctx context.Context, round domain.RoundID, id int, patch QuestionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.doc.FindQuestion(round, id)
	if q == nil {
		return s.notFound(ctx, "update question: question %d not found in round %q", id, round)
	}

	if patch.Text != nil {
		q.Text = *patch.Text
	}
	if patch.Answer != nil {
		q.Answer = *patch.Answer
	}
	if patch.Points != nil {
		q.Points = *patch.Points
	}
	if patch.Used != nil {
		q.Used = *patch.Used
	}
	if patch.Type != nil {
		q.Type = *patch.Type
	}
	if patch.Media != nil {
		q.Media = *patch.Media
	}
	if patch.MediaType != nil {
		q.MediaType = *patch.MediaType
	}
	if patch.MediaName != nil {
		q.MediaName = *patch.MediaName
	}
	if patch.Topic != nil {
		q.Topic = *patch.Topic
	}
	if patch.Row != nil {
		row := *patch.Row
		q.Row = &row
	}
	if patch.Column != nil {
		col := *patch.Column
		q.Column = &col
	}
	if patch.DisplayAtStart != nil {
		q.DisplayAtStart = *patch.DisplayAtStart
	}
	if patch.ShowTeamChoices != nil {
		q.ShowTeamChoices = *patch.ShowTeamChoices
	}

	return s.commit(ctx, domain.SourceMutation)
}

func (s *Store) DeleteQuestion(ctx context.Context, round domain.RoundID, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs := s.doc.Questions[round]
	idx := -1
	for i := range qs {
		if qs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.notFound(ctx, "delete question: question %d not found in round %q", id, round)
	}
	s.doc.Questions[round] = append(qs[:idx], qs[idx+1:]...)

	if s.doc.CurrentQuestion != nil && s.doc.CurrentQuestion.ID == id && s.doc.CurrentQuestion.Round == round {
		s.doc.CurrentQuestion = nil
	}

	return s.commit(ctx, domain.SourceMutation)
}

// MarkQuestionUsed flags the question in its master bank. The current
// question snapshot, if it points at the same question, keeps its own copy
// untouched so the stage does not flicker mid-display.
func (s *Store) MarkQuestionUsed(ctx context.Context, round domain.RoundID, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.doc.FindQuestion(round, id)
	if q == nil {
		return s.notFound(ctx, "mark used: question %d not found in round %q", id, round)
	}
	q.Used = true

	return s.commit(ctx, domain.SourceMutation)
}

// ResetQuestionsUsed clears the used flag on every question of the round.
func (s *Store) ResetQuestionsUsed(ctx context.Context, round domain.RoundID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs := s.doc.Questions[round]
	for i := range qs {
		qs[i].Used = false
	}

	return s.commit(ctx, domain.SourceMutation)
}
