package store

import (
	"context"
	"strings"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
)

func (s *Store) AddTopic(ctx context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("add topic: name is required"),
		)
	}
	for _, t := range s.doc.Topics {
		if strings.EqualFold(t, topic) {
			return apperrors.New(apperrors.CodeAlreadyExists,
				apperrors.WithMessagef("add topic: %q already exists", topic),
			)
		}
	}
	s.doc.Topics = append(s.doc.Topics, topic)

	return s.commit(ctx, domain.SourceMutation)
}

func (s *Store) RemoveTopic(ctx context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.doc.Topics {
		if strings.EqualFold(t, topic) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.notFound(ctx, "remove topic: %q not found", topic)
	}
	s.doc.Topics = append(s.doc.Topics[:idx], s.doc.Topics[idx+1:]...)

	return s.commit(ctx, domain.SourceMutation)
}

// SetTopicPool replaces the published pool shown on the all-topics board.
func (s *Store) SetTopicPool(ctx context.Context, topics []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			pool = append(pool, t)
		}
	}
	s.doc.TopicPool = pool

	return s.commit(ctx, domain.SourceMutation)
}

func (s *Store) ClearTopicPool(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.TopicPool = []string{}
	return s.commit(ctx, domain.SourceMutation)
}

// EnqueueTopic appends a topic to the turn order. Duplicates are allowed;
// a topic may legitimately be played by more than one team.
func (s *Store) EnqueueTopic(ctx context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("enqueue topic: name is required"),
		)
	}
	s.doc.TopicQueue = append(s.doc.TopicQueue, topic)

	return s.commit(ctx, domain.SourceMutation)
}

// PopTopicQueue removes and returns the front of the turn order.
func (s *Store) PopTopicQueue(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.doc.TopicQueue) == 0 {
		return "", apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("pop topic queue: queue is empty"),
		)
	}
	front := s.doc.TopicQueue[0]
	s.doc.TopicQueue = s.doc.TopicQueue[1:]

	return front, s.commit(ctx, domain.SourceMutation)
}

func (s *Store) ClearTopicQueue(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.TopicQueue = []string{}
	return s.commit(ctx, domain.SourceMutation)
}

func (s *Store) SetTopicTurnByTurn(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.TopicTurnByTurn = on
	return s.commit(ctx, domain.SourceMutation)
}

// SetSelectedTopic records which topic is in play. An empty topic clears the
// selection.
func (s *Store) SetSelectedTopic(ctx context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.SelectedTopic = strings.TrimSpace(topic)
	return s.commit(ctx, domain.SourceMutation)
}
