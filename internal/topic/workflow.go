package topic

import (
	"context"
	"log/slog"
	"strings"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/store"
)

type Config struct {
	Store *store.Store
}

// Workflow drives the topic round: publishing the tile board, keeping the
// turn order, and turning a picked topic into the question on stage. All
// state lives in the session document; the workflow only composes store
// operations and enforces the selection rules.
type Workflow struct {
	store *store.Store
}

func NewWorkflow(c Config) *Workflow {
	return &Workflow{store: c.Store}
}

// CollectTopics gathers every topic known to the session: the curated list
// plus any topic tagged on a question bank entry.
func (w *Workflow) CollectTopics() []string {
	doc := w.store.Snapshot()

	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}

	for _, t := range doc.Topics {
		add(t)
	}
	for _, t := range doc.DistinctTopics() {
		add(t)
	}
	return out
}

// PublishTopics pushes the collected topics to the pool and flips the stage
// to the all-topics board.
func (w *Workflow) PublishTopics(ctx context.Context) error {
	topics := w.CollectTopics()
	if len(topics) == 0 {
		return apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("publish topics: no topics to publish"),
		)
	}
	if err := w.store.SetTopicPool(ctx, topics); err != nil {
		return err
	}
	return w.store.SetDisplayMode(ctx, domain.ModeAllTopics)
}

func (w *Workflow) Enqueue(ctx context.Context, topic string) error {
	return w.store.EnqueueTopic(ctx, topic)
}

// DequeueNext pops the front of the turn order and puts that topic's
// question on stage.
func (w *Workflow) DequeueNext(ctx context.Context) (domain.Question, error) {
	doc := w.store.Snapshot()
	if len(doc.TopicQueue) == 0 {
		return domain.Question{}, apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("dequeue topic: queue is empty"),
		)
	}

	front := doc.TopicQueue[0]
	chosen, ok := pickQuestion(doc, front)
	if !ok {
		return domain.Question{}, apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("dequeue topic: no questions for topic %q", front),
		)
	}

	if _, err := w.store.PopTopicQueue(ctx); err != nil {
		return domain.Question{}, err
	}
	return chosen, w.stage(ctx, front, chosen)
}

// Select handles a tile pick. With turn-by-turn enabled only the front of
// the queue is eligible and picking it consumes the turn; everything is
// validated before any state changes, so a rejected pick leaves the document
// untouched.
func (w *Workflow) Select(ctx context.Context, topic string) (domain.Question, error) {
	doc := w.store.Snapshot()

	chosen, ok := pickQuestion(doc, topic)
	if !ok {
		return domain.Question{}, apperrors.New(apperrors.CodeFailedPrecondition,
			apperrors.WithMessagef("select topic: no questions for topic %q", topic),
		)
	}

	frontOfQueue := false
	if doc.TopicTurnByTurn && len(doc.TopicQueue) > 0 {
		if !strings.EqualFold(doc.TopicQueue[0], topic) {
			return domain.Question{}, apperrors.New(apperrors.CodeFailedPrecondition,
				apperrors.WithMessagef("select topic: %q is not the front of the queue", topic),
			)
		}
		frontOfQueue = true
	}

	if frontOfQueue {
		if _, err := w.store.PopTopicQueue(ctx); err != nil {
			return domain.Question{}, err
		}
	}
	return chosen, w.stage(ctx, topic, chosen)
}

// Available reports how many unused questions a topic still has.
func (w *Workflow) Available(topic string) int {
	return remaining(w.store.Snapshot(), topic)
}

// TopicAvailability is one tile of the board as the display should draw it.
type TopicAvailability struct {
	Topic      string `json:"topic"`
	Remaining  int    `json:"remaining"`
	Selectable bool   `json:"selectable"`
}

// Availability reports every known topic with the same eligibility rules
// Select enforces, so the display can disable tiles a pick would reject.
func (w *Workflow) Availability() []TopicAvailability {
	doc := w.store.Snapshot()

	topics := w.CollectTopics()
	out := make([]TopicAvailability, 0, len(topics))
	for _, topic := range topics {
		selectable := len(doc.TopicQuestions(topic)) > 0
		if doc.TopicTurnByTurn && len(doc.TopicQueue) > 0 {
			selectable = selectable && strings.EqualFold(doc.TopicQueue[0], topic)
		}
		out = append(out, TopicAvailability{
			Topic:      topic,
			Remaining:  remaining(doc, topic),
			Selectable: selectable,
		})
	}
	return out
}

func remaining(doc *domain.SessionDocument, topic string) int {
	n := 0
	for _, q := range doc.TopicQuestions(topic) {
		if !q.Used {
			n++
		}
	}
	return n
}

func (w *Workflow) stage(ctx context.Context, topic string, q domain.Question) error {
	if err := w.store.SetSelectedTopic(ctx, topic); err != nil {
		return err
	}
	if _, err := w.store.SetCurrentQuestion(ctx, domain.RoundTopic, q.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "topic: staged question", "topic", topic, "question_id", q.ID)
	return w.store.SetDisplayMode(ctx, domain.ModeQuestion)
}

// pickQuestion returns the first unused question tagged with the topic, or
// the first tagged question at all when every one has been used.
func pickQuestion(doc *domain.SessionDocument, topic string) (domain.Question, bool) {
	candidates := doc.TopicQuestions(topic)
	if len(candidates) == 0 {
		return domain.Question{}, false
	}
	for _, q := range candidates {
		if !q.Used {
			return q, true
		}
	}
	return candidates[0], true
}
