package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizmania/stage/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a subscriber only receives the events it subscribed to": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("document.updated"),
						eventWithName("teams.updated"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"document.updated"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("document.updated")}, out.received["s1"])
			},
		},

		"an event is dispatched to every subscriber": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("display.mode_changed"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"display.mode_changed"},
						},
						{
							name:        "s2",
							subscribeTo: []string{"display.mode_changed"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("display.mode_changed")}, out.received["s1"])
				assert.ElementsMatch(t, []event.Event{eventWithName("display.mode_changed")}, out.received["s2"])
			},
		},

		"repeated events are all delivered": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("document.updated"),
						eventWithName("document.updated"),
						eventWithName("timer.expired"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"document.updated", "timer.expired"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{
					eventWithName("document.updated"),
					eventWithName("document.updated"),
					eventWithName("timer.expired"),
				}, out.received["s1"])
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus()
			for _, s := range in.subscribers {
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

func TestBus_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	b := event.NewBus()

	b.Subscribe("document.updated", func(ctx context.Context, e event.Event) error {
		return errors.New("handler failed")
	})
	b.Subscribe("document.updated", func(ctx context.Context, e event.Event) error {
		panic("handler panicked")
	})

	var mu sync.Mutex
	var delivered int
	b.Subscribe("document.updated", func(ctx context.Context, e event.Event) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	b.Publish(context.Background(), eventWithName("document.updated"))
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, delivered, "the healthy handler should still run")
}

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}

type subscriber struct {
	name        string
	subscribeTo []string
}
