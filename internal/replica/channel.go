package replica

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/telemetry"
)

type Config struct {
	// Persisters is the save fallback chain, durable leg first. Load walks
	// the same order and returns the first document found.
	Persisters []Persister
	// Redis carries the cross-context change notification.
	Redis   redis.UniversalClient
	Channel string
}

// Channel makes the document outlive a single context and propagates it to
// the others. Saves walk the persister chain until one leg succeeds; the
// change notification carries only an opaque revision token, so receivers
// always reload the whole document. Last writer wins, by design.
type Channel struct {
	persisters []Persister
	rc         redis.UniversalClient
	channel    string
}

func New(c Config) *Channel {
	return &Channel{
		persisters: c.Persisters,
		rc:         c.Redis,
		channel:    c.Channel,
	}
}

// Save persists the serialized document and, on success at any level,
// broadcasts the revision token. Each fallback leg is attempted only after
// the previous one failed; only total exhaustion is reported as failure.
func (c *Channel) Save(ctx context.Context, data []byte, revision string) error {
	var errs []error
	for i, p := range c.persisters {
		err := p.Save(ctx, data)
		if err == nil {
			telemetry.DocumentSaves.WithLabelValues(p.Name()).Inc()
			if i > 0 {
				slog.WarnContext(ctx, "replica: saved via fallback store",
					"store", p.Name(),
					"attempts", i+1,
				)
			}
			c.notify(ctx, revision)
			return nil
		}

		telemetry.DocumentSaveFailures.WithLabelValues(p.Name()).Inc()
		if !errors.Is(err, ErrDisabled) {
			slog.WarnContext(ctx, "replica: save failed, falling through",
				"store", p.Name(),
				"error", err,
			)
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	return apperrors.New(apperrors.CodeUnavailable,
		apperrors.WithMessagef("document save exhausted all stores"),
		apperrors.WithCause(errors.Join(errs...)),
	)
}

// Load returns the serialized document from the first store that has one,
// walking the chain durable-first. ErrNoDocument means no store has a
// document yet (first run on this device).
func (c *Channel) Load(ctx context.Context) ([]byte, error) {
	for _, p := range c.persisters {
		data, err := p.Load(ctx)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNoDocument) {
			slog.WarnContext(ctx, "replica: load failed, trying next store",
				"store", p.Name(),
				"error", err,
			)
		}
	}
	return nil, ErrNoDocument
}

func (c *Channel) notify(ctx context.Context, revision string) {
	if c.rc == nil {
		return
	}
	if err := c.rc.Publish(ctx, c.channel, revision).Err(); err != nil {
		// A missed notification is recovered by the periodic reconcile.
		slog.WarnContext(ctx, "replica: change broadcast failed", "error", err)
	}
}

// Watch blocks, invoking onChange for every change notification until ctx is
// cancelled. The payload is an opaque token and may be empty; either way the
// receiver must treat the message as "reload everything".
func (c *Channel) Watch(ctx context.Context, onChange func(ctx context.Context, token string)) error {
	if c.rc == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	sub := c.rc.Subscribe(ctx, c.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			telemetry.BroadcastsReceived.Inc()
			onChange(ctx, msg.Payload)
		}
	}
}
