package replica_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	apperrors "github.com/quizmania/stage/internal/errors"
	"github.com/quizmania/stage/internal/replica"
)

func TestChannel_SaveUsesTheDurableLegFirst(t *testing.T) {
	durable := &memStore{name: "durable"}
	fallback := &memStore{name: "fallback"}
	c := replica.New(replica.Config{Persisters: []replica.Persister{durable, fallback}})

	require.NoError(t, c.Save(context.Background(), []byte(`{"v":1}`), "r1"))
	require.Equal(t, []byte(`{"v":1}`), durable.data)
	require.Nil(t, fallback.data, "the fallback leg should not be touched on success")
}

func TestChannel_SaveFallsThroughOnFailure(t *testing.T) {
	durable := &memStore{name: "durable", saveErr: errors.New("disk on fire")}
	fallback := &memStore{name: "fallback"}
	c := replica.New(replica.Config{Persisters: []replica.Persister{durable, fallback}})

	require.NoError(t, c.Save(context.Background(), []byte(`{"v":2}`), "r2"),
		"success on any leg is success for the caller")
	require.Equal(t, []byte(`{"v":2}`), fallback.data)
}

func TestChannel_SaveExhaustion(t *testing.T) {
	a := &memStore{name: "a", saveErr: errors.New("down")}
	b := &memStore{name: "b", saveErr: errors.New("also down")}
	c := replica.New(replica.Config{Persisters: []replica.Persister{a, b}})

	err := c.Save(context.Background(), []byte(`{}`), "r3")
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable), "want unavailable, got: %v", err)
}

func TestChannel_LoadWalksTheChain(t *testing.T) {
	empty := &memStore{name: "empty"}
	holding := &memStore{name: "holding", data: []byte(`{"v":3}`)}
	c := replica.New(replica.Config{Persisters: []replica.Persister{empty, holding}})

	data, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte(`{"v":3}`), data)
}

func TestChannel_LoadWithNoDocumentAnywhere(t *testing.T) {
	c := replica.New(replica.Config{Persisters: []replica.Persister{&memStore{name: "a"}, &memStore{name: "b"}}})

	_, err := c.Load(context.Background())
	require.ErrorIs(t, err, replica.ErrNoDocument)
}

func TestChannel_SaveBroadcastsTheRevision(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc := makeRedis(t)
	c := replica.New(replica.Config{
		Persisters: []replica.Persister{&memStore{name: "durable"}},
		Redis:      rc,
		Channel:    "stage:changed",
	})

	got := make(chan string, 1)
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		_ = c.Watch(watchCtx, func(_ context.Context, token string) {
			got <- token
		})
	}()

	// Give the subscriber a moment to attach.
	require.Eventually(t, func() bool {
		require.NoError(t, c.Save(ctx, []byte(`{}`), "rev-42"))
		select {
		case token := <-got:
			require.Equal(t, "rev-42", token)
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	s := replica.NewRedisStore(makeRedis(t), "stage:doc", time.Hour)

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, replica.ErrNoDocument)

	require.NoError(t, s.Save(ctx, []byte(`{"v":4}`)))

	data, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"v":4}`), data)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quiz-data.json")

	enabled := true
	s := replica.NewFileStore(path, func() bool { return enabled })

	require.NoError(t, s.Save(ctx, []byte(`{"v":5}`)))
	data, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"v":5}`), data)

	// With auto-save off the leg steps aside so the chain falls through.
	enabled = false
	require.ErrorIs(t, s.Save(ctx, []byte(`{}`)), replica.ErrDisabled)
}

func TestBackupStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := replica.NewBackupStore(dir)

	require.NoError(t, s.Save(ctx, []byte(`{"v":6}`)))
	require.NoError(t, s.Save(ctx, []byte(`{"v":7}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "each save should land in a fresh artifact")

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, replica.ErrNoDocument, "backups are write-only")
}

type memStore struct {
	name    string
	data    []byte
	saveErr error
}

func (m *memStore) Name() string { return m.name }

func (m *memStore) Save(_ context.Context, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Load(_ context.Context) ([]byte, error) {
	if m.data == nil {
		return nil, replica.ErrNoDocument
	}
	return m.data, nil
}

func makeRedis(t *testing.T) redis.UniversalClient {
	t.Helper()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(context.Background()).Err(), "should be able to ping redis")
	return rc
}
