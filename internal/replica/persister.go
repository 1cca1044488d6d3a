package replica

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ErrNoDocument is returned by Load when a persister holds no document yet.
var ErrNoDocument = errors.New("replica: no document")

// ErrDisabled is returned by a persister whose precondition is not met (no
// granted file handle, auto-save off). The chain treats it like any other
// save failure and falls through.
var ErrDisabled = errors.New("replica: persister disabled")

// Persister stores and retrieves the serialized session document. The
// document is always written and read whole; there is no partial update.
type Persister interface {
	Name() string
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// PostgresStore is the durable leg of the chain: one row per document name,
// upserted wholesale on every save.
type PostgresStore struct {
	db   *pgxpool.Pool
	name string
}

func NewPostgresStore(db *pgxpool.Pool, name string) *PostgresStore {
	return &PostgresStore{db: db, name: name}
}

func (s *PostgresStore) Name() string { return "postgres" }

// EnsureSchema creates the document table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS session_documents (
	name       TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, data []byte) error {
	const stmt = `
INSERT INTO session_documents (name, doc, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now();`

	if _, err := s.db.Exec(ctx, stmt, s.name, data); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	const stmt = `SELECT doc FROM session_documents WHERE name = $1;`

	var data []byte
	err := s.db.QueryRow(ctx, stmt, s.name).Scan(&data)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		// pgx.ErrNoRows and transport errors alike mean no usable document here.
		return nil, ErrNoDocument
	}
	return data, nil
}

// RedisStore is the shorter-lived fallback: the document is kept under a TTL
// so a device that loses its durable store still survives a reload, without
// the key outliving the event.
type RedisStore struct {
	rc  redis.UniversalClient
	key string
	ttl time.Duration
}

func NewRedisStore(rc redis.UniversalClient, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{rc: rc, key: key, ttl: ttl}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	if err := s.rc.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.rc.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return data, nil
}

// FileStore writes through a previously granted data file. It only
// participates while its gate reports auto-save enabled; otherwise every save
// falls through to the next leg.
type FileStore struct {
	path    string
	enabled func() bool
}

func NewFileStore(path string, enabled func() bool) *FileStore {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &FileStore{path: path, enabled: enabled}
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Save(_ context.Context, data []byte) error {
	if s.path == "" || !s.enabled() {
		return ErrDisabled
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) ([]byte, error) {
	if s.path == "" {
		return nil, ErrNoDocument
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("read data file: %w", err)
	}
	return data, nil
}

// BackupStore is the last resort: each save lands in a fresh timestamped
// artifact the operator can import manually later. It is write-only.
type BackupStore struct {
	dir string
}

func NewBackupStore(dir string) *BackupStore {
	return &BackupStore{dir: dir}
}

func (s *BackupStore) Name() string { return "backup" }

func (s *BackupStore) Save(_ context.Context, data []byte) error {
	if s.dir == "" {
		return ErrDisabled
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("quiz-data-backup-%s-%s.json",
		time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

func (s *BackupStore) Load(_ context.Context) ([]byte, error) {
	return nil, ErrNoDocument
}
