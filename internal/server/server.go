package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/quizmania/stage/internal/api"
	"github.com/quizmania/stage/internal/control"
	"github.com/quizmania/stage/internal/display"
	"github.com/quizmania/stage/internal/domain"
	"github.com/quizmania/stage/internal/event"
	"github.com/quizmania/stage/internal/rapidfire"
	"github.com/quizmania/stage/internal/replica"
	"github.com/quizmania/stage/internal/store"
	"github.com/quizmania/stage/internal/telemetry"
	"github.com/quizmania/stage/internal/timer"
	"github.com/quizmania/stage/internal/topic"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Addrs      []string
		Pass       string
		Key        string
		Channel    string
		TTLSeconds int
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Document struct {
		Name      string
		FilePath  string
		BackupDir string
	}

	ReconcileSeconds int
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
	}

	replica *replica.Channel
	store   *store.Store

	service struct {
		control   *control.Service
		topics    *topic.Workflow
		rapidfire *rapidfire.Service
	}

	machine *display.Machine

	engine struct {
		question  *timer.Engine
		rapidfire *timer.Engine
	}

	http *http.Server

	stopBackground context.CancelFunc
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initStore(); err != nil {
		return nil, fmt.Errorf("server: init store: %w", err)
	}

	s.initService()
	s.initEngines()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s",
		s.c.Postgres.User, s.c.Postgres.Pass, s.c.Postgres.Addr, s.c.Postgres.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initStore() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg := replica.NewPostgresStore(s.infra.postgres, s.c.Document.Name)
	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}

	ttl := time.Duration(s.c.Redis.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	s.replica = replica.New(replica.Config{
		Persisters: []replica.Persister{
			pg,
			replica.NewRedisStore(s.infra.redis, s.c.Redis.Key, ttl),
			replica.NewFileStore(s.c.Document.FilePath, s.autoSaveEnabled),
			replica.NewBackupStore(s.c.Document.BackupDir),
		},
		Redis:   s.infra.redis,
		Channel: s.c.Redis.Channel,
	})

	s.store = store.New(store.Config{
		Replica:  s.replica,
		EventBus: s.eb,
	})
	return s.store.Open(ctx)
}

// autoSaveEnabled gates the data-file leg on the operator's setting. The
// gate runs inside Replica.Save while the store holds its lock, so it must
// read the lock-free accessor, never Snapshot. The store must exist before
// the first save, which Init guarantees.
func (s *Server) autoSaveEnabled() bool {
	return s.store != nil && s.store.AutoSaveEnabled()
}

func (s *Server) initService() {
	s.service.control = control.NewService(control.Config{
		Store: s.store,
	})

	s.service.topics = topic.NewWorkflow(topic.Config{
		Store: s.store,
	})

	s.service.rapidfire = rapidfire.NewService(rapidfire.Config{
		Store: s.store,
	})

	s.machine = display.NewMachine(display.Config{
		Store:    s.store,
		EventBus: s.eb,
	})
}

func (s *Server) initEngines() {
	s.engine.question = timer.NewEngine(timer.Config{
		Kind: domain.TimerQuestion,
		Source: func() timer.Snapshot {
			return display.QuestionTimerSnapshot(s.store.Snapshot())
		},
		OnExpire: func(ctx context.Context) {
			if err := s.store.StopTimer(ctx); err != nil {
				slog.ErrorContext(ctx, "server: stop expired timer failed", "error", err)
			}
			s.eb.Publish(ctx, domain.EventTimerExpired{Kind: domain.TimerQuestion})
		},
	})

	s.engine.rapidfire = timer.NewEngine(timer.Config{
		Kind: domain.TimerRapidFire,
		Source: func() timer.Snapshot {
			return display.RapidFireTimerSnapshot(s.store.Snapshot())
		},
		OnExpire: func(ctx context.Context) {
			if err := s.service.rapidfire.End(ctx); err != nil {
				slog.ErrorContext(ctx, "server: end expired rapid fire failed", "error", err)
			}
			s.eb.Publish(ctx, domain.EventTimerExpired{Kind: domain.TimerRapidFire})
		},
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Router:    e,
		Store:     s.store,
		Control:   s.service.control,
		Topics:    s.service.topics,
		RapidFire: s.service.rapidfire,
		Machine:   s.machine,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel

	var eg errgroup.Group

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Cross-context change notifications: any broadcast means reload the
	// whole document, whatever the token says.
	eg.Go(func() error {
		err := s.replica.Watch(ctx, func(ctx context.Context, token string) {
			if err := s.store.Reload(ctx); err != nil {
				slog.ErrorContext(ctx, "server: reload after broadcast failed", "error", err)
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Periodic reconcile covers missed broadcasts.
	eg.Go(func() error {
		interval := time.Duration(s.c.ReconcileSeconds) * time.Second
		if interval <= 0 {
			interval = 30 * time.Second
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if err := s.store.Reload(ctx); err != nil {
					slog.WarnContext(ctx, "server: periodic reconcile failed", "error", err)
				}
			}
		}
	})

	eg.Go(func() error {
		if err := s.engine.question.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		if err := s.engine.rapidfire.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.stopBackground != nil {
		s.stopBackground()
	}

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.machine.Stop()
	s.eb.Stop()

	s.infra.postgres.Close()
	if err := s.infra.redis.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
