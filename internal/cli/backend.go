package cli

import (
	"context"
	"fmt"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/config"
	"chapter-quiz-service/internal/infra/memory"
	"chapter-quiz-service/internal/infra/postgres"
	"chapter-quiz-service/internal/infra/sqlite"
	"chapter-quiz-service/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// store is what both SQL backends provide.
type store interface {
	app.ChapterStore
	app.ScoreStore
	app.UserStore
	memory.AnswerKeyLoader
	Ping(ctx context.Context) error
}

type backend struct {
	store   store
	redis   *redis.Client
	closers []func()
}

// openBackend migrates and opens Postgres when a URL is configured, SQLite
// otherwise, plus Redis when an address is set.
func openBackend(ctx context.Context, cfg config.Config, log *logger.Logger) (*backend, error) {
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return nil, err
	}

	b := &backend{}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.store = postgres.NewStore(pool)
		b.closers = append(b.closers, pool.Close)
		log.Info("using postgres store")
	} else {
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.store = s
		b.closers = append(b.closers, func() { _ = s.Close() })
		log.Info("using sqlite store", "path", cfg.SQLite.Path)
	}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			_ = b.redis.Close()
			b.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.closers = append(b.closers, func() { _ = b.redis.Close() })
		log.Info("using redis", "addr", cfg.Redis.Addr)
	}
	return b, nil
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
