package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"quizrank-service/internal/app"
	"quizrank-service/internal/config"
	"quizrank-service/internal/infra/memory"
	"quizrank-service/internal/infra/postgres"
	rediscache "quizrank-service/internal/infra/redis"
	"quizrank-service/internal/infra/sqlite"
)

// backend bundles the storage chosen by store.driver.
type backend struct {
	store   app.RecordStore
	writer  app.QuestionWriter
	loader  memory.QuestionLoader
	options *rediscache.OptionCache
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, log *logrus.Logger) (*backend, error) {
	b := &backend{}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		b.store, b.writer, b.loader = store, store, store
	case config.DriverSQLite:
		store, err := sqlite.NewStore(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.store, b.writer, b.loader = store, store, store
	case config.DriverPostgres:
		db := postgres.Open(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		store := postgres.NewStore(db)
		b.store, b.writer = store, store

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres pool: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.loader = postgres.NewQuestionLoader(pool)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, option lookups fall back to the store")
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.options = rediscache.NewOptionCache(b.store, client, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		b.store = b.options
	}

	log.WithFields(logrus.Fields{
		"driver": cfg.Store.Driver,
		"redis":  cfg.Redis.Addr != "",
	}).Info("storage ready")
	return b, nil
}
