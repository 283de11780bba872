package repository

import (
	"context"
	"fmt"

	"github.com/hiroki-koketsu/go-todo/internal/config"
	"github.com/hiroki-koketsu/go-todo/internal/model"
)

// TodoStore is the durable keyed storage behind the todo API.
//
// Get and UpdateFields return model.ErrTodoNotFound for unknown ids. Delete
// is idempotent. List makes no ordering promise.
type TodoStore interface {
	EnsureSchema(ctx context.Context) error
	List(ctx context.Context) ([]*model.TodoItem, error)
	Put(ctx context.Context, item *model.TodoItem) error
	Get(ctx context.Context, id string) (*model.TodoItem, error)
	UpdateFields(ctx context.Context, id string, patch model.TodoPatch) (*model.TodoItem, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Open connects to the backend named in cfg and wraps it with tracing.
// The schema is not provisioned; callers run EnsureSchema once at startup.
func Open(ctx context.Context, cfg config.StoreConfig) (TodoStore, error) {
	var (
		store TodoStore
		err   error
	)

	switch cfg.Backend {
	case "", "memory":
		store = NewMemoryStore()
	case "sqlite":
		store, err = NewSQLiteStore(cfg.SQLitePath, cfg.Table)
	case "redis":
		store, err = NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Table,
		})
	case "postgres":
		store, err = NewPostgresStore(ctx, cfg.DatabaseURL, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	return WithTracing(store, cfg.Backend), nil
}
