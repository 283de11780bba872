package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hiroki-koketsu/go-todo/internal/model"
	"github.com/redis/go-redis/v9"
)

// maxUpdateRetries bounds optimistic retries of one update.
const maxUpdateRetries = 100

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps each todo in a hash and tracks ids in a set.
//
//	<prefix>:item:<id>  hash  id, text, completed, priority, createdAt
//	<prefix>:ids        set   all ids
//	<prefix>:schema     string provisioning marker
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(client, opts.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "Todos"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) itemKey(id string) string { return s.prefix + ":item:" + id }
func (s *RedisStore) idsKey() string           { return s.prefix + ":ids" }
func (s *RedisStore) schemaKey() string        { return s.prefix + ":schema" }

// EnsureSchema writes the provisioning marker. A marker left by an earlier
// run is fine.
func (s *RedisStore) EnsureSchema(ctx context.Context) error {
	if err := s.client.SetNX(ctx, s.schemaKey(), time.Now().UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("redis schema marker: %w", err)
	}
	return nil
}

// List returns all todos in no particular order.
func (s *RedisStore) List(ctx context.Context) ([]*model.TodoItem, error) {
	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list ids: %w", err)
	}

	todos := make([]*model.TodoItem, 0, len(ids))
	if len(ids) == 0 {
		return todos, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, s.itemKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list items: %w", err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		// index entry outlived its hash
		if len(fields) == 0 {
			continue
		}
		item, err := decodeHash(fields)
		if err != nil {
			return nil, err
		}
		todos = append(todos, item)
	}
	return todos, nil
}

// Put stores the full item and indexes its id.
func (s *RedisStore) Put(ctx context.Context, item *model.TodoItem) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.itemKey(item.ID))
		p.HSet(ctx, s.itemKey(item.ID), encodeHash(item))
		p.SAdd(ctx, s.idsKey(), item.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Get retrieves a todo by its ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*model.TodoItem, error) {
	fields, err := s.client.HGetAll(ctx, s.itemKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	if len(fields) == 0 {
		return nil, model.ErrTodoNotFound
	}
	return decodeHash(fields)
}

// UpdateFields applies patch under WATCH so a concurrent delete is not undone.
// A transaction aborted by a concurrent write is retried, so the later
// writer wins as on the other backends.
func (s *RedisStore) UpdateFields(ctx context.Context, id string, patch model.TodoPatch) (*model.TodoItem, error) {
	if patch.Empty() {
		return nil, model.ErrNoFieldsToUpdate
	}

	key := s.itemKey(id)
	var updated *model.TodoItem

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return model.ErrTodoNotFound
		}
		item, err := decodeHash(fields)
		if err != nil {
			return err
		}
		item.Apply(patch)

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, encodeHash(item))
			return nil
		})
		if err != nil {
			return err
		}
		updated = item
		return nil
	}

	var err error
	for i := 0; i < maxUpdateRetries; i++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	if err != nil {
		if errors.Is(err, model.ErrTodoNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("redis update: %w", err)
	}
	return updated, nil
}

// Delete removes the item and its index entry.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.itemKey(id))
		p.SRem(ctx, s.idsKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Count returns the size of the id index.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.idsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis count: %w", err)
	}
	return n, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeHash(item *model.TodoItem) map[string]any {
	return map[string]any{
		"id":        item.ID,
		"text":      item.Text,
		"completed": strconv.FormatBool(item.Completed),
		"priority":  string(item.Priority),
		"createdAt": item.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeHash(fields map[string]string) (*model.TodoItem, error) {
	completed, err := strconv.ParseBool(fields["completed"])
	if err != nil {
		return nil, fmt.Errorf("redis decode completed: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["createdAt"])
	if err != nil {
		return nil, fmt.Errorf("redis decode createdAt: %w", err)
	}
	return &model.TodoItem{
		ID:        fields["id"],
		Text:      fields["text"],
		Completed: completed,
		Priority:  model.Priority(strings.TrimSpace(fields["priority"])),
		CreatedAt: createdAt,
	}, nil
}
