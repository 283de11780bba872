package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hiroki-koketsu/go-todo/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// duplicateTable is the SQLSTATE for "relation already exists".
const duplicateTable = "42P07"

// PostgresStore keeps todos in a PostgreSQL table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore connects to the database at url. table names the todo
// table and is created by EnsureSchema.
func NewPostgresStore(ctx context.Context, url, table string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool, table: pgx.Identifier{table}.Sanitize()}, nil
}

// EnsureSchema creates the table. An existing table counts as success.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`
	CREATE TABLE %s (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		priority TEXT NOT NULL DEFAULT 'medium',
		created_at BIGINT NOT NULL
	)`, s.table)

	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == duplicateTable {
			return nil
		}
		return fmt.Errorf("failed to create todos table: %w", err)
	}
	return nil
}

// List returns all todos, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]*model.TodoItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC`, todoColumns, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := make([]*model.TodoItem, 0)
	for rows.Next() {
		item, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}
	return todos, nil
}

// Put upserts a todo.
func (s *PostgresStore) Put(ctx context.Context, item *model.TodoItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			completed = EXCLUDED.completed,
			priority = EXCLUDED.priority,
			created_at = EXCLUDED.created_at`, s.table, todoColumns)

	_, err := s.pool.Exec(ctx, query,
		item.ID,
		item.Text,
		item.Completed,
		string(item.Priority),
		item.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save todo: %w", err)
	}
	return nil
}

// Get retrieves a todo by its ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*model.TodoItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, todoColumns, s.table)

	item, err := scanTodo(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to query todo: %w", err)
	}
	return item, nil
}

// UpdateFields applies patch and returns the stored row.
func (s *PostgresStore) UpdateFields(ctx context.Context, id string, patch model.TodoPatch) (*model.TodoItem, error) {
	if patch.Empty() {
		return nil, model.ErrNoFieldsToUpdate
	}

	set, args := setClause(patch, func(n int) string { return fmt.Sprintf("$%d", n) })
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d RETURNING %s`, s.table, set, len(args), todoColumns)

	item, err := scanTodo(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return item, nil
}

// Delete removes a todo.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

// Count returns the number of rows.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count todos: %w", err)
	}
	return n, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
