package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hiroki-koketsu/go-todo/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps todos in a single SQLite table.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLiteStore opens (creating if needed) the database file at path. table
// names the todo table and is created by EnsureSchema.
func NewSQLiteStore(path, table string) (*SQLiteStore, error) {
	if table == "" {
		table = "todos"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, table: quoteIdent(table)}, nil
}

// EnsureSchema creates the table when absent.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT 'medium',
		created_at INTEGER NOT NULL
	)`, s.table)

	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create todos table: %w", err)
	}
	return nil
}

// List returns all todos, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*model.TodoItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC`, todoColumns, s.table)

	rows, err := s.db.QueryContext(ctx, query)
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
func (s *SQLiteStore) Put(ctx context.Context, item *model.TodoItem) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s) VALUES (?, ?, ?, ?, ?)`, s.table, todoColumns)

	_, err := s.db.ExecContext(ctx, query,
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
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.TodoItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, todoColumns, s.table)

	item, err := scanTodo(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to query todo: %w", err)
	}
	return item, nil
}

// UpdateFields applies patch and returns the stored row.
func (s *SQLiteStore) UpdateFields(ctx context.Context, id string, patch model.TodoPatch) (*model.TodoItem, error) {
	if patch.Empty() {
		return nil, model.ErrNoFieldsToUpdate
	}

	set, args := setClause(patch, func(int) string { return "?" })
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ? RETURNING %s`, s.table, set, todoColumns)
	args = append(args, id)

	item, err := scanTodo(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return item, nil
}

// Delete removes a todo.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

// Count returns the number of rows.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count todos: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
