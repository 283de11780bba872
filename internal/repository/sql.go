package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/hiroki-koketsu/go-todo/internal/model"
)

const todoColumns = "id, text, completed, priority, created_at"

// quoteIdent quotes a table name for use in SQL text.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// setClause renders the SET list for a patch. placeholder maps the 1-based
// argument position to the driver's bind syntax.
func setClause(patch model.TodoPatch, placeholder func(n int) string) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", col, placeholder(len(args))))
	}

	if patch.Text != nil {
		add("text", strings.TrimSpace(*patch.Text))
	}
	if patch.Completed != nil {
		add("completed", *patch.Completed)
	}
	if patch.Priority != nil {
		add("priority", string(*patch.Priority))
	}
	return strings.Join(sets, ", "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTodo reads one row selected with todoColumns.
func scanTodo(row rowScanner) (*model.TodoItem, error) {
	var (
		item      model.TodoItem
		priority  string
		createdAt int64
	)
	if err := row.Scan(&item.ID, &item.Text, &item.Completed, &priority, &createdAt); err != nil {
		return nil, err
	}
	item.Priority = model.Priority(priority)
	item.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &item, nil
}
