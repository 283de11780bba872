package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hiroki-koketsu/go-todo/internal/model"
)

// MemoryStore provides an in-memory storage for todos.
type MemoryStore struct {
	mu    sync.RWMutex
	todos map[string]*model.TodoItem
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		todos: make(map[string]*model.TodoItem),
	}
}

// EnsureSchema has nothing to provision for the map.
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	return nil
}

// List returns copies of all todos, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]*model.TodoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	todos := make([]*model.TodoItem, 0, len(s.todos))
	for _, item := range s.todos {
		c := *item
		todos = append(todos, &c)
	}
	sort.Slice(todos, func(i, j int) bool {
		return todos[i].CreatedAt.After(todos[j].CreatedAt)
	})
	return todos, nil
}

// Put inserts or replaces a todo.
func (s *MemoryStore) Put(ctx context.Context, item *model.TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *item
	s.todos[item.ID] = &c
	return nil
}

// Get retrieves a todo by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.TodoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.todos[id]
	if !ok {
		return nil, model.ErrTodoNotFound
	}
	c := *item
	return &c, nil
}

// UpdateFields modifies an existing todo.
func (s *MemoryStore) UpdateFields(ctx context.Context, id string, patch model.TodoPatch) (*model.TodoItem, error) {
	if patch.Empty() {
		return nil, model.ErrNoFieldsToUpdate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.todos[id]
	if !ok {
		return nil, model.ErrTodoNotFound
	}

	item.Apply(patch)
	c := *item
	return &c, nil
}

// Delete removes a todo. Unknown ids are ignored.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.todos, id)
	return nil
}

// Count returns the current number of todos.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.todos)), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
