package model

import (
	"errors"
	"strings"
	"time"
)

// Priority tags a todo item with its urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every valid priority in ascending order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Next returns the following priority, wrapping from high back to low.
func (p Priority) Next() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityLow
	}
}

// ParsePriority converts user input into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// TodoItem represents a single task on the list.
type TodoItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Priority  Priority  `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTodoItem builds a fresh, uncompleted item. An empty priority defaults to medium.
func NewTodoItem(id, text string, priority Priority, now time.Time) *TodoItem {
	if priority == "" {
		priority = PriorityMedium
	}
	return &TodoItem{
		ID:        id,
		Text:      strings.TrimSpace(text),
		Completed: false,
		Priority:  priority,
		CreatedAt: now,
	}
}

// Apply copies the fields present in the patch onto the item.
func (t *TodoItem) Apply(p TodoPatch) {
	if p.Text != nil {
		t.Text = strings.TrimSpace(*p.Text)
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}

// TodoPatch is a partial update of the mutable fields of a TodoItem.
type TodoPatch struct {
	Text      *string
	Completed *bool
	Priority  *Priority
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Text == nil && p.Completed == nil && p.Priority == nil
}

// Validate checks that the patch keeps the item invariants intact.
func (p TodoPatch) Validate() error {
	if p.Empty() {
		return ErrNoFieldsToUpdate
	}
	if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		return ErrTextEmpty
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// CreateTodoRequest represents the request body for creating a todo.
type CreateTodoRequest struct {
	Text     string   `json:"text"`
	Priority Priority `json:"priority,omitempty"`
}

// Validate checks if the CreateTodoRequest is valid.
func (r *CreateTodoRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrTextRequired
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// UpdateTodoRequest represents the request body for updating a todo.
// Absent fields are left untouched.
type UpdateTodoRequest struct {
	ID        string    `json:"id"`
	Text      *string   `json:"text,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
	Priority  *Priority `json:"priority,omitempty"`
}

// Patch extracts the field changes carried by the request.
func (r *UpdateTodoRequest) Patch() TodoPatch {
	return TodoPatch{Text: r.Text, Completed: r.Completed, Priority: r.Priority}
}

// Validate checks if the UpdateTodoRequest is valid.
func (r *UpdateTodoRequest) Validate() error {
	if r.ID == "" {
		return ErrIDRequired
	}
	return r.Patch().Validate()
}

// DeleteTodoRequest represents the request body for deleting a todo.
type DeleteTodoRequest struct {
	ID string `json:"id"`
}

// Validate checks if the DeleteTodoRequest is valid.
func (r *DeleteTodoRequest) Validate() error {
	if r.ID == "" {
		return ErrIDRequired
	}
	return nil
}

// LoginRequest carries the stub credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DeleteResponse acknowledges a delete.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TodoError represents a domain error for todos.
type TodoError struct {
	Message string
}

func (e TodoError) Error() string {
	return e.Message
}

var (
	ErrTodoNotFound     = TodoError{Message: "Todo not found"}
	ErrTextRequired     = TodoError{Message: "Todo text is required"}
	ErrTextEmpty        = TodoError{Message: "Todo text cannot be empty"}
	ErrIDRequired       = TodoError{Message: "Todo ID is required"}
	ErrNoFieldsToUpdate = TodoError{Message: "No fields to update"}
	ErrInvalidPriority  = TodoError{Message: "Invalid priority"}
)

// IsValidationError reports whether err was caused by bad caller input.
func IsValidationError(err error) bool {
	for _, v := range []error{ErrTextRequired, ErrTextEmpty, ErrIDRequired, ErrNoFieldsToUpdate, ErrInvalidPriority} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
