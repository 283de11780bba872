package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewTodoItem(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	item := NewTodoItem("id-1", "  Buy milk  ", "", now)
	assert.Equal(t, "id-1", item.ID)
	assert.Equal(t, "Buy milk", item.Text)
	assert.False(t, item.Completed)
	assert.Equal(t, PriorityMedium, item.Priority)
	assert.Equal(t, now, item.CreatedAt)

	item = NewTodoItem("id-2", "Ship it", PriorityHigh, now)
	assert.Equal(t, PriorityHigh, item.Priority)
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"low", PriorityLow, false},
		{"MEDIUM", PriorityMedium, false},
		{" high ", PriorityHigh, false},
		{"urgent", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePriority(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPriority)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPriorityNextCycles(t *testing.T) {
	p := PriorityLow
	seen := []Priority{p}
	for i := 0; i < 3; i++ {
		p = p.Next()
		seen = append(seen, p)
	}
	assert.Equal(t, []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityLow}, seen)
	assert.Equal(t, Priorities, seen[:3])
	for _, p := range Priorities {
		assert.True(t, p.Valid())
	}
}

func TestCreateTodoRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  CreateTodoRequest
		want error
	}{
		{"valid", CreateTodoRequest{Text: "Buy milk"}, nil},
		{"valid with priority", CreateTodoRequest{Text: "Buy milk", Priority: PriorityLow}, nil},
		{"empty text", CreateTodoRequest{Text: ""}, ErrTextRequired},
		{"whitespace text", CreateTodoRequest{Text: " \t\n "}, ErrTextRequired},
		{"bad priority", CreateTodoRequest{Text: "x", Priority: "urgent"}, ErrInvalidPriority},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateTodoRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  UpdateTodoRequest
		want error
	}{
		{"missing id and fields", UpdateTodoRequest{}, ErrIDRequired},
		{"missing id", UpdateTodoRequest{Completed: ptr(true)}, ErrIDRequired},
		{"no fields", UpdateTodoRequest{ID: "X"}, ErrNoFieldsToUpdate},
		{"blank text", UpdateTodoRequest{ID: "X", Text: ptr("   ")}, ErrTextEmpty},
		{"bad priority", UpdateTodoRequest{ID: "X", Priority: ptr(Priority("nope"))}, ErrInvalidPriority},
		{"completed only", UpdateTodoRequest{ID: "X", Completed: ptr(false)}, nil},
		{"all fields", UpdateTodoRequest{ID: "X", Text: ptr("t"), Completed: ptr(true), Priority: ptr(PriorityHigh)}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestTodoItemApply(t *testing.T) {
	item := NewTodoItem("1", "old", PriorityLow, time.Now())

	item.Apply(TodoPatch{Completed: ptr(true)})
	assert.True(t, item.Completed)
	assert.Equal(t, "old", item.Text)
	assert.Equal(t, PriorityLow, item.Priority)

	item.Apply(TodoPatch{Text: ptr("  new  "), Priority: ptr(PriorityHigh)})
	assert.Equal(t, "new", item.Text)
	assert.Equal(t, PriorityHigh, item.Priority)
	assert.True(t, item.Completed)
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(ErrTextRequired))
	assert.False(t, IsValidationError(ErrTodoNotFound))
	assert.False(t, IsValidationError(errors.New("disk on fire")))
}

