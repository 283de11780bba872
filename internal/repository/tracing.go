package repository

import (
	"context"
	"errors"

	"github.com/hiroki-koketsu/go-todo/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-todo/internal/repository")

type tracedStore struct {
	next    TodoStore
	backend attribute.KeyValue
}

// WithTracing wraps store so every call emits a span.
func WithTracing(store TodoStore, backend string) TodoStore {
	return &tracedStore{next: store, backend: attribute.String("db.system", backend)}
}

func (s *tracedStore) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "TodoStore."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, s.backend)...),
	)
}

// finish records err on the span. Not-found is an answer, not a failure.
func finish(span trace.Span, err error) {
	switch {
	case err == nil:
	case errors.Is(err, model.ErrTodoNotFound):
		span.SetAttributes(attribute.Bool("todo.found", false))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *tracedStore) EnsureSchema(ctx context.Context) (err error) {
	ctx, span := s.start(ctx, "EnsureSchema")
	defer func() { finish(span, err) }()
	return s.next.EnsureSchema(ctx)
}

func (s *tracedStore) List(ctx context.Context) (todos []*model.TodoItem, err error) {
	ctx, span := s.start(ctx, "List")
	defer func() { finish(span, err) }()

	todos, err = s.next.List(ctx)
	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	return todos, err
}

func (s *tracedStore) Put(ctx context.Context, item *model.TodoItem) (err error) {
	ctx, span := s.start(ctx, "Put", attribute.String("todo.id", item.ID))
	defer func() { finish(span, err) }()
	return s.next.Put(ctx, item)
}

func (s *tracedStore) Get(ctx context.Context, id string) (item *model.TodoItem, err error) {
	ctx, span := s.start(ctx, "Get", attribute.String("todo.id", id))
	defer func() { finish(span, err) }()

	item, err = s.next.Get(ctx, id)
	if err == nil {
		span.SetAttributes(attribute.Bool("todo.found", true))
	}
	return item, err
}

func (s *tracedStore) UpdateFields(ctx context.Context, id string, patch model.TodoPatch) (item *model.TodoItem, err error) {
	ctx, span := s.start(ctx, "UpdateFields", attribute.String("todo.id", id))
	defer func() { finish(span, err) }()

	item, err = s.next.UpdateFields(ctx, id, patch)
	if err == nil {
		span.SetAttributes(attribute.Bool("todo.found", true))
	}
	return item, err
}

func (s *tracedStore) Delete(ctx context.Context, id string) (err error) {
	ctx, span := s.start(ctx, "Delete", attribute.String("todo.id", id))
	defer func() { finish(span, err) }()
	return s.next.Delete(ctx, id)
}

func (s *tracedStore) Count(ctx context.Context) (int64, error) {
	return s.next.Count(ctx)
}

func (s *tracedStore) Close() error {
	return s.next.Close()
}
