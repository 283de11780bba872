package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hiroki-koketsu/go-todo/internal/model"
	"github.com/hiroki-koketsu/go-todo/internal/repository"
	"github.com/hiroki-koketsu/go-todo/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-todo/internal/handler")

const todosRoute = "/todos"

// TodoHandler handles HTTP requests for todos.
type TodoHandler struct {
	store   repository.TodoStore
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
	newID   func() string
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(store repository.TodoStore, logger *slog.Logger, metrics *telemetry.Metrics) *TodoHandler {
	return &TodoHandler{
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Routes returns the chi router with todo routes. The write endpoints carry
// the target id in the JSON body.
func (h *TodoHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/", h.Update)
	r.Delete("/", h.Delete)
	r.Get("/{id}", h.GetByID)

	return r
}

// List returns all todos.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.List")
	defer span.End()

	h.logger.InfoContext(ctx, "listing all todos")

	todos, err := h.store.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list todos", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch todos")
		h.recordMetrics(ctx, http.MethodGet, todosRoute, http.StatusInternalServerError, start)
		return
	}

	if todos == nil {
		todos = []*model.TodoItem{}
	}

	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	h.logger.InfoContext(ctx, "todos listed", slog.Int("count", len(todos)))

	h.respondJSON(w, http.StatusOK, todos)
	h.recordMetrics(ctx, http.MethodGet, todosRoute, http.StatusOK, start)
}

// Create adds a new todo.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.Create")
	defer span.End()

	var req model.CreateTodoRequest
	if !h.decode(ctx, w, r, &req, start) {
		return
	}

	if err := req.Validate(); err != nil {
		h.rejectInvalid(ctx, w, http.MethodPost, err, start)
		return
	}

	todo := model.NewTodoItem(h.newID(), req.Text, req.Priority, h.now().UTC().Truncate(time.Millisecond))

	h.logger.InfoContext(ctx, "creating todo", slog.String("id", todo.ID), slog.String("priority", string(todo.Priority)))

	if err := h.store.Put(ctx, todo); err != nil {
		h.logger.ErrorContext(ctx, "failed to create todo", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to create todo")
		h.recordMetrics(ctx, http.MethodPost, todosRoute, http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.String("todo.id", todo.ID))
	h.logger.InfoContext(ctx, "todo created", slog.String("id", todo.ID))

	h.respondJSON(w, http.StatusOK, todo)
	h.recordMetrics(ctx, http.MethodPost, todosRoute, http.StatusOK, start)
}

// GetByID returns a todo by ID.
func (h *TodoHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")
	route := todosRoute + "/{id}"

	ctx, span := tracer.Start(ctx, "TodoHandler.GetByID",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	todo, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTodoNotFound) {
			h.logger.WarnContext(ctx, "todo not found", slog.String("id", id))
			h.respondError(w, http.StatusNotFound, model.ErrTodoNotFound.Error())
			h.recordMetrics(ctx, http.MethodGet, route, http.StatusNotFound, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get todo", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch todo")
		h.recordMetrics(ctx, http.MethodGet, route, http.StatusInternalServerError, start)
		return
	}

	h.respondJSON(w, http.StatusOK, todo)
	h.recordMetrics(ctx, http.MethodGet, route, http.StatusOK, start)
}

// Update modifies an existing todo. An unknown id answers 200 with a null
// body, mirroring a lookup that found nothing.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.Update")
	defer span.End()

	var req model.UpdateTodoRequest
	if !h.decode(ctx, w, r, &req, start) {
		return
	}

	if err := req.Validate(); err != nil {
		h.rejectInvalid(ctx, w, http.MethodPut, err, start)
		return
	}

	span.SetAttributes(attribute.String("todo.id", req.ID))
	h.logger.InfoContext(ctx, "updating todo", slog.String("id", req.ID))

	todo, err := h.store.UpdateFields(ctx, req.ID, req.Patch())
	if err != nil {
		if errors.Is(err, model.ErrTodoNotFound) {
			h.logger.WarnContext(ctx, "todo not found", slog.String("id", req.ID))
			h.respondJSON(w, http.StatusOK, (*model.TodoItem)(nil))
			h.recordMetrics(ctx, http.MethodPut, todosRoute, http.StatusOK, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update todo", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to update todo")
		h.recordMetrics(ctx, http.MethodPut, todosRoute, http.StatusInternalServerError, start)
		return
	}

	h.logger.InfoContext(ctx, "todo updated", slog.String("id", req.ID))

	h.respondJSON(w, http.StatusOK, todo)
	h.recordMetrics(ctx, http.MethodPut, todosRoute, http.StatusOK, start)
}

// Delete removes a todo. Deleting an unknown id still succeeds.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.Delete")
	defer span.End()

	var req model.DeleteTodoRequest
	if !h.decode(ctx, w, r, &req, start) {
		return
	}

	if err := req.Validate(); err != nil {
		h.rejectInvalid(ctx, w, http.MethodDelete, err, start)
		return
	}

	span.SetAttributes(attribute.String("todo.id", req.ID))
	h.logger.InfoContext(ctx, "deleting todo", slog.String("id", req.ID))

	if err := h.store.Delete(ctx, req.ID); err != nil {
		h.logger.ErrorContext(ctx, "failed to delete todo", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to delete todo")
		h.recordMetrics(ctx, http.MethodDelete, todosRoute, http.StatusInternalServerError, start)
		return
	}

	h.logger.InfoContext(ctx, "todo deleted", slog.String("id", req.ID))

	h.respondJSON(w, http.StatusOK, model.DeleteResponse{Success: true, Message: "Todo deleted successfully"})
	h.recordMetrics(ctx, http.MethodDelete, todosRoute, http.StatusOK, start)
}

// Health returns a health check response.
func (h *TodoHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads the JSON body into dst, answering 400 itself on failure.
func (h *TodoHandler) decode(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any, start time.Time) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		h.recordMetrics(ctx, r.Method, todosRoute, http.StatusBadRequest, start)
		return false
	}
	return true
}

func (h *TodoHandler) rejectInvalid(ctx context.Context, w http.ResponseWriter, method string, err error, start time.Time) {
	h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
	h.respondError(w, http.StatusBadRequest, err.Error())
	h.recordMetrics(ctx, method, todosRoute, http.StatusBadRequest, start)
}

func (h *TodoHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, data)
}

func (h *TodoHandler) respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (h *TodoHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
