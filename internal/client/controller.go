package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hiroki-koketsu/go-todo/internal/model"
)

// Filter selects which items Visible returns.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Filters lists the filter modes in display order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

// ParseFilter converts user input into a Filter.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	case "":
		return FilterAll, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Match reports whether item passes the filter.
func (f Filter) Match(item model.TodoItem) bool {
	switch f {
	case FilterActive:
		return !item.Completed
	case FilterCompleted:
		return item.Completed
	default:
		return true
	}
}

// Next returns the following filter, wrapping around.
func (f Filter) Next() Filter {
	for i, v := range Filters {
		if v == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// Stats summarizes the whole list, ignoring the filter.
type Stats struct {
	Total     int
	Completed int
	Remaining int
}

// Remote is the server side of the list. *APIClient implements it.
type Remote interface {
	List(ctx context.Context) ([]model.TodoItem, error)
	Create(ctx context.Context, req model.CreateTodoRequest) (*model.TodoItem, error)
	Update(ctx context.Context, req model.UpdateTodoRequest) (*model.TodoItem, error)
	Delete(ctx context.Context, id string) error
}

// SessionChecker reports whether the user has logged in.
type SessionChecker interface {
	Active() (bool, error)
}

// Persister loads and saves the working list.
type Persister interface {
	Load() []model.TodoItem
	Save(items []model.TodoItem) error
}

// Options configures Open. A nil Remote keeps the list on this machine only.
type Options struct {
	Session  SessionChecker
	Snapshot Persister
	Remote   Remote
	Now      func() time.Time
	Logger   *slog.Logger
}

// Controller owns the working list, the filter and the edit state. It is
// driven by one UI loop and is not safe for concurrent use.
type Controller struct {
	items    []model.TodoItem
	filter   Filter
	snapshot Persister
	remote   Remote
	now      func() time.Time
	logger   *slog.Logger

	editing  bool
	editID   string
	editText string
}

// Open checks the session and loads the list.
func Open(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Session != nil {
		ok, err := opts.Session.Active()
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		if !ok {
			return nil, ErrUnauthenticated
		}
	}

	c := &Controller{
		filter:   FilterAll,
		snapshot: opts.Snapshot,
		remote:   opts.Remote,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if c.snapshot != nil {
		c.items = c.snapshot.Load()
	}
	if c.items == nil {
		c.items = []model.TodoItem{}
	}

	if c.remote != nil {
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Remote reports whether mutations go through the server.
func (c *Controller) Remote() bool { return c.remote != nil }

// Refresh replaces the list with the server's copy, newest first.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.remote == nil {
		return nil
	}
	items, err := c.remote.List(ctx)
	if err != nil {
		return fmt.Errorf("fetch todos: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if items == nil {
		items = []model.TodoItem{}
	}
	c.items = items
	return c.persist()
}

// Items returns a copy of the full list.
func (c *Controller) Items() []model.TodoItem {
	out := make([]model.TodoItem, len(c.items))
	copy(out, c.items)
	return out
}

// Filter returns the active filter.
func (c *Controller) Filter() Filter { return c.filter }

// SetFilter changes which items Visible returns.
func (c *Controller) SetFilter(f Filter) {
	switch f {
	case FilterAll, FilterActive, FilterCompleted:
		c.filter = f
	}
}

// Visible returns the items passing the filter, in list order.
func (c *Controller) Visible() []model.TodoItem {
	out := make([]model.TodoItem, 0, len(c.items))
	for _, it := range c.items {
		if c.filter.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

// Stats counts the full list.
func (c *Controller) Stats() Stats {
	s := Stats{Total: len(c.items)}
	for _, it := range c.items {
		if it.Completed {
			s.Completed++
		}
	}
	s.Remaining = s.Total - s.Completed
	return s
}

// Add puts a new item at the front of the list. Blank text is ignored and
// yields a nil item.
func (c *Controller) Add(ctx context.Context, text string) (*model.TodoItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var item *model.TodoItem
	if c.remote != nil {
		created, err := c.remote.Create(ctx, model.CreateTodoRequest{Text: text, Priority: model.PriorityMedium})
		if err != nil {
			return nil, fmt.Errorf("create todo: %w", err)
		}
		item = created
	} else {
		item = model.NewTodoItem(c.nextLocalID(), text, model.PriorityMedium, c.now())
	}

	c.items = append([]model.TodoItem{*item}, c.items...)
	if err := c.persist(); err != nil {
		return nil, err
	}
	out := *item
	return &out, nil
}

// Toggle flips the completed flag of the item with id.
func (c *Controller) Toggle(ctx context.Context, id string) error {
	i := c.index(id)
	if i < 0 {
		return nil
	}
	done := !c.items[i].Completed
	return c.update(ctx, i, model.TodoPatch{Completed: &done})
}

// SetPriority changes the priority of the item with id.
func (c *Controller) SetPriority(ctx context.Context, id string, p model.Priority) error {
	if !p.Valid() {
		return model.ErrInvalidPriority
	}
	i := c.index(id)
	if i < 0 {
		return nil
	}
	return c.update(ctx, i, model.TodoPatch{Priority: &p})
}

// Remove deletes the item with id.
func (c *Controller) Remove(ctx context.Context, id string) error {
	i := c.index(id)
	if i < 0 {
		return nil
	}
	if c.remote != nil {
		if err := c.remote.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete todo: %w", err)
		}
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	if c.editing && c.editID == id {
		c.CancelEdit()
	}
	return c.persist()
}

// BeginEdit enters edit mode for id, seeding the buffer with its text.
// Unknown ids leave the controller unchanged and return false.
func (c *Controller) BeginEdit(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.editing = true
	c.editID = id
	c.editText = c.items[i].Text
	return true
}

// Editing returns the item under edit and the current buffer.
func (c *Controller) Editing() (id, text string, ok bool) {
	return c.editID, c.editText, c.editing
}

// SetEditText replaces the edit buffer.
func (c *Controller) SetEditText(text string) {
	if c.editing {
		c.editText = text
	}
}

// CommitEdit saves text to the item under edit and leaves edit mode. Blank
// text leaves edit mode without changing anything.
func (c *Controller) CommitEdit(ctx context.Context, text string) error {
	if !c.editing {
		return nil
	}
	id := c.editID
	text = strings.TrimSpace(text)
	if text == "" {
		c.CancelEdit()
		return nil
	}

	i := c.index(id)
	if i < 0 {
		c.CancelEdit()
		return nil
	}
	if err := c.update(ctx, i, model.TodoPatch{Text: &text}); err != nil {
		return err
	}
	c.CancelEdit()
	return nil
}

// CancelEdit leaves edit mode.
func (c *Controller) CancelEdit() {
	c.editing = false
	c.editID = ""
	c.editText = ""
}

func (c *Controller) update(ctx context.Context, i int, patch model.TodoPatch) error {
	id := c.items[i].ID
	if c.remote != nil {
		updated, err := c.remote.Update(ctx, model.UpdateTodoRequest{
			ID:        id,
			Text:      patch.Text,
			Completed: patch.Completed,
			Priority:  patch.Priority,
		})
		if err != nil {
			return fmt.Errorf("update todo: %w", err)
		}
		if updated == nil {
			// gone on the server; drop it here too
			c.logger.Warn("todo missing on server", slog.String("id", id))
			c.items = append(c.items[:i], c.items[i+1:]...)
			return c.persist()
		}
		c.items[i] = *updated
		return c.persist()
	}

	c.items[i].Apply(patch)
	return c.persist()
}

func (c *Controller) index(id string) int {
	for i, it := range c.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// nextLocalID returns the current Unix milliseconds, bumped past any id
// already in the list.
func (c *Controller) nextLocalID() string {
	n := c.now().UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if c.index(id) < 0 {
			return id
		}
		n++
	}
}

func (c *Controller) persist() error {
	if c.snapshot == nil {
		return nil
	}
	if err := c.snapshot.Save(c.items); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
