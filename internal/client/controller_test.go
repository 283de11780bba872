package client

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/hiroki-koketsu/go-todo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	active bool
	err    error
}

func (s fakeSession) Active() (bool, error) { return s.active, s.err }

// memSnapshot records every save.
type memSnapshot struct {
	items []model.TodoItem
	saves int
}

func (s *memSnapshot) Load() []model.TodoItem {
	out := make([]model.TodoItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *memSnapshot) Save(items []model.TodoItem) error {
	s.saves++
	s.items = make([]model.TodoItem, len(items))
	copy(s.items, items)
	return nil
}

// fakeRemote fails every call with err when set.
type fakeRemote struct {
	items map[string]model.TodoItem
	err   error
	seq   int
	now   time.Time
}

func newFakeRemote(now time.Time) *fakeRemote {
	return &fakeRemote{items: map[string]model.TodoItem{}, now: now}
}

func (r *fakeRemote) List(context.Context) ([]model.TodoItem, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]model.TodoItem, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *fakeRemote) Create(_ context.Context, req model.CreateTodoRequest) (*model.TodoItem, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.seq++
	item := model.NewTodoItem("srv-"+strconv.Itoa(r.seq), req.Text, req.Priority, r.now.Add(time.Duration(r.seq)*time.Second))
	r.items[item.ID] = *item
	return item, nil
}

func (r *fakeRemote) Update(_ context.Context, req model.UpdateTodoRequest) (*model.TodoItem, error) {
	if r.err != nil {
		return nil, r.err
	}
	it, ok := r.items[req.ID]
	if !ok {
		return nil, nil
	}
	it.Apply(req.Patch())
	r.items[req.ID] = it
	return &it, nil
}

func (r *fakeRemote) Delete(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	delete(r.items, id)
	return nil
}

var clock = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func openLocal(t *testing.T) (*Controller, *memSnapshot) {
	t.Helper()
	snap := &memSnapshot{}
	c, err := Open(context.Background(), Options{
		Session:  fakeSession{active: true},
		Snapshot: snap,
		Now:      func() time.Time { return clock },
	})
	require.NoError(t, err)
	return c, snap
}

func TestOpenRequiresSession(t *testing.T) {
	_, err := Open(context.Background(), Options{Session: fakeSession{}})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	boom := errors.New("disk on fire")
	_, err = Open(context.Background(), Options{Session: fakeSession{err: boom}})
	assert.ErrorIs(t, err, boom)
}

func TestOpenLoadsSnapshot(t *testing.T) {
	snap := &memSnapshot{items: []model.TodoItem{
		{ID: "1", Text: "kept", Priority: model.PriorityLow, CreatedAt: clock},
	}}
	c, err := Open(context.Background(), Options{Session: fakeSession{active: true}, Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, snap.items, c.Items())
	assert.Equal(t, FilterAll, c.Filter())
}

func TestAddLocal(t *testing.T) {
	ctx := context.Background()
	c, snap := openLocal(t)

	item, err := c.Add(ctx, "  Task  ")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Task", item.Text)
	assert.False(t, item.Completed)
	assert.Equal(t, model.PriorityMedium, item.Priority)
	assert.Equal(t, strconv.FormatInt(clock.UnixMilli(), 10), item.ID)
	assert.Equal(t, c.Items(), snap.items)

	// same millisecond, distinct id, prepended
	second, err := c.Add(ctx, "Second")
	require.NoError(t, err)
	assert.NotEqual(t, item.ID, second.ID)
	assert.Equal(t, "Second", c.Items()[0].Text)
}

func TestAddBlankIsIgnored(t *testing.T) {
	c, snap := openLocal(t)

	for _, text := range []string{"", "   ", "\t\n"} {
		item, err := c.Add(context.Background(), text)
		require.NoError(t, err)
		assert.Nil(t, item)
	}
	assert.Empty(t, c.Items())
	assert.Zero(t, snap.saves)
}

func TestToggleTwiceRestores(t *testing.T) {
	ctx := context.Background()
	c, _ := openLocal(t)

	item, err := c.Add(ctx, "Flip me")
	require.NoError(t, err)
	before := c.Items()

	require.NoError(t, c.Toggle(ctx, item.ID))
	assert.True(t, c.Items()[0].Completed)
	require.NoError(t, c.Toggle(ctx, item.ID))
	assert.Equal(t, before, c.Items())
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	ctx := context.Background()
	c, snap := openLocal(t)
	_, err := c.Add(ctx, "only")
	require.NoError(t, err)
	saves := snap.saves
	before := c.Items()

	require.NoError(t, c.Toggle(ctx, "nope"))
	require.NoError(t, c.Remove(ctx, "nope"))
	require.NoError(t, c.SetPriority(ctx, "nope", model.PriorityHigh))
	assert.False(t, c.BeginEdit("nope"))

	assert.Equal(t, before, c.Items())
	assert.Equal(t, saves, snap.saves)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	c, snap := openLocal(t)
	a, _ := c.Add(ctx, "a")
	b, _ := c.Add(ctx, "b")

	require.NoError(t, c.Remove(ctx, a.ID))
	require.Len(t, c.Items(), 1)
	assert.Equal(t, b.ID, c.Items()[0].ID)
	assert.Equal(t, c.Items(), snap.items)
}

func TestSetPriority(t *testing.T) {
	ctx := context.Background()
	c, _ := openLocal(t)
	item, _ := c.Add(ctx, "urgent")

	require.NoError(t, c.SetPriority(ctx, item.ID, model.PriorityHigh))
	assert.Equal(t, model.PriorityHigh, c.Items()[0].Priority)

	assert.ErrorIs(t, c.SetPriority(ctx, item.ID, "someday"), model.ErrInvalidPriority)
	assert.Equal(t, model.PriorityHigh, c.Items()[0].Priority)
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	c, _ := openLocal(t)
	item, _ := c.Add(ctx, "draft")

	require.True(t, c.BeginEdit(item.ID))
	id, text, ok := c.Editing()
	assert.True(t, ok)
	assert.Equal(t, item.ID, id)
	assert.Equal(t, "draft", text)

	c.SetEditText("final")
	_, text, _ = c.Editing()
	assert.Equal(t, "final", text)

	require.NoError(t, c.CommitEdit(ctx, "  final  "))
	assert.Equal(t, "final", c.Items()[0].Text)
	_, _, ok = c.Editing()
	assert.False(t, ok)
}

func TestEditBlankCommitKeepsText(t *testing.T) {
	ctx := context.Background()
	c, snap := openLocal(t)
	item, _ := c.Add(ctx, "keep")
	saves := snap.saves

	require.True(t, c.BeginEdit(item.ID))
	require.NoError(t, c.CommitEdit(ctx, "   "))
	assert.Equal(t, "keep", c.Items()[0].Text)
	_, _, ok := c.Editing()
	assert.False(t, ok)
	assert.Equal(t, saves, snap.saves)

	require.True(t, c.BeginEdit(item.ID))
	c.CancelEdit()
	_, _, ok = c.Editing()
	assert.False(t, ok)
}

func TestFilterPartitionsList(t *testing.T) {
	ctx := context.Background()
	c, _ := openLocal(t)
	for _, text := range []string{"a", "b", "c", "d"} {
		_, err := c.Add(ctx, text)
		require.NoError(t, err)
	}
	items := c.Items()
	require.NoError(t, c.Toggle(ctx, items[0].ID))
	require.NoError(t, c.Toggle(ctx, items[2].ID))

	c.SetFilter(FilterActive)
	active := c.Visible()
	c.SetFilter(FilterCompleted)
	completed := c.Visible()
	c.SetFilter(FilterAll)
	all := c.Visible()

	assert.Len(t, active, 2)
	assert.Len(t, completed, 2)
	assert.Equal(t, c.Items(), all)
	assert.ElementsMatch(t, all, append(active, completed...))
	for _, it := range active {
		assert.False(t, it.Completed)
	}
	for _, it := range completed {
		assert.True(t, it.Completed)
	}

	assert.Equal(t, Stats{Total: 4, Completed: 2, Remaining: 2}, c.Stats())
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
		err  bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"Active", FilterActive, false},
		{" completed ", FilterCompleted, false},
		{"done", "", true},
	}
	for _, tc := range tests {
		got, err := ParseFilter(tc.in)
		if tc.err {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	assert.Equal(t, FilterActive, FilterAll.Next())
	assert.Equal(t, FilterAll, FilterCompleted.Next())
}

func TestRemoteMode(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(clock)
	snap := &memSnapshot{items: []model.TodoItem{{ID: "stale", Text: "stale", Priority: model.PriorityLow, CreatedAt: clock}}}

	c, err := Open(ctx, Options{Session: fakeSession{active: true}, Snapshot: snap, Remote: remote})
	require.NoError(t, err)
	assert.True(t, c.Remote())
	assert.Empty(t, c.Items(), "server copy replaces the snapshot")

	first, err := c.Add(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", first.ID)
	second, err := c.Add(ctx, "second")
	require.NoError(t, err)

	require.NoError(t, c.Toggle(ctx, first.ID))
	assert.True(t, remote.items[first.ID].Completed)
	require.NoError(t, c.Remove(ctx, second.ID))
	assert.NotContains(t, remote.items, second.ID)
	assert.Equal(t, c.Items(), snap.items)

	// reopen sorts the server list newest first
	_, err = c.Add(ctx, "third")
	require.NoError(t, err)
	reopened, err := Open(ctx, Options{Session: fakeSession{active: true}, Snapshot: snap, Remote: remote})
	require.NoError(t, err)
	got := reopened.Items()
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Text)
	assert.Equal(t, "first", got[1].Text)
}

func TestRemoteFailureLeavesListUnchanged(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(clock)
	snap := &memSnapshot{}
	c, err := Open(ctx, Options{Session: fakeSession{active: true}, Snapshot: snap, Remote: remote})
	require.NoError(t, err)
	item, err := c.Add(ctx, "steady")
	require.NoError(t, err)

	before := c.Items()
	saves := snap.saves
	remote.err = &APIError{Status: 500, Message: "Failed to update todo"}

	_, err = c.Add(ctx, "new")
	assert.Error(t, err)
	assert.Error(t, c.Toggle(ctx, item.ID))
	assert.Error(t, c.SetPriority(ctx, item.ID, model.PriorityHigh))
	assert.Error(t, c.Remove(ctx, item.ID))

	var apiErr *APIError
	assert.ErrorAs(t, c.Toggle(ctx, item.ID), &apiErr)
	assert.Equal(t, before, c.Items())
	assert.Equal(t, saves, snap.saves)
}

func TestRemoteUpdateOfVanishedItemDropsIt(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(clock)
	c, err := Open(ctx, Options{Session: fakeSession{active: true}, Remote: remote})
	require.NoError(t, err)
	item, err := c.Add(ctx, "ghost")
	require.NoError(t, err)

	delete(remote.items, item.ID)
	require.NoError(t, c.Toggle(ctx, item.ID))
	assert.Empty(t, c.Items())
}

func TestOpenRemoteListFailure(t *testing.T) {
	remote := newFakeRemote(clock)
	remote.err = errors.New("connection refused")
	_, err := Open(context.Background(), Options{Session: fakeSession{active: true}, Remote: remote})
	assert.ErrorIs(t, err, remote.err)
}
