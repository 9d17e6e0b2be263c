// Package state holds the client's view of the todo list and applies every
// change to it, whether it comes from a completed remote call or from the
// realtime feed.
package state

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rogersnm/todos/internal/model"
	"github.com/rogersnm/todos/internal/session"
	"github.com/rogersnm/todos/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoRealtime is returned by Listen when the store cannot push changes.
	ErrNoRealtime = errors.New("store does not support realtime updates")
	// ErrNoAuth is returned by the auth operations when the store has no login.
	ErrNoAuth = errors.New("store does not support authentication")
)

type Option func(*Container)

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Container) { c.log = log }
}

func WithSession(s session.Storage) Option {
	return func(c *Container) { c.session = s }
}

func WithClock(now func() time.Time) Option {
	return func(c *Container) { c.now = now }
}

// Container owns the filter, the local task list and the session token.
// Remote calls run without holding any lock; their results, and realtime
// changes, are applied one at a time under mu.
type Container struct {
	store   store.Store
	log     logrus.FieldLogger
	session session.Storage
	now     func() time.Time

	mu     sync.RWMutex
	filter model.Filter
	todos  []model.Task
	token  string

	omu       sync.Mutex
	observers []func()
}

func New(s store.Store, opts ...Option) *Container {
	c := &Container{
		store:   s,
		log:     logrus.StandardLogger(),
		session: session.NewMemoryStorage(""),
		now:     func() time.Time { return time.Now().UTC() },
		filter:  model.FilterAll,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe registers fn to run after every applied mutation.
func (c *Container) Observe(fn func()) {
	c.omu.Lock()
	c.observers = append(c.observers, fn)
	c.omu.Unlock()
}

// mutate runs fn under the write lock and notifies observers when fn
// reports a change.
func (c *Container) mutate(fn func() bool) {
	c.mu.Lock()
	changed := fn()
	c.mu.Unlock()
	if !changed {
		return
	}

	c.omu.Lock()
	obs := slices.Clone(c.observers)
	c.omu.Unlock()
	for _, fn := range obs {
		fn()
	}
}

// fail logs err for op and returns it. An auth failure while logged in
// means the token is no longer good, so the session is dropped.
func (c *Container) fail(op string, err error) error {
	c.logFailure(op, err)
	if store.IsAuthError(err) && c.LoggedIn() {
		c.dropSession()
	}
	return err
}

// logFailure logs err for op and returns it without touching the session.
// Login and register use it: rejected credentials say nothing about the
// token already held.
func (c *Container) logFailure(op string, err error) error {
	c.log.WithFields(logrus.Fields{"op": op, "error": err}).Error("remote operation failed")
	return err
}

func (c *Container) dropSession() {
	if err := c.session.Clear(); err != nil {
		c.log.WithError(err).Warn("clearing stored token")
	}
	if auth, ok := c.store.(store.Authenticator); ok {
		auth.SetToken("")
	}
	c.mutate(func() bool {
		changed := c.token != ""
		c.token = ""
		return changed
	})
}

func (c *Container) indexOf(taskID string) int {
	return slices.IndexFunc(c.todos, func(t model.Task) bool { return t.ID == taskID })
}

// Views

// Todos returns a copy of the local list in display order.
func (c *Container) Todos() []model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.todos)
}

func (c *Container) Filter() model.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

func (c *Container) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Container) Remaining() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CountCompleted(c.todos, false)
}

func (c *Container) AnyRemaining() bool {
	return c.Remaining() != 0
}

func (c *Container) Filtered() []model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.Apply(c.todos)
}

func (c *Container) ShowClearCompleted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CountCompleted(c.todos, true) > 0
}

func (c *Container) LoggedIn() bool {
	return c.Token() != ""
}

// Task operations

// Load replaces the local list with every stored task, oldest first.
func (c *Container) Load(ctx context.Context) error {
	tasks, err := c.store.ListTasks(ctx)
	if err != nil {
		return c.fail("load", err)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Timestamp.Before(tasks[j].Timestamp)
	})
	c.mutate(func() bool {
		c.todos = tasks
		return true
	})
	return nil
}

// Add creates an incomplete task stamped with the current time and appends
// the stored record.
func (c *Container) Add(ctx context.Context, title string) (*model.Task, error) {
	t, err := c.store.CreateTask(ctx, store.TaskCreate{
		Title:     title,
		Timestamp: c.now(),
	})
	if err != nil {
		return nil, c.fail("add", err)
	}
	c.mutate(func() bool {
		// The realtime feed may have delivered it first.
		if c.indexOf(t.ID) >= 0 {
			return false
		}
		c.todos = append(c.todos, *t)
		return true
	})
	return t, nil
}

// Update changes a task's title and/or completion. The local record keeps
// its position and timestamp.
func (c *Container) Update(ctx context.Context, taskID string, upd store.TaskUpdate) error {
	if err := c.store.UpdateTask(ctx, taskID, upd); err != nil {
		return c.fail("update", err)
	}
	c.mutate(func() bool {
		i := c.indexOf(taskID)
		if i < 0 {
			return false
		}
		upd.Apply(&c.todos[i])
		return true
	})
	return nil
}

// Remove deletes a task. A task missing from the local list is left alone.
func (c *Container) Remove(ctx context.Context, taskID string) error {
	if err := c.store.DeleteTask(ctx, taskID); err != nil {
		return c.fail("remove", err)
	}
	c.mutate(func() bool { return c.removeLocal(taskID) })
	return nil
}

func (c *Container) removeLocal(taskID string) bool {
	i := c.indexOf(taskID)
	if i < 0 {
		return false
	}
	c.todos = slices.Delete(c.todos, i, i+1)
	return true
}

func (c *Container) SetCompletedForAll(ctx context.Context, completed bool) error {
	if err := c.store.SetCompletedAll(ctx, completed); err != nil {
		return c.fail("set completed for all", err)
	}
	c.mutate(func() bool {
		for i := range c.todos {
			c.todos[i].Completed = completed
		}
		return true
	})
	return nil
}

// SetFilter is local only.
func (c *Container) SetFilter(f model.Filter) {
	c.mutate(func() bool {
		changed := c.filter != f
		c.filter = f
		return changed
	})
}

// ClearCompleted deletes every completed task. Active tasks keep their
// relative order.
func (c *Container) ClearCompleted(ctx context.Context) error {
	completed := func(t model.Task) bool { return t.Completed }
	if err := c.store.DeleteTasksWhere(ctx, completed); err != nil {
		return c.fail("clear completed", err)
	}
	c.mutate(func() bool {
		n := len(c.todos)
		c.todos = slices.DeleteFunc(c.todos, completed)
		return len(c.todos) != n
	})
	return nil
}

// ClearTodos drops the local list without touching the store. Used when the
// session changes so the previous user's tasks are not shown.
func (c *Container) ClearTodos() {
	c.mutate(func() bool {
		changed := len(c.todos) > 0
		c.todos = nil
		return changed
	})
}
