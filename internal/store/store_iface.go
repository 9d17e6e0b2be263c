package store

import (
	"context"
	"time"

	"github.com/rogersnm/todos/internal/model"
)

// Store is the remote side of the todo list: a collection of task records
// reached one round trip at a time. It owns no client state. MemoryStore,
// LocalStore and CloudStore implement it.
type Store interface {
	CreateTask(ctx context.Context, c TaskCreate) (*model.Task, error)
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
	// ListTasks returns every task in no particular order.
	ListTasks(ctx context.Context) ([]model.Task, error)
	// UpdateTask merges upd into the stored task. The timestamp is never changed.
	UpdateTask(ctx context.Context, taskID string, upd TaskUpdate) error
	DeleteTask(ctx context.Context, taskID string) error
	DeleteTasksWhere(ctx context.Context, match func(model.Task) bool) error
	SetCompletedAll(ctx context.Context, completed bool) error
}

// Watcher is implemented by stores that can push changes as they happen.
// The returned channel is closed when ctx ends or the feed is lost.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}

// Authenticator is implemented by stores that sit behind a login.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (string, error)
	Register(ctx context.Context, reg model.Registration) error
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*model.User, error)
	// SetToken sets the bearer token attached to subsequent requests.
	SetToken(token string)
}

type TaskCreate struct {
	Title     string
	Completed bool
	Timestamp time.Time
}

type TaskUpdate struct {
	Title     *string
	Completed *bool
}

// Apply copies the set fields of upd onto t.
func (upd TaskUpdate) Apply(t *model.Task) {
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Completed != nil {
		t.Completed = *upd.Completed
	}
}

// IsEmpty reports whether upd changes nothing.
func (upd TaskUpdate) IsEmpty() bool {
	return upd.Title == nil && upd.Completed == nil
}
