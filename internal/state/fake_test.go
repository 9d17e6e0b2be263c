package state

import (
	"context"
	"slices"
	"sync"

	"github.com/rogersnm/todos/internal/model"
	"github.com/rogersnm/todos/internal/store"
)

// fakeStore is an ordered, scriptable backend. When err is set every call
// fails with it.
type fakeStore struct {
	mu      sync.Mutex
	tasks   []model.Task
	ids     []string
	created []store.TaskCreate
	calls   []string
	err     error

	loginToken string
	logoutErr  error
	tokens     []string
	user       *model.User
}

var (
	_ store.Store         = (*fakeStore)(nil)
	_ store.Authenticator = (*fakeStore)(nil)
)

func (f *fakeStore) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeStore) CreateTask(ctx context.Context, c store.TaskCreate) (*model.Task, error) {
	if err := f.call("create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, c)
	id := "id-" + string(rune('a'+len(f.tasks)))
	if len(f.ids) > 0 {
		id, f.ids = f.ids[0], f.ids[1:]
	}
	t := model.Task{ID: id, Title: c.Title, Completed: c.Completed, Timestamp: c.Timestamp}
	f.tasks = append(f.tasks, t)
	return &t, nil
}

func (f *fakeStore) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	if err := f.call("get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == taskID {
			return &t, nil
		}
	}
	return nil, &store.TransportError{Op: "get task", Status: 404, Err: store.ErrNotFound}
}

func (f *fakeStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	if err := f.call("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tasks), nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, taskID string, upd store.TaskUpdate) error {
	if err := f.call("update"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			upd.Apply(&f.tasks[i])
		}
	}
	return nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, taskID string) error {
	if err := f.call("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = slices.DeleteFunc(f.tasks, func(t model.Task) bool { return t.ID == taskID })
	return nil
}

func (f *fakeStore) DeleteTasksWhere(ctx context.Context, match func(model.Task) bool) error {
	if err := f.call("delete where"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = slices.DeleteFunc(f.tasks, match)
	return nil
}

func (f *fakeStore) SetCompletedAll(ctx context.Context, completed bool) error {
	if err := f.call("set completed all"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		f.tasks[i].Completed = completed
	}
	return nil
}

func (f *fakeStore) Login(ctx context.Context, creds model.Credentials) (string, error) {
	if err := f.call("login"); err != nil {
		return "", err
	}
	return f.loginToken, nil
}

func (f *fakeStore) Register(ctx context.Context, reg model.Registration) error {
	return f.call("register")
}

func (f *fakeStore) Logout(ctx context.Context) error {
	if err := f.call("logout"); err != nil {
		return err
	}
	return f.logoutErr
}

func (f *fakeStore) CurrentUser(ctx context.Context) (*model.User, error) {
	if err := f.call("user"); err != nil {
		return nil, err
	}
	return f.user, nil
}

func (f *fakeStore) SetToken(token string) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
}

// watchStore adds a feed the test drives by hand.
type watchStore struct {
	*fakeStore
	feed chan store.Change
}

func (w *watchStore) Watch(ctx context.Context) (<-chan store.Change, error) {
	return w.feed, nil
}
