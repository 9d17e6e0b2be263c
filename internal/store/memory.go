package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rogersnm/todos/internal/model"
)

// MemoryStore is an in-process backend. Like a document database it assigns
// random ids and does not keep tasks in any particular order.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]model.Task

	wmu      sync.RWMutex
	watchers map[*memWatcher]struct{}
}

type memWatcher struct {
	ctx context.Context
	ch  chan Change
}

// compile-time check
var (
	_ Store   = (*MemoryStore)(nil)
	_ Watcher = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:    make(map[string]model.Task),
		watchers: make(map[*memWatcher]struct{}),
	}
}

func (s *MemoryStore) CreateTask(ctx context.Context, c TaskCreate) (*model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "create task", Err: err}
	}
	ts := c.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	t := model.Task{
		ID:        uuid.NewString(),
		Title:     c.Title,
		Completed: c.Completed,
		Timestamp: ts,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeAdded, Task: t, Origin: OriginLocal})
	return &t, nil
}

func (s *MemoryStore) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, notFound(taskID)
	}
	return &t, nil
}

func (s *MemoryStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "list tasks", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, taskID string, upd TaskUpdate) error {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return notFound(taskID)
	}
	upd.Apply(&t)
	s.tasks[taskID] = t
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeModified, Task: t, Origin: OriginLocal})
	return nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return notFound(taskID)
	}
	delete(s.tasks, taskID)
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeRemoved, Task: t, Origin: OriginLocal})
	return nil
}

func (s *MemoryStore) DeleteTasksWhere(ctx context.Context, match func(model.Task) bool) error {
	s.mu.Lock()
	var removed []model.Task
	for id, t := range s.tasks {
		if match(t) {
			removed = append(removed, t)
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()

	for _, t := range removed {
		s.emit(Change{Kind: ChangeRemoved, Task: t, Origin: OriginLocal})
	}
	return nil
}

func (s *MemoryStore) SetCompletedAll(ctx context.Context, completed bool) error {
	s.mu.Lock()
	var changed []model.Task
	for id, t := range s.tasks {
		if t.Completed == completed {
			continue
		}
		t.Completed = completed
		s.tasks[id] = t
		changed = append(changed, t)
	}
	s.mu.Unlock()

	for _, t := range changed {
		s.emit(Change{Kind: ChangeModified, Task: t, Origin: OriginLocal})
	}
	return nil
}

// Commit applies a change as if another client had written it, and notifies
// watchers with OriginServer. An added task without an id gets a fresh one.
func (s *MemoryStore) Commit(kind ChangeKind, t model.Task) (model.Task, error) {
	if !validKind(kind) {
		return t, fmt.Errorf("unknown change kind %q", kind)
	}

	s.mu.Lock()
	switch kind {
	case ChangeAdded:
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Timestamp.IsZero() {
			t.Timestamp = time.Now().UTC()
		}
		s.tasks[t.ID] = t
	case ChangeModified:
		cur, ok := s.tasks[t.ID]
		if !ok {
			s.mu.Unlock()
			return t, notFound(t.ID)
		}
		cur.Title = t.Title
		cur.Completed = t.Completed
		s.tasks[t.ID] = cur
		t = cur
	case ChangeRemoved:
		if _, ok := s.tasks[t.ID]; !ok {
			s.mu.Unlock()
			return t, notFound(t.ID)
		}
		delete(s.tasks, t.ID)
	}
	s.mu.Unlock()

	s.emit(Change{Kind: kind, Task: t, Origin: OriginServer})
	return t, nil
}

// Watch streams every change made through the store until ctx ends.
func (s *MemoryStore) Watch(ctx context.Context) (<-chan Change, error) {
	w := &memWatcher{ctx: ctx, ch: make(chan Change, 64)}

	s.wmu.Lock()
	s.watchers[w] = struct{}{}
	s.wmu.Unlock()

	go func() {
		<-ctx.Done()
		s.wmu.Lock()
		delete(s.watchers, w)
		close(w.ch)
		s.wmu.Unlock()
	}()
	return w.ch, nil
}

func (s *MemoryStore) emit(c Change) {
	s.wmu.RLock()
	defer s.wmu.RUnlock()
	for w := range s.watchers {
		select {
		case w.ch <- c:
		case <-w.ctx.Done():
		}
	}
}
