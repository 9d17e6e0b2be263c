package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rogersnm/todos/internal/id"
	"github.com/rogersnm/todos/internal/model"
)

func (s *LocalStore) CreateTask(ctx context.Context, c TaskCreate) (*model.Task, error) {
	tid, err := id.New()
	if err != nil {
		return nil, err
	}

	ts := c.Timestamp
	if ts.IsZero() {
		ts = now()
	}
	t := &model.Task{
		ID:        tid,
		Title:     c.Title,
		Completed: c.Completed,
		Timestamp: ts.UTC(),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.TasksDir(), tid+".md")
	if err := s.WriteEntity(path, t, ""); err != nil {
		return nil, fmt.Errorf("writing task: %w", err)
	}
	return t, nil
}

func (s *LocalStore) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	path, err := s.ResolveTaskPath(taskID)
	if err != nil {
		return nil, err
	}
	t, _, err := ReadEntity[model.Task](path)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *LocalStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	files, err := s.ListFiles(s.TasksDir(), "*.md")
	if err != nil {
		return nil, err
	}

	var tasks []model.Task
	for _, f := range files {
		t, _, err := ReadEntity[model.Task](f)
		if err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *LocalStore) UpdateTask(ctx context.Context, taskID string, upd TaskUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.ResolveTaskPath(taskID)
	if err != nil {
		return err
	}
	t, body, err := ReadEntity[model.Task](path)
	if err != nil {
		return err
	}
	upd.Apply(&t)
	if err := t.Validate(); err != nil {
		return err
	}
	return s.WriteEntity(path, &t, body)
}

func (s *LocalStore) DeleteTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.ResolveTaskPath(taskID)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (s *LocalStore) DeleteTasksWhere(ctx context.Context, match func(model.Task) bool) error {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if !match(t) {
			continue
		}
		if err := s.DeleteTask(ctx, t.ID); err != nil && !IsNotFound(err) {
			return fmt.Errorf("deleting %s: %w", t.ID, err)
		}
	}
	return nil
}

func (s *LocalStore) SetCompletedAll(ctx context.Context, completed bool) error {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.Completed == completed {
			continue
		}
		if err := s.UpdateTask(ctx, t.ID, TaskUpdate{Completed: &completed}); err != nil && !IsNotFound(err) {
			return fmt.Errorf("updating %s: %w", t.ID, err)
		}
	}
	return nil
}
