package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rogersnm/todos/internal/id"
	"github.com/rogersnm/todos/internal/markdown"
)

// LocalStore implements Store using the local filesystem: one markdown
// file with yaml frontmatter per task.
type LocalStore struct {
	BaseDir string

	mu sync.Mutex
}

// compile-time check
var _ Store = (*LocalStore)(nil)

func NewLocal(baseDir string) *LocalStore {
	return &LocalStore{BaseDir: baseDir}
}

func (s *LocalStore) TasksDir() string {
	return filepath.Join(s.BaseDir, "tasks")
}

func (s *LocalStore) WriteEntity(path string, meta any, body string) error {
	data, err := markdown.Marshal(meta, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parent dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func ReadEntity[T any](path string) (T, string, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return markdown.Parse[T](f)
}

func (s *LocalStore) ListFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("globbing %s/%s: %w", dir, pattern, err)
	}
	return matches, nil
}

// ResolveTaskPath computes the file path for a task id and checks it exists.
func (s *LocalStore) ResolveTaskPath(taskID string) (string, error) {
	if !id.Valid(taskID) {
		return "", notFound(taskID)
	}
	path := filepath.Join(s.TasksDir(), taskID+".md")
	if _, err := os.Stat(path); err != nil {
		return "", notFound(taskID)
	}
	return path, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
