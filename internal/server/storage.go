package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rogersnm/todos/internal/store"
)

// StoreFactory opens the collection belonging to userID.
type StoreFactory func(userID string) (store.Store, error)

func MemoryStores() StoreFactory {
	return func(string) (store.Store, error) {
		return store.NewMemoryStore(), nil
	}
}

// LocalStores keeps each user's tasks in their own directory under baseDir.
func LocalStores(baseDir string) StoreFactory {
	return func(userID string) (store.Store, error) {
		dir := filepath.Join(baseDir, "users", userID)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating user dir: %w", err)
		}
		return store.NewLocal(dir), nil
	}
}

// collection is one user's store. mu orders writes and their broadcasts so
// subscribers see changes in commit order.
type collection struct {
	mu    sync.Mutex
	store store.Store
}

type collections struct {
	factory StoreFactory

	mu    sync.Mutex
	byUID map[string]*collection
}

func newCollections(f StoreFactory) *collections {
	return &collections{factory: f, byUID: make(map[string]*collection)}
}

func (c *collections) get(userID string) (*collection, error) {
	// userID becomes a directory name for LocalStores.
	if userID != sharedUser && uuid.Validate(userID) != nil {
		return nil, fmt.Errorf("invalid user id %q", userID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if coll, ok := c.byUID[userID]; ok {
		return coll, nil
	}
	s, err := c.factory(userID)
	if err != nil {
		return nil, err
	}
	coll := &collection{store: s}
	c.byUID[userID] = coll
	return coll, nil
}
