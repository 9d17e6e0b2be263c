package state

import (
	"context"

	"github.com/rogersnm/todos/internal/store"
	"github.com/sirupsen/logrus"
)

// Listen applies changes from the store's feed until ctx ends or the feed
// closes. It returns nil when ctx is cancelled.
func (c *Container) Listen(ctx context.Context) error {
	w, ok := c.store.(store.Watcher)
	if !ok {
		return ErrNoRealtime
	}
	ch, err := w.Watch(ctx)
	if err != nil {
		return c.fail("listen", err)
	}
	for change := range ch {
		c.Apply(change)
	}
	if ctx.Err() != nil {
		return nil
	}
	return c.fail("listen", &store.TransportError{Op: "listen", Message: "realtime feed closed"})
}

// Apply reconciles one change into the local list:
//   - added from the server is appended unless the id is present; added from
//     this client is ignored since the completed call already appended it
//   - modified replaces title and completion in place
//   - removed drops the task; an unknown id is a no-op
func (c *Container) Apply(change store.Change) {
	log := c.log.WithFields(logrus.Fields{
		"kind":   change.Kind,
		"origin": change.Origin,
		"id":     change.Task.ID,
	})

	applied := false
	c.mutate(func() bool {
		i := c.indexOf(change.Task.ID)
		switch change.Kind {
		case store.ChangeAdded:
			if change.Origin == store.OriginLocal || i >= 0 {
				return false
			}
			c.todos = append(c.todos, change.Task)
		case store.ChangeModified:
			if i < 0 {
				return false
			}
			c.todos[i].Title = change.Task.Title
			c.todos[i].Completed = change.Task.Completed
		case store.ChangeRemoved:
			if !c.removeLocal(change.Task.ID) {
				return false
			}
		default:
			return false
		}
		applied = true
		return true
	})

	if applied {
		log.Debug("realtime change applied")
	} else {
		log.Debug("realtime change ignored")
	}
}
