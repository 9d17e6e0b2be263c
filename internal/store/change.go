package store

import "github.com/rogersnm/todos/internal/model"

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Origin tells whether a change came from this client's own write (local)
// or from a write committed elsewhere and echoed back (server).
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginServer Origin = "server"
)

type Change struct {
	Kind   ChangeKind
	Task   model.Task
	Origin Origin
}

func validKind(k ChangeKind) bool {
	switch k {
	case ChangeAdded, ChangeModified, ChangeRemoved:
		return true
	}
	return false
}
