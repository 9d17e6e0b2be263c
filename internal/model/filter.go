package model

import "fmt"

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

var validFilters = []Filter{FilterAll, FilterActive, FilterCompleted}

func ParseFilter(s string) (Filter, error) {
	for _, v := range validFilters {
		if Filter(s) == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid filter %q: must be one of all, active, completed", s)
}

// Match reports whether t belongs to the subset selected by f.
// Unknown filters behave like FilterAll.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// Apply returns the tasks matching f, preserving order.
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
