package model

import (
	"fmt"
	"time"
)

type Task struct {
	ID        string    `yaml:"id" json:"id"`
	Title     string    `yaml:"title" json:"title"`
	Completed bool      `yaml:"completed" json:"completed"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`

	// Editing is a UI-only flag and is never persisted.
	Editing bool `yaml:"-" json:"-"`
}

func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("task title is required")
	}
	return nil
}

// CountCompleted returns how many of tasks have the given completion state.
func CountCompleted(tasks []Task, completed bool) int {
	n := 0
	for _, t := range tasks {
		if t.Completed == completed {
			n++
		}
	}
	return n
}
