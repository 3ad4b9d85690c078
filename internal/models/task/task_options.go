package task

import (
	"strings"
	"time"
)

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithEndDate(endDate time.Time) TaskOption {
	if endDate.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.EndDate = Day(endDate)
	}
}

func WithPriority(priority Priority) TaskOption {
	if !priority.Valid() {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

// Apply runs every non-nil option and reports whether any ran.
func Apply(t *Task, options ...TaskOption) bool {
	applied := false
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(t)
		applied = true
	}
	return applied
}
