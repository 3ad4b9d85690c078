package service

import (
	"context"
	"time"

	"taskDesk/internal/calendar"
	"taskDesk/internal/models/task"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(ctx context.Context) error
	CreateBatch(ctx context.Context, tasks []*task.Task, entries []*task.HistoryEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error)
	Apply(ctx context.Context, t *task.Task, entry *task.HistoryEntry) error
	History(ctx context.Context, id uuid.UUID) ([]*task.HistoryEntry, error)
	List(ctx context.Context, empID int64, view task.View, filter task.Filter) ([]*task.Task, error)
	ListActive(ctx context.Context, offset, limit int) ([]*task.Task, error)
}

type DateChecker interface {
	CheckDate(ctx context.Context, day time.Time) (calendar.Verdict, error)
}

var _ DateChecker = (*calendar.Checker)(nil)
