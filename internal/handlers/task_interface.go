package handlers

import (
	"context"
	"time"

	"taskDesk/internal/calendar"
	"taskDesk/internal/models/task"
	"taskDesk/internal/service"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	CreateTasks(ctx context.Context, actor task.Actor, in service.CreateTaskInput) ([]*task.Task, error)
	GetTask(ctx context.Context, actor task.Actor, id uuid.UUID) (*task.Task, error)
	ListTasks(ctx context.Context, actor task.Actor, view task.View, filter task.Filter) ([]*task.Task, error)
	Dashboard(ctx context.Context, actor task.Actor, view task.View) (task.Counts, error)
	UpdateStatus(ctx context.Context, actor task.Actor, id uuid.UUID, action task.Action, remarks string) (*task.Task, error)
	ExtendDeadline(ctx context.Context, actor task.Actor, id uuid.UUID, date time.Time, remarks string) (*task.Task, error)
	EditTask(ctx context.Context, actor task.Actor, id uuid.UUID, remarks string, options ...task.TaskOption) (*task.Task, error)
	History(ctx context.Context, actor task.Actor, id uuid.UUID) ([]*task.HistoryEntry, error)
	CheckDate(ctx context.Context, date time.Time) (calendar.Verdict, error)
	AffectedTasks(ctx context.Context, actor task.Actor, view task.View) ([]service.AffectedTask, error)
}

var _ TaskService = (*service.TaskService)(nil)
