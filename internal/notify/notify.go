// Package notify publishes task events to the employee they concern.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type EventType string

const (
	EventTaskAssigned  EventType = "TASK_ASSIGNED"
	EventStatusChanged EventType = "STATUS_CHANGED"
	EventExtended      EventType = "EXTENDED"
	EventHolidayAlert  EventType = "HOLIDAY_ALERT"
)

type Event struct {
	Type       EventType   `json:"type"`
	TaskID     uuid.UUID   `json:"task_id"`
	Title      string      `json:"title"`
	Status     task.Status `json:"status"`
	StatusName string      `json:"status_name"`
	ActorID    int64       `json:"actor_id,omitempty"`
	ActorName  string      `json:"actor_name,omitempty"`
	Date       string      `json:"date,omitempty"`
	Message    string      `json:"message,omitempty"`
	At         time.Time   `json:"at"`
}

// NewEvent fills the task fields of an event about t.
func NewEvent(typ EventType, t *task.Task, actor task.Actor) Event {
	return Event{
		Type:       typ,
		TaskID:     t.UUID,
		Title:      t.Title,
		Status:     t.Status,
		StatusName: t.Status.String(),
		ActorID:    actor.EmpID,
		ActorName:  actor.Name,
		At:         time.Now().UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, empID int64, ev Event) error
}

// Channel is the pub/sub channel an employee's client subscribes to.
func Channel(empID int64) string {
	return fmt.Sprintf("task_updates_%d", empID)
}

type Redis struct {
	rdb redis.UniversalClient
}

func NewRedis(rdb redis.UniversalClient) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Notify(ctx context.Context, empID int64, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.rdb.Publish(ctx, Channel(empID), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	logger.Debug("Notify: event published",
		zap.String("type", string(ev.Type)),
		zap.Int64("emp_id", empID),
		zap.String("task_id", ev.TaskID.String()))
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, int64, Event) error { return nil }
