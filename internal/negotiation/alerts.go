package negotiation

import (
	"context"
	"sync"

	"taskDesk/internal/apperr"
	"taskDesk/internal/calendar"
	"taskDesk/internal/handlers/dto"
	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AffectedSource interface {
	AffectedTasks(ctx context.Context, view task.View) ([]dto.AffectedTaskResponse, error)
}

// Alert is one task whose committed deadline is no longer a working day.
type Alert struct {
	TaskID   uuid.UUID
	Title    string
	Deadline string
	Verdict  calendar.Verdict
}

// AlertBoard is the bulk view of holiday alerts. Dismiss and Keep only touch
// the board; Shift is the one operation that commits.
type AlertBoard struct {
	source    AffectedSource
	committer Committer
	view      task.View

	mtx       sync.Mutex
	alerts    []Alert
	dismissed map[uuid.UUID]bool
}

func NewAlertBoard(source AffectedSource, committer Committer, view task.View) *AlertBoard {
	return &AlertBoard{
		source:    source,
		committer: committer,
		view:      view,
		dismissed: make(map[uuid.UUID]bool),
	}
}

// Load refreshes the board. Tasks dismissed earlier stay hidden.
func (b *AlertBoard) Load(ctx context.Context) ([]Alert, error) {
	affected, err := b.source.AffectedTasks(ctx, b.view)
	if err != nil {
		return nil, err
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.alerts = b.alerts[:0]
	for _, a := range affected {
		if b.dismissed[a.Task.ID] || !a.Verdict.NeedsShift {
			continue
		}
		b.alerts = append(b.alerts, Alert{
			TaskID:   a.Task.ID,
			Title:    a.Task.Title,
			Deadline: a.Task.EffectiveDeadline,
			Verdict:  a.Verdict,
		})
	}
	return b.snapshot(), nil
}

func (b *AlertBoard) Alerts() []Alert {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.snapshot()
}

// Dismiss hides the alert for id for the life of the board.
func (b *AlertBoard) Dismiss(id uuid.UUID) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if !b.remove(id) {
		return false
	}
	b.dismissed[id] = true
	return true
}

// Keep accepts the committed deadline as it is. Nothing is sent to the store.
func (b *AlertBoard) Keep(id uuid.UUID) bool {
	return b.Dismiss(id)
}

// Shift commits the suggested date for id. The alert stays on the board if
// the commit fails.
func (b *AlertBoard) Shift(ctx context.Context, id uuid.UUID, remarks string) (dto.TaskResponse, error) {
	b.mtx.Lock()
	alert, ok := b.find(id)
	b.mtx.Unlock()
	if !ok {
		return dto.TaskResponse{}, apperr.NewNotFound("alert", id.String())
	}

	date, err := alert.Verdict.Suggested()
	if err != nil {
		return dto.TaskResponse{}, apperr.NewValidationError("suggested_date", err.Error())
	}

	updated, err := b.committer.Extend(ctx, id, date, remarks)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	logger.Info("Client: holiday alert shifted",
		zap.String("task_id", id.String()),
		zap.String("date", alert.Verdict.SuggestedDate))

	b.mtx.Lock()
	b.remove(id)
	b.mtx.Unlock()
	return updated, nil
}

func (b *AlertBoard) find(id uuid.UUID) (Alert, bool) {
	for _, a := range b.alerts {
		if a.TaskID == id {
			return a, true
		}
	}
	return Alert{}, false
}

func (b *AlertBoard) remove(id uuid.UUID) bool {
	for i, a := range b.alerts {
		if a.TaskID == id {
			b.alerts = append(b.alerts[:i], b.alerts[i+1:]...)
			return true
		}
	}
	return false
}

func (b *AlertBoard) snapshot() []Alert {
	out := make([]Alert, len(b.alerts))
	copy(out, b.alerts)
	return out
}
