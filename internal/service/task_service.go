package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/calendar"
	"taskDesk/internal/lifecycle"
	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"
	"taskDesk/internal/notify"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

type TaskService struct {
	repo     TaskRepository
	checker  DateChecker
	notifier notify.Notifier
	now      func() time.Time
}

func NewTaskService(repo TaskRepository, checker DateChecker, notifier notify.Notifier) *TaskService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &TaskService{
		repo:     repo,
		checker:  checker,
		notifier: notifier,
		now:      time.Now,
	}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Type        task.Type
	Priority    task.Priority
	StartDate   time.Time
	EndDate     time.Time
	StartTime   string
	EndTime     string
	Assignees   []task.Assignee
}

// AffectedTask is a live task whose effective deadline is not a working day.
type AffectedTask struct {
	Task    *task.Task
	Verdict calendar.Verdict
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		logger.Error("Service: health check failed", err)
		return apperr.NewServiceUnavailable("task store", err)
	}
	return nil
}

// Validate collects every problem with the input instead of stopping at the first.
func (in CreateTaskInput) Validate() error {
	var result *multierror.Error
	fail := func(field, reason string) {
		result = multierror.Append(result, apperr.NewValidationError(field, reason))
	}

	if strings.TrimSpace(in.Title) == "" {
		fail("title", "is required")
	}
	if !in.Type.Valid() {
		fail("task_type", fmt.Sprintf("unknown task type %d", int(in.Type)))
	}
	if !in.Priority.Valid() {
		fail("priority", fmt.Sprintf("unknown priority %d", int(in.Priority)))
	}
	if in.StartDate.IsZero() {
		fail("start_date", "is required")
	}
	if in.EndDate.IsZero() {
		fail("end_date", "is required")
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && task.Day(in.EndDate).Before(task.Day(in.StartDate)) {
		fail("end_date", "must not be before start_date")
	}

	if in.Type == task.TypeTimeBound {
		start, startErr := time.Parse(task.TimeLayout, in.StartTime)
		end, endErr := time.Parse(task.TimeLayout, in.EndTime)
		if startErr != nil {
			fail("start_time", "is required for a time bound task (HH:MM)")
		}
		if endErr != nil {
			fail("end_time", "is required for a time bound task (HH:MM)")
		}
		sameDay := !in.StartDate.IsZero() && task.Day(in.StartDate).Equal(task.Day(in.EndDate))
		if startErr == nil && endErr == nil && sameDay && !end.After(start) {
			fail("end_time", "must be after start_time on the same day")
		}
	}

	if len(in.Assignees) == 0 {
		fail("assignees", "at least one assignee is required")
	}
	seen := make(map[int64]bool, len(in.Assignees))
	for _, a := range in.Assignees {
		if a.EmpID <= 0 {
			fail("assignees", fmt.Sprintf("invalid employee id %d", a.EmpID))
			continue
		}
		if seen[a.EmpID] {
			fail("assignees", fmt.Sprintf("employee %d listed twice", a.EmpID))
		}
		seen[a.EmpID] = true
	}

	if result == nil {
		return nil
	}
	return validationFailure(result)
}

// validationFailure folds field errors into one VALIDATION_ERROR listing them all.
func validationFailure(merr *multierror.Error) error {
	if len(merr.Errors) == 1 {
		return merr.Errors[0]
	}
	fields := make([]map[string]any, 0, len(merr.Errors))
	for _, err := range merr.Errors {
		var busErr *apperr.BusinessError
		if errors.As(err, &busErr) {
			fields = append(fields, busErr.Details)
		}
	}
	return apperr.Wrap(apperr.CodeValidation, fmt.Sprintf("%d fields are invalid", len(merr.Errors)), merr,
		apperr.ToDetail("fields", fields),
	)
}

// CreateTasks fans the input out into one task per assignee, stored as one batch.
func (s *TaskService) CreateTasks(ctx context.Context, actor task.Actor, in CreateTaskInput) ([]*task.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tasks := make([]*task.Task, 0, len(in.Assignees))
	entries := make([]*task.HistoryEntry, 0, len(in.Assignees))
	for _, a := range in.Assignees {
		t := &task.Task{
			UUID:           uuid.New(),
			Title:          strings.TrimSpace(in.Title),
			Description:    in.Description,
			Type:           in.Type,
			Priority:       in.Priority,
			Status:         task.StatusAssigned,
			AssignedBy:     actor.EmpID,
			AssignedByName: actor.Name,
			AssignedTo:     a.EmpID,
			AssignedToName: a.Name,
			StartDate:      task.Day(in.StartDate),
			EndDate:        task.Day(in.EndDate),
		}
		if in.Type == task.TypeTimeBound {
			t.StartTime, t.EndTime = in.StartTime, in.EndTime
		}
		tasks = append(tasks, t)
		entries = append(entries, task.NewHistoryEntry(t, task.ActionAssign, task.StatusAssigned, actor, "", nil))
	}

	if err := s.repo.CreateBatch(ctx, tasks, entries); err != nil {
		logger.Error("Service: failed to create tasks", err, zap.Int("count", len(tasks)))
		return nil, storageError(err, tasks[0].UUID)
	}

	logger.Info("Service: tasks created",
		zap.Int64("assigned_by", actor.EmpID),
		zap.Int("count", len(tasks)))

	for _, t := range tasks {
		s.notify(ctx, t.AssignedTo, notify.NewEvent(notify.EventTaskAssigned, t, actor))
	}
	return tasks, nil
}

// GetTask returns the task if actor is one of its parties. Strangers get NOT_FOUND.
func (s *TaskService) GetTask(ctx context.Context, actor task.Actor, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, id)
	}
	if len(t.Views(actor.EmpID)) == 0 {
		logger.Info("Service: task requested by a non-party",
			zap.String("task_id", id.String()),
			zap.Int64("emp_id", actor.EmpID))
		return nil, apperr.NewNotFound("task", id.String())
	}
	return t, nil
}

func (s *TaskService) ListTasks(ctx context.Context, actor task.Actor, view task.View, filter task.Filter) ([]*task.Task, error) {
	tasks, err := s.repo.List(ctx, actor.EmpID, view, filter)
	if err != nil {
		logger.Error("Service: failed to list tasks", err)
		return nil, apperr.NewServiceUnavailable("task store", err)
	}
	return tasks, nil
}

func (s *TaskService) Dashboard(ctx context.Context, actor task.Actor, view task.View) (task.Counts, error) {
	tasks, err := s.ListTasks(ctx, actor, view, task.Filter{})
	if err != nil {
		return task.Counts{}, err
	}
	return task.Count(tasks, s.now()), nil
}

// UpdateStatus runs one lifecycle transition and records it.
func (s *TaskService) UpdateStatus(ctx context.Context, actor task.Actor, id uuid.UUID, action task.Action, remarks string) (*task.Task, error) {
	if !lifecycle.ChangesStatus(action) {
		return nil, apperr.NewValidationError("action_type", fmt.Sprintf("%s is not a status transition", action))
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, id)
	}

	to, err := lifecycle.Decide(t.Status, action, t.Views(actor.EmpID)...)
	if err != nil {
		logger.Info("Service: transition rejected",
			zap.String("task_id", id.String()),
			zap.String("status", t.Status.String()),
			zap.String("action", action.String()),
			zap.Int64("emp_id", actor.EmpID))
		return nil, err
	}

	entry := task.NewHistoryEntry(t, action, to, actor, strings.TrimSpace(remarks), nil)
	t.Status = to
	if err := s.repo.Apply(ctx, t, entry); err != nil {
		return nil, storageError(err, id)
	}

	logger.Info("Service: status changed",
		zap.String("task_id", id.String()),
		zap.String("from", entry.FromStatus.String()),
		zap.String("to", to.String()))

	s.notify(ctx, t.Counterpart(actor.EmpID), notify.NewEvent(notify.EventStatusChanged, t, actor))
	return t, nil
}

// ExtendDeadline commits date as the task's new effective deadline. The date
// is taken as is; negotiating a working day is the caller's job.
func (s *TaskService) ExtendDeadline(ctx context.Context, actor task.Actor, id uuid.UUID, date time.Time, remarks string) (*task.Task, error) {
	if date.IsZero() {
		return nil, apperr.NewValidationError("extended_date", "is required")
	}
	date = task.Day(date)

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, id)
	}

	if _, err := lifecycle.Decide(t.Status, task.ActionExtend, t.Views(actor.EmpID)...); err != nil {
		return nil, err
	}
	if date.Before(task.Day(t.StartDate)) {
		return nil, apperr.NewValidationError("extended_date", "must not be before the task start date")
	}

	entry := task.NewHistoryEntry(t, task.ActionExtend, t.Status, actor, strings.TrimSpace(remarks), &date)
	t.ExtendedDate = &date
	if err := s.repo.Apply(ctx, t, entry); err != nil {
		return nil, storageError(err, id)
	}

	logger.Info("Service: deadline extended",
		zap.String("task_id", id.String()),
		zap.String("extended_date", task.FormatDate(date)))

	ev := notify.NewEvent(notify.EventExtended, t, actor)
	ev.Date = task.FormatDate(date)
	s.notify(ctx, t.Counterpart(actor.EmpID), ev)
	return t, nil
}

// EditTask corrects descriptive fields without touching the status.
func (s *TaskService) EditTask(ctx context.Context, actor task.Actor, id uuid.UUID, remarks string, options ...task.TaskOption) (*task.Task, error) {
	pending := &task.Task{}
	if !task.Apply(pending, options...) {
		return nil, apperr.NewValidationError("body", "nothing to change")
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, id)
	}

	if _, err := lifecycle.Decide(t.Status, task.ActionEdit, t.Views(actor.EmpID)...); err != nil {
		return nil, err
	}

	entry := task.NewHistoryEntry(t, task.ActionEdit, t.Status, actor, strings.TrimSpace(remarks), nil)
	task.Apply(t, options...)
	if t.EndDate.Before(t.StartDate) {
		return nil, apperr.NewValidationError("end_date", "must not be before start_date")
	}
	if err := s.repo.Apply(ctx, t, entry); err != nil {
		return nil, storageError(err, id)
	}

	logger.Info("Service: task edited", zap.String("task_id", id.String()))
	return t, nil
}

func (s *TaskService) History(ctx context.Context, actor task.Actor, id uuid.UUID) ([]*task.HistoryEntry, error) {
	if _, err := s.GetTask(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, storageError(err, id)
	}
	return entries, nil
}

func (s *TaskService) CheckDate(ctx context.Context, date time.Time) (calendar.Verdict, error) {
	if date.IsZero() {
		return calendar.Verdict{}, apperr.NewValidationError("date", "is required")
	}
	return s.checker.CheckDate(ctx, date)
}

// AffectedTasks lists the live tasks in view whose effective deadline needs a shift.
func (s *TaskService) AffectedTasks(ctx context.Context, actor task.Actor, view task.View) ([]AffectedTask, error) {
	tasks, err := s.ListTasks(ctx, actor, view, task.Filter{})
	if err != nil {
		return nil, err
	}

	affected := []AffectedTask{}
	verdicts := make(map[time.Time]calendar.Verdict)
	for _, t := range tasks {
		if t.Status.IsTerminal() {
			continue
		}
		deadline := t.EffectiveDeadline()
		verdict, ok := verdicts[deadline]
		if !ok {
			verdict, err = s.checker.CheckDate(ctx, deadline)
			if err != nil {
				return nil, err
			}
			verdicts[deadline] = verdict
		}
		if verdict.NeedsShift {
			affected = append(affected, AffectedTask{Task: t, Verdict: verdict})
		}
	}
	return affected, nil
}

// notify never fails the caller: the change is already committed.
func (s *TaskService) notify(ctx context.Context, empID int64, ev notify.Event) {
	if err := s.notifier.Notify(ctx, empID, ev); err != nil {
		logger.Warn("Service: notification dropped",
			zap.String("type", string(ev.Type)),
			zap.Int64("emp_id", empID),
			zap.Error(err))
	}
}
