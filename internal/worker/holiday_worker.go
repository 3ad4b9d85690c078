package worker

import (
	"context"
	"fmt"
	"time"

	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"
	"taskDesk/internal/notify"
	"taskDesk/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HolidayAlertWorker warns assigners about live tasks whose deadline fell on
// a non-working day after it was committed. It never moves a deadline.
type HolidayAlertWorker struct {
	repo      service.TaskRepository
	checker   service.DateChecker
	notifier  notify.Notifier
	cron      *cron.Cron
	schedule  string
	batchSize int
	now       func() time.Time
}

func NewHolidayAlertWorker(repo service.TaskRepository, checker service.DateChecker, notifier notify.Notifier, schedule string, batchSize int) (*HolidayAlertWorker, error) {
	if schedule == "" {
		schedule = "0 7 * * *"
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("worker schedule %q: %w", schedule, err)
	}

	return &HolidayAlertWorker{
		repo:      repo,
		checker:   checker,
		notifier:  notifier,
		cron:      cron.New(),
		schedule:  schedule,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

// Start runs the sweep on schedule until ctx is done.
func (w *HolidayAlertWorker) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		logger.Info("Worker: holiday sweep started", zap.Time("started_at", w.now()))
		if _, err := w.Check(ctx); err != nil {
			logger.Warn("Worker: holiday sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	w.cron.Start()
	logger.Info("Worker: holiday sweep scheduled", zap.String("schedule", w.schedule))

	<-ctx.Done()
	<-w.cron.Stop().Done()
	logger.Info("Worker: holiday sweep stopped")
	return nil
}

// Check runs one sweep over every live task, a page of batchSize at a time,
// and returns how many alerts were published.
func (w *HolidayAlertWorker) Check(ctx context.Context) (int, error) {
	start := time.Now()
	today := task.Day(w.now())

	alerted, checked := 0, 0
	for offset := 0; ; offset += w.batchSize {
		tasks, err := w.repo.ListActive(ctx, offset, w.batchSize)
		if err != nil {
			return alerted, fmt.Errorf("list active tasks: %w", err)
		}

		n, err := w.alert(ctx, tasks, today)
		alerted += n
		checked += len(tasks)
		if err != nil {
			return alerted, err
		}
		if len(tasks) < w.batchSize {
			break
		}
	}

	logger.Info("Worker: holiday sweep finished",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", checked),
		zap.Int("alerted", alerted),
	)
	return alerted, nil
}

func (w *HolidayAlertWorker) alert(ctx context.Context, tasks []*task.Task, today time.Time) (int, error) {
	alerted := 0
	for _, t := range tasks {
		deadline := t.EffectiveDeadline()
		if deadline.Before(today) {
			continue
		}

		verdict, err := w.checker.CheckDate(ctx, deadline)
		if err != nil {
			return alerted, fmt.Errorf("check %s: %w", task.FormatDate(deadline), err)
		}
		if !verdict.NeedsShift {
			continue
		}

		ev := notify.NewEvent(notify.EventHolidayAlert, t, task.Actor{})
		ev.Date = verdict.SuggestedDate
		ev.Message = verdict.Message
		if err := w.notifier.Notify(ctx, t.AssignedBy, ev); err != nil {
			logger.Warn("Worker: alert dropped",
				zap.String("task_id", t.UUID.String()),
				zap.Error(err))
			continue
		}
		alerted++
	}
	return alerted, nil
}
