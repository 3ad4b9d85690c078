// Package calendar decides whether a day is a working day and, when it is
// not, which working day to suggest instead.
package calendar

import (
	"context"
	"fmt"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"

	"go.uber.org/zap"
)

const (
	ReasonSunday         = "Sunday"
	DefaultMaxSearchDays = 365
	messageLayout        = "Jan 02, 2006"
)

// Holidays answers whether day is a registered holiday and, if so, its name.
type Holidays interface {
	Lookup(ctx context.Context, day time.Time) (name string, ok bool, err error)
}

// Verdict is the answer to a date check. Reason, SuggestedDate and Message are
// only set when NeedsShift is true.
type Verdict struct {
	NeedsShift    bool   `json:"needs_shift"`
	Reason        string `json:"reason,omitempty"`
	OriginalDate  string `json:"original_date"`
	SuggestedDate string `json:"suggested_date,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (v Verdict) Original() (time.Time, error) {
	return task.ParseDate(v.OriginalDate)
}

func (v Verdict) Suggested() (time.Time, error) {
	return task.ParseDate(v.SuggestedDate)
}

type Checker struct {
	holidays      Holidays
	maxSearchDays int
}

func NewChecker(holidays Holidays, maxSearchDays int) *Checker {
	if maxSearchDays <= 0 {
		maxSearchDays = DefaultMaxSearchDays
	}
	return &Checker{holidays: holidays, maxSearchDays: maxSearchDays}
}

// NonWorking reports why day is not a working day. Sunday wins over a holiday
// falling on the same date.
func (c *Checker) NonWorking(ctx context.Context, day time.Time) (string, bool, error) {
	day = task.Day(day)
	if day.Weekday() == time.Sunday {
		return ReasonSunday, true, nil
	}
	if c.holidays == nil {
		return "", false, nil
	}

	name, ok, err := c.holidays.Lookup(ctx, day)
	if err != nil {
		return "", false, apperr.NewServiceUnavailable("holiday calendar", err)
	}
	if !ok {
		return "", false, nil
	}
	if name == "" {
		name = "Holiday"
	}
	return name, true, nil
}

// CheckDate builds the verdict for day. It is a pure function of the calendar:
// the same day always yields the same verdict while the calendar is unchanged.
func (c *Checker) CheckDate(ctx context.Context, day time.Time) (Verdict, error) {
	day = task.Day(day)
	verdict := Verdict{OriginalDate: task.FormatDate(day)}

	reason, nonWorking, err := c.NonWorking(ctx, day)
	if err != nil {
		return Verdict{}, err
	}
	if !nonWorking {
		return verdict, nil
	}

	suggested, err := c.NextWorkingDay(ctx, day)
	if err != nil {
		return Verdict{}, err
	}

	verdict.NeedsShift = true
	verdict.Reason = reason
	verdict.SuggestedDate = task.FormatDate(suggested)
	verdict.Message = fmt.Sprintf("%s is %s. Shift to %s?",
		day.Format(messageLayout), reason, suggested.Format(messageLayout))
	return verdict, nil
}

// NextWorkingDay walks forward from the day after day, at most maxSearchDays
// days. Running out is reported as SERVICE_UNAVAILABLE since it means the
// holiday calendar is malformed.
func (c *Checker) NextWorkingDay(ctx context.Context, day time.Time) (time.Time, error) {
	current := task.Day(day)
	for i := 0; i < c.maxSearchDays; i++ {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
		current = current.AddDate(0, 0, 1)

		_, nonWorking, err := c.NonWorking(ctx, current)
		if err != nil {
			return time.Time{}, err
		}
		if !nonWorking {
			return current, nil
		}
	}

	logger.Warn("Calendar: No working day within search window",
		zap.String("from", task.FormatDate(day)),
		zap.Int("max_search_days", c.maxSearchDays))
	return time.Time{}, apperr.New(apperr.CodeServiceUnavailable,
		fmt.Sprintf("no working day within %d days after %s", c.maxSearchDays, task.FormatDate(day)),
		apperr.ToDetail("max_search_days", c.maxSearchDays))
}
