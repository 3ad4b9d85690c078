package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Google reads holidays from a Google calendar, typically one of the public
// "Holidays in <country>" calendars. Every all-day event counts as a holiday.
type Google struct {
	srv        *gcal.Service
	calendarID string
}

func NewGoogle(srv *gcal.Service, calendarID string) *Google {
	return &Google{srv: srv, calendarID: calendarID}
}

// DialGoogle builds the calendar service from a service-account or
// authorized-user JSON file, or from application default credentials when
// credentialsFile is empty.
func DialGoogle(ctx context.Context, credentialsFile, calendarID string) (*Google, error) {
	var creds *google.Credentials
	var err error

	if credentialsFile != "" {
		data, readErr := os.ReadFile(credentialsFile)
		if readErr != nil {
			return nil, fmt.Errorf("read credentials: %w", readErr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, gcal.CalendarReadonlyScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, gcal.CalendarReadonlyScope)
	}
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}

	srv, err := gcal.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar client: %w", err)
	}

	logger.Info("Calendar: Google holiday calendar connected", zap.String("calendar_id", calendarID))
	return NewGoogle(srv, calendarID), nil
}

func (g *Google) Lookup(ctx context.Context, day time.Time) (string, bool, error) {
	day = task.Day(day)
	events, err := g.srv.Events.List(g.calendarID).
		Context(ctx).
		SingleEvents(true).
		TimeMin(day.Format(time.RFC3339)).
		TimeMax(day.AddDate(0, 0, 1).Format(time.RFC3339)).
		Do()
	if err != nil {
		return "", false, fmt.Errorf("list holiday events: %w", err)
	}

	want := task.FormatDate(day)
	for _, item := range events.Items {
		if item.Start == nil || item.Start.Date != want {
			continue
		}
		return item.Summary, true, nil
	}
	return "", false, nil
}
