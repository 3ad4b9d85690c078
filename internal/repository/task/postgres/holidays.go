package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"

	"github.com/jackc/pgx/v5"
)

// Lookup reports whether day is an active row of the holidays table.
func (s *Storage) Lookup(ctx context.Context, day time.Time) (string, bool, error) {
	start := time.Now()

	var name string
	err := s.pool.QueryRow(ctx,
		`SELECT name FROM holidays WHERE holiday_date = $1 AND active`, task.Day(day),
	).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		logger.Error("Repository: holiday lookup failed", err)
		return "", false, fmt.Errorf("holiday lookup: %w", err)
	}

	warnIfSlow("holiday_lookup", start, slowQuery)
	return name, true, nil
}

// UpsertHoliday registers or reactivates a holiday.
func (s *Storage) UpsertHoliday(ctx context.Context, day time.Time, name string, active bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO holidays (holiday_date, name, active) VALUES ($1, $2, $3)
		ON CONFLICT (holiday_date) DO UPDATE SET name = EXCLUDED.name, active = EXCLUDED.active`,
		task.Day(day), name, active)
	if err != nil {
		logger.Error("Repository: failed to upsert holiday", err)
		return fmt.Errorf("upsert holiday: %w", err)
	}
	return nil
}
