package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"
	repo "taskDesk/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const taskColumns = `uuid, title, description, task_type, priority, status,
	assigned_by, assigned_by_name, assigned_to, assigned_to_name,
	start_date, end_date, start_time, end_time, extended_date,
	created_at, updated_at, version`

const historyColumns = `uuid, task_uuid, action_type, from_status, to_status,
	action_by, action_by_name, action_at, remarks, new_date`

const uniqueViolation = "23505"

// CreateBatch inserts every task with its history entries in one transaction.
func (s *Storage) CreateBatch(ctx context.Context, tasks []*task.Task, entries []*task.HistoryEntry) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: failed to begin transaction", err)
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO tasks (` + taskColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NULL, 1)
			RETURNING created_at, version`

	for _, t := range tasks {
		err := tx.QueryRow(ctx, query,
			t.UUID,
			t.Title,
			t.Description,
			t.Type,
			t.Priority,
			t.Status,
			t.AssignedBy,
			t.AssignedByName,
			t.AssignedTo,
			t.AssignedToName,
			t.StartDate,
			t.EndDate,
			t.StartTime,
			t.EndTime,
			t.ExtendedDate,
		).Scan(&t.CreatedAt, &t.Version)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				logger.Warn("Repository: task already exists", zap.String("task_id", t.UUID.String()))
				return repo.ErrVersionConflict
			}
			logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
			return fmt.Errorf("insert task: %w", err)
		}
	}

	for _, e := range entries {
		if err := insertHistory(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: failed to commit batch", err)
		return fmt.Errorf("commit: %w", err)
	}

	warnIfSlow("create_batch", start, slowQuery+10*time.Millisecond*time.Duration(len(tasks)))
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE uuid = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("get task: %w", err)
	}

	warnIfSlow("get_by_id", start, slowQuery)
	return t, nil
}

// Apply writes t if the stored version still matches and records entry in the
// same transaction. t.Version and t.UpdatedAt are refreshed on success.
func (s *Storage) Apply(ctx context.Context, t *task.Task, entry *task.HistoryEntry) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: failed to begin transaction", err)
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				priority = $3,
				status = $4,
				end_date = $5,
				extended_date = $6,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $7 AND version = $8
			RETURNING updated_at, version`

	err = tx.QueryRow(ctx, query,
		t.Title,
		t.Description,
		t.Priority,
		t.Status,
		t.EndDate,
		t.ExtendedDate,
		t.UUID,
		t.Version,
	).Scan(&t.UpdatedAt, &t.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE uuid = $1)`, t.UUID).Scan(&exists); err != nil {
				return fmt.Errorf("check task: %w", err)
			}
			if !exists {
				return repo.ErrNotFound
			}
			logger.Warn("Repository: version conflict on update",
				zap.String("task_id", t.UUID.String()),
				zap.Int("expected_version", t.Version))
			return repo.ErrVersionConflict
		}
		logger.Error("Repository: failed to update task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("update task: %w", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: failed to commit update", err)
		return fmt.Errorf("commit: %w", err)
	}

	warnIfSlow("apply", start, slowQuery)
	return nil
}

func (s *Storage) History(ctx context.Context, id uuid.UUID) ([]*task.HistoryEntry, error) {
	start := time.Now()

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE uuid = $1)`, id).Scan(&exists); err != nil {
		logger.Error("Repository: failed to check task", err)
		return nil, fmt.Errorf("check task: %w", err)
	}
	if !exists {
		return nil, repo.ErrNotFound
	}

	query := `SELECT ` + historyColumns + ` FROM task_history
			WHERE task_uuid = $1
			ORDER BY action_at, seq`

	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		logger.Error("Repository: failed to get history", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	entries := []*task.HistoryEntry{}
	for rows.Next() {
		e := &task.HistoryEntry{}
		err := rows.Scan(
			&e.UUID,
			&e.TaskID,
			&e.Action,
			&e.FromStatus,
			&e.ToStatus,
			&e.ActionBy,
			&e.ActionByName,
			&e.ActionAt,
			&e.Remarks,
			&e.NewDate,
		)
		if err != nil {
			logger.Error("Repository: failed to scan history entry", err)
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	warnIfSlow("history", start, slowQuery)
	return entries, nil
}

// List returns the tasks empID sees under view that pass filter, oldest first.
func (s *Storage) List(ctx context.Context, empID int64, view task.View, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()

	where, args := listConditions(empID, view, filter)
	query := `SELECT ` + taskColumns + ` FROM tasks
			WHERE ` + strings.Join(where, " AND ") + `
			ORDER BY created_at, uuid`

	tasks, err := s.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	warnIfSlow("list", start, slowQuery)
	return tasks, nil
}

// ListActive returns up to limit tasks that are not in a terminal status,
// skipping the first offset of them, in creation order.
func (s *Storage) ListActive(ctx context.Context, offset, limit int) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks
			WHERE status NOT IN ($1, $2)
			ORDER BY created_at, uuid
			LIMIT $3 OFFSET $4`

	tasks, err := s.queryTasks(ctx, query, task.StatusApproved, task.StatusCancelled, limit, offset)
	if err != nil {
		return nil, err
	}

	warnIfSlow("list_active", start, slowQuery+10*time.Millisecond*time.Duration(limit))
	return tasks, nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err)
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: failed to scan task", err)
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// listConditions mirrors task.Filter.Matches in SQL.
func listConditions(empID int64, view task.View, f task.Filter) ([]string, []any) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch view {
	case task.ViewAssignedByMe:
		where = append(where, "assigned_by = "+arg(empID))
	default:
		where = append(where, "assigned_to = "+arg(empID))
	}

	if f.Status != nil {
		where = append(where, "status = "+arg(*f.Status))
	}
	if f.Priority != nil {
		where = append(where, "priority = "+arg(*f.Priority))
	}
	if f.Type != nil {
		where = append(where, "task_type = "+arg(*f.Type))
	}
	if f.EmployeeID != nil {
		where = append(where, "assigned_to = "+arg(*f.EmployeeID))
	}
	if f.DateFrom != nil {
		where = append(where, "COALESCE(extended_date, end_date) >= "+arg(task.Day(*f.DateFrom)))
	}
	if f.DateTo != nil {
		where = append(where, "COALESCE(extended_date, end_date) <= "+arg(task.Day(*f.DateTo)))
	}
	if f.OverdueOnly {
		where = append(where, fmt.Sprintf("status NOT IN (%s, %s) AND COALESCE(extended_date, end_date) < %s",
			arg(task.StatusApproved), arg(task.StatusCancelled), arg(task.Day(time.Now()))))
	}
	if f.ExtendedOnly {
		where = append(where, "extended_date IS NOT NULL")
	}
	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		where = append(where, fmt.Sprintf(`(title ILIKE %s ESCAPE '\' OR description ILIKE %s ESCAPE '\')`, p, p))
	}
	return where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func insertHistory(ctx context.Context, tx pgx.Tx, e *task.HistoryEntry) error {
	query := `INSERT INTO task_history (` + historyColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		e.UUID,
		e.TaskID,
		e.Action,
		e.FromStatus,
		e.ToStatus,
		e.ActionBy,
		e.ActionByName,
		e.ActionAt,
		e.Remarks,
		e.NewDate,
	)
	if err != nil {
		logger.Error("Repository: failed to insert history entry", err, zap.String("task_id", e.TaskID.String()))
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.UUID,
		&t.Title,
		&t.Description,
		&t.Type,
		&t.Priority,
		&t.Status,
		&t.AssignedBy,
		&t.AssignedByName,
		&t.AssignedTo,
		&t.AssignedToName,
		&t.StartDate,
		&t.EndDate,
		&t.StartTime,
		&t.EndTime,
		&t.ExtendedDate,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
