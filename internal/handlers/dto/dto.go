package dto

import (
	"time"

	"taskDesk/internal/calendar"
	"taskDesk/internal/lifecycle"
	"taskDesk/internal/models/task"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TaskType    int             `json:"task_type"`
	Priority    int             `json:"priority"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	StartTime   string          `json:"start_time,omitempty"`
	EndTime     string          `json:"end_time,omitempty"`
	Assignees   []task.Assignee `json:"assignees"`
}

type UpdateStatusRequest struct {
	TaskID     string `json:"task_id"`
	ActionType *int   `json:"action_type"`
	Remarks    string `json:"remarks"`
}

type ExtendRequest struct {
	TaskID       string `json:"task_id"`
	ExtendedDate string `json:"extended_date"`
	Remarks      string `json:"remarks"`
}

type EditTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	Remarks     string  `json:"remarks,omitempty"`
}

type DevTokenRequest struct {
	EmpID   int64  `json:"emp_id"`
	EmpName string `json:"emp_name"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TaskResponse struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	TaskType          int        `json:"task_type"`
	TaskTypeName      string     `json:"task_type_name"`
	Priority          int        `json:"priority"`
	PriorityName      string     `json:"priority_name"`
	Status            int        `json:"status"`
	StatusName        string     `json:"status_name"`
	AssignedBy        int64      `json:"assigned_by"`
	AssignedByName    string     `json:"assigned_by_name"`
	AssignedTo        int64      `json:"assigned_to"`
	AssignedToName    string     `json:"assigned_to_name"`
	StartDate         string     `json:"start_date"`
	EndDate           string     `json:"end_date"`
	StartTime         string     `json:"start_time,omitempty"`
	EndTime           string     `json:"end_time,omitempty"`
	ExtendedDate      string     `json:"extended_date,omitempty"`
	EffectiveDeadline string     `json:"effective_deadline"`
	DaysRemaining     int        `json:"days_remaining"`
	IsOverdue         bool       `json:"is_overdue"`
	IsExtended        bool       `json:"is_extended"`
	AllowedActions    []int      `json:"allowed_actions"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
	Version           int        `json:"version"`
}

// FromTask renders t as seen by viewer; allowed actions depend on the viewer's roles.
func FromTask(t *task.Task, viewer int64, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:                t.UUID,
		Title:             t.Title,
		Description:       t.Description,
		TaskType:          int(t.Type),
		TaskTypeName:      t.Type.String(),
		Priority:          int(t.Priority),
		PriorityName:      t.Priority.String(),
		Status:            int(t.Status),
		StatusName:        t.Status.String(),
		AssignedBy:        t.AssignedBy,
		AssignedByName:    t.AssignedByName,
		AssignedTo:        t.AssignedTo,
		AssignedToName:    t.AssignedToName,
		StartDate:         task.FormatDate(t.StartDate),
		EndDate:           task.FormatDate(t.EndDate),
		StartTime:         t.StartTime,
		EndTime:           t.EndTime,
		EffectiveDeadline: task.FormatDate(t.EffectiveDeadline()),
		DaysRemaining:     t.DaysRemaining(now),
		IsOverdue:         t.IsOverdue(now),
		IsExtended:        t.IsExtended(),
		AllowedActions:    []int{},
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		Version:           t.Version,
	}
	if t.IsExtended() {
		resp.ExtendedDate = task.FormatDate(*t.ExtendedDate)
	}
	for _, a := range lifecycle.Allowed(t.Status, t.Views(viewer)...) {
		resp.AllowedActions = append(resp.AllowedActions, int(a))
	}
	return resp
}

func FromTaskList(tasks []*task.Task, viewer int64, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, viewer, now)
	}
	return result
}

type HistoryResponse struct {
	ID           uuid.UUID `json:"id"`
	TaskID       uuid.UUID `json:"task_id"`
	ActionType   int       `json:"action_type"`
	ActionName   string    `json:"action_name"`
	FromStatus   int       `json:"from_status"`
	ToStatus     int       `json:"to_status"`
	ActionBy     int64     `json:"action_by"`
	ActionByName string    `json:"action_by_name"`
	ActionAt     time.Time `json:"action_at"`
	Remarks      string    `json:"remarks,omitempty"`
	ExtendedDate string    `json:"extended_date,omitempty"`
}

func FromHistory(entries []*task.HistoryEntry) []HistoryResponse {
	result := make([]HistoryResponse, len(entries))
	for i, e := range entries {
		result[i] = HistoryResponse{
			ID:           e.UUID,
			TaskID:       e.TaskID,
			ActionType:   int(e.Action),
			ActionName:   e.Action.String(),
			FromStatus:   int(e.FromStatus),
			ToStatus:     int(e.ToStatus),
			ActionBy:     e.ActionBy,
			ActionByName: e.ActionByName,
			ActionAt:     e.ActionAt,
			Remarks:      e.Remarks,
		}
		if e.NewDate != nil {
			result[i].ExtendedDate = task.FormatDate(*e.NewDate)
		}
	}
	return result
}

type AffectedTaskResponse struct {
	Task    TaskResponse     `json:"task"`
	Verdict calendar.Verdict `json:"verdict"`
}

type DashboardResponse struct {
	Total      int            `json:"total"`
	Overdue    int            `json:"overdue"`
	Extended   int            `json:"extended"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
}

func FromCounts(c task.Counts) DashboardResponse {
	resp := DashboardResponse{
		Total:      c.Total,
		Overdue:    c.Overdue,
		Extended:   c.Extended,
		ByStatus:   make(map[string]int, len(c.ByStatus)),
		ByPriority: make(map[string]int, len(c.ByPriority)),
	}
	for _, s := range task.AllStatuses() {
		resp.ByStatus[s.String()] = c.ByStatus[s]
	}
	for p, n := range c.ByPriority {
		resp.ByPriority[p.String()] = n
	}
	return resp
}

// Envelope is the body of every API answer.
type Envelope[T any] struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    T              `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
