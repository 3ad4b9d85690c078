package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	UUID           uuid.UUID  `json:"id" db:"uuid"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	Type           Type       `json:"task_type" db:"task_type"`
	Priority       Priority   `json:"priority" db:"priority"`
	Status         Status     `json:"status" db:"status"`
	AssignedBy     int64      `json:"assigned_by" db:"assigned_by"`
	AssignedByName string     `json:"assigned_by_name" db:"assigned_by_name"`
	AssignedTo     int64      `json:"assigned_to" db:"assigned_to"`
	AssignedToName string     `json:"assigned_to_name" db:"assigned_to_name"`
	StartDate      time.Time  `json:"start_date" db:"start_date"`
	EndDate        time.Time  `json:"end_date" db:"end_date"`
	StartTime      string     `json:"start_time,omitempty" db:"start_time"`
	EndTime        string     `json:"end_time,omitempty" db:"end_time"`
	ExtendedDate   *time.Time `json:"extended_date,omitempty" db:"extended_date"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" db:"updated_at"`
	Version        int        `json:"version" db:"version"`
}

// EffectiveDeadline is the extended date when one is set, the scheduled end otherwise.
func (t *Task) EffectiveDeadline() time.Time {
	if t.ExtendedDate != nil && !t.ExtendedDate.IsZero() {
		return Day(*t.ExtendedDate)
	}
	return Day(t.EndDate)
}

func (t *Task) DaysRemaining(now time.Time) int {
	return DaysBetween(Day(now), t.EffectiveDeadline())
}

func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Status.IsTerminal() && t.DaysRemaining(now) < 0
}

func (t *Task) IsExtended() bool {
	return t.ExtendedDate != nil && !t.ExtendedDate.IsZero()
}

// Views returns every role empID holds on the task. A self-assigned task yields both.
func (t *Task) Views(empID int64) []View {
	views := make([]View, 0, 2)
	if t.AssignedTo == empID {
		views = append(views, ViewSelf)
	}
	if t.AssignedBy == empID {
		views = append(views, ViewAssignedByMe)
	}
	return views
}

// Counterpart is the employee who should hear about an action taken by empID.
func (t *Task) Counterpart(empID int64) int64 {
	if t.AssignedTo == empID {
		return t.AssignedBy
	}
	return t.AssignedTo
}

type HistoryEntry struct {
	UUID         uuid.UUID  `json:"id" db:"uuid"`
	TaskID       uuid.UUID  `json:"task_id" db:"task_uuid"`
	Action       Action     `json:"action_type" db:"action_type"`
	FromStatus   Status     `json:"from_status" db:"from_status"`
	ToStatus     Status     `json:"to_status" db:"to_status"`
	ActionBy     int64      `json:"action_by" db:"action_by"`
	ActionByName string     `json:"action_by_name" db:"action_by_name"`
	ActionAt     time.Time  `json:"action_at" db:"action_at"`
	Remarks      string     `json:"remarks,omitempty" db:"remarks"`
	NewDate      *time.Time `json:"extended_date,omitempty" db:"new_date"`
}

// NewHistoryEntry records action on t as it is before the change is applied.
func NewHistoryEntry(t *Task, action Action, to Status, actor Actor, remarks string, newDate *time.Time) *HistoryEntry {
	return &HistoryEntry{
		UUID:         uuid.New(),
		TaskID:       t.UUID,
		Action:       action,
		FromStatus:   t.Status,
		ToStatus:     to,
		ActionBy:     actor.EmpID,
		ActionByName: actor.Name,
		ActionAt:     time.Now().UTC(),
		Remarks:      remarks,
		NewDate:      newDate,
	}
}

// Actor is the authenticated employee behind a request.
type Actor struct {
	EmpID int64  `json:"emp_id"`
	Name  string `json:"emp_name"`
}

type Assignee struct {
	EmpID int64  `json:"emp_id"`
	Name  string `json:"emp_name,omitempty"`
}

type Filter struct {
	Status       *Status
	Priority     *Priority
	Type         *Type
	EmployeeID   *int64
	DateFrom     *time.Time
	DateTo       *time.Time
	OverdueOnly  bool
	ExtendedOnly bool
	Search       string
}

type Counts struct {
	Total      int              `json:"total"`
	Overdue    int              `json:"overdue"`
	Extended   int              `json:"extended"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByPriority map[Priority]int `json:"by_priority"`
}
