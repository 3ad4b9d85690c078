package task

import (
	"strings"
	"time"
)

// InView reports whether empID sees t under view.
func (t *Task) InView(empID int64, view View) bool {
	switch view {
	case ViewSelf:
		return t.AssignedTo == empID
	case ViewAssignedByMe:
		return t.AssignedBy == empID
	}
	return false
}

// Matches applies every set criterion of f to t. Date bounds are inclusive and
// compare against the effective deadline. EmployeeID narrows on the assignee.
func (f Filter) Matches(t *Task, now time.Time) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.EmployeeID != nil && t.AssignedTo != *f.EmployeeID {
		return false
	}

	deadline := t.EffectiveDeadline()
	if f.DateFrom != nil && deadline.Before(Day(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && deadline.After(Day(*f.DateTo)) {
		return false
	}

	if f.OverdueOnly && !t.IsOverdue(now) {
		return false
	}
	if f.ExtendedOnly && !t.IsExtended() {
		return false
	}

	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

// Count folds tasks into dashboard counters.
func Count(tasks []*Task, now time.Time) Counts {
	counts := Counts{
		ByStatus:   make(map[Status]int, len(statusNames)),
		ByPriority: make(map[Priority]int, 3),
	}
	for _, t := range tasks {
		counts.Total++
		counts.ByStatus[t.Status]++
		counts.ByPriority[t.Priority]++
		if t.IsOverdue(now) {
			counts.Overdue++
		}
		if t.IsExtended() {
			counts.Extended++
		}
	}
	return counts
}
