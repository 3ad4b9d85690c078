package task

import "fmt"

// Status codes are a wire contract with the task store; never renumber.
type Status int

const (
	StatusAssigned    Status = 0
	StatusStarted     Status = 1
	StatusSubmitted   Status = 2
	StatusApproved    Status = 3
	StatusRejected    Status = 4
	StatusResubmitted Status = 5
	StatusCancelled   Status = 6
	StatusOnHold      Status = 7
)

var statusNames = map[Status]string{
	StatusAssigned:    "ASSIGNED",
	StatusStarted:     "STARTED",
	StatusSubmitted:   "SUBMITTED",
	StatusApproved:    "APPROVED",
	StatusRejected:    "REJECTED",
	StatusResubmitted: "RESUBMITTED",
	StatusCancelled:   "CANCELLED",
	StatusOnHold:      "ON_HOLD",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusCancelled
}

func AllStatuses() []Status {
	return []Status{
		StatusAssigned, StatusStarted, StatusSubmitted, StatusApproved,
		StatusRejected, StatusResubmitted, StatusCancelled, StatusOnHold,
	}
}

// Action codes 0..7 mirror the status they lead to; 8 and 9 do not touch status.
type Action int

const (
	ActionAssign   Action = 0
	ActionStart    Action = 1
	ActionSubmit   Action = 2
	ActionApprove  Action = 3
	ActionReject   Action = 4
	ActionResubmit Action = 5
	ActionCancel   Action = 6
	ActionHold     Action = 7
	ActionExtend   Action = 8
	ActionEdit     Action = 9
)

var actionNames = map[Action]string{
	ActionAssign:   "Assign",
	ActionStart:    "Start",
	ActionSubmit:   "Submit",
	ActionApprove:  "Approve",
	ActionReject:   "Reject",
	ActionResubmit: "Resubmit",
	ActionCancel:   "Cancel",
	ActionHold:     "Hold",
	ActionExtend:   "Extend",
	ActionEdit:     "Edit",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ACTION(%d)", int(a))
}

func (a Action) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	}
	return fmt.Sprintf("PRIORITY(%d)", int(p))
}

type Type int

const (
	TypeRandom    Type = 4
	TypeTimeBound Type = 5
)

func (t Type) Valid() bool {
	return t == TypeRandom || t == TypeTimeBound
}

func (t Type) String() string {
	switch t {
	case TypeRandom:
		return "RANDOM"
	case TypeTimeBound:
		return "TIME_BOUND"
	}
	return fmt.Sprintf("TYPE(%d)", int(t))
}

// View is the role the current employee holds on a task.
type View string

const (
	ViewSelf         View = "SELF"
	ViewAssignedByMe View = "ASSIGNED_BY_ME"
)

func ParseView(s string, fallback View) View {
	switch View(s) {
	case ViewSelf, ViewAssignedByMe:
		return View(s)
	}
	return fallback
}
