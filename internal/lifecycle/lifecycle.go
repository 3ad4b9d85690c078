// Package lifecycle holds the single transition table for task statuses.
//
// Every mutation of a task (status change, deadline extension, edit) is
// decided here from (current status, action, actor role). Handlers use
// Allowed to decide which controls to expose; the service uses Decide
// before it touches storage.
package lifecycle

import (
	"taskDesk/internal/apperr"
	"taskDesk/internal/models/task"
)

// Rule describes one action: who may invoke it, from where, and where it leads.
// KeepStatus marks actions that leave the status as it is (extend, edit).
type Rule struct {
	Action     task.Action
	Role       task.View
	From       []task.Status
	To         task.Status
	KeepStatus bool
}

var nonTerminal = []task.Status{
	task.StatusAssigned,
	task.StatusStarted,
	task.StatusSubmitted,
	task.StatusRejected,
	task.StatusResubmitted,
	task.StatusOnHold,
}

var rules = []Rule{
	{Action: task.ActionStart, Role: task.ViewSelf,
		From: []task.Status{task.StatusAssigned, task.StatusOnHold}, To: task.StatusStarted},
	{Action: task.ActionSubmit, Role: task.ViewSelf,
		From: []task.Status{task.StatusStarted}, To: task.StatusSubmitted},
	{Action: task.ActionResubmit, Role: task.ViewSelf,
		From: []task.Status{task.StatusRejected}, To: task.StatusResubmitted},

	{Action: task.ActionApprove, Role: task.ViewAssignedByMe,
		From: []task.Status{task.StatusSubmitted, task.StatusResubmitted}, To: task.StatusApproved},
	{Action: task.ActionReject, Role: task.ViewAssignedByMe,
		From: []task.Status{task.StatusSubmitted, task.StatusResubmitted}, To: task.StatusRejected},
	{Action: task.ActionCancel, Role: task.ViewAssignedByMe,
		From: nonTerminal, To: task.StatusCancelled},
	{Action: task.ActionExtend, Role: task.ViewAssignedByMe,
		From: nonTerminal, KeepStatus: true},
	{Action: task.ActionEdit, Role: task.ViewAssignedByMe,
		From: nonTerminal, KeepStatus: true},
}

type key struct {
	from   task.Status
	action task.Action
	role   task.View
}

var (
	byAction = make(map[task.Action]Rule, len(rules))
	table    = make(map[key]task.Status)
)

func init() {
	for _, r := range rules {
		byAction[r.Action] = r
		for _, from := range r.From {
			to := r.To
			if r.KeepStatus {
				to = from
			}
			table[key{from: from, action: r.Action, role: r.Role}] = to
		}
	}
}

// Decide returns the status a task moves to when an actor holding roles
// invokes action on a task in status from.
//
// The role check comes first: an actor lacking the required role gets
// NOT_AUTHORIZED whatever the status. Then an illegal source status gets
// INVALID_TRANSITION. Actions outside the table are validation errors.
func Decide(from task.Status, action task.Action, roles ...task.View) (task.Status, error) {
	rule, ok := byAction[action]
	if !ok {
		return from, apperr.NewValidationError("action_type", "unknown action "+action.String())
	}

	if !hasRole(roles, rule.Role) {
		return from, apperr.NewNotAuthorized(action, string(rule.Role))
	}

	to, ok := table[key{from: from, action: action, role: rule.Role}]
	if !ok {
		return from, apperr.NewInvalidTransition(from, action)
	}
	return to, nil
}

// Allowed lists, in table order, what an actor holding roles may do to a
// task in status from.
func Allowed(from task.Status, roles ...task.View) []task.Action {
	var actions []task.Action
	for _, r := range rules {
		if !hasRole(roles, r.Role) {
			continue
		}
		if _, ok := table[key{from: from, action: r.Action, role: r.Role}]; ok {
			actions = append(actions, r.Action)
		}
	}
	return actions
}

// RuleFor exposes the rule behind action, mostly for documentation endpoints and tests.
func RuleFor(action task.Action) (Rule, bool) {
	r, ok := byAction[action]
	return r, ok
}

// ChangesStatus reports whether action is a status transition (as opposed to extend or edit).
func ChangesStatus(action task.Action) bool {
	r, ok := byAction[action]
	return ok && !r.KeepStatus
}

func hasRole(roles []task.View, want task.View) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
