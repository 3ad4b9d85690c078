package lifecycle_test

import (
	"fmt"
	"testing"

	"taskDesk/internal/apperr"
	"taskDesk/internal/lifecycle"
	"taskDesk/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bothRoles = []task.View{task.ViewSelf, task.ViewAssignedByMe}

// legal lists every (from, action) pair that may succeed, with its result.
var legal = map[task.Status]map[task.Action]task.Status{
	task.StatusAssigned: {
		task.ActionStart:  task.StatusStarted,
		task.ActionCancel: task.StatusCancelled,
		task.ActionExtend: task.StatusAssigned,
		task.ActionEdit:   task.StatusAssigned,
	},
	task.StatusStarted: {
		task.ActionSubmit: task.StatusSubmitted,
		task.ActionCancel: task.StatusCancelled,
		task.ActionExtend: task.StatusStarted,
		task.ActionEdit:   task.StatusStarted,
	},
	task.StatusSubmitted: {
		task.ActionApprove: task.StatusApproved,
		task.ActionReject:  task.StatusRejected,
		task.ActionCancel:  task.StatusCancelled,
		task.ActionExtend:  task.StatusSubmitted,
		task.ActionEdit:    task.StatusSubmitted,
	},
	task.StatusApproved: {},
	task.StatusRejected: {
		task.ActionResubmit: task.StatusResubmitted,
		task.ActionCancel:   task.StatusCancelled,
		task.ActionExtend:   task.StatusRejected,
		task.ActionEdit:     task.StatusRejected,
	},
	task.StatusResubmitted: {
		task.ActionApprove: task.StatusApproved,
		task.ActionReject:  task.StatusRejected,
		task.ActionCancel:  task.StatusCancelled,
		task.ActionExtend:  task.StatusResubmitted,
		task.ActionEdit:    task.StatusResubmitted,
	},
	task.StatusCancelled: {},
	task.StatusOnHold: {
		task.ActionStart:  task.StatusStarted,
		task.ActionCancel: task.StatusCancelled,
		task.ActionExtend: task.StatusOnHold,
		task.ActionEdit:   task.StatusOnHold,
	},
}

var tableActions = []task.Action{
	task.ActionStart, task.ActionSubmit, task.ActionApprove, task.ActionReject,
	task.ActionResubmit, task.ActionCancel, task.ActionExtend, task.ActionEdit,
}

func TestDecide_FullGrid(t *testing.T) {
	for _, from := range task.AllStatuses() {
		for _, action := range tableActions {
			t.Run(fmt.Sprintf("%s/%s", from, action), func(t *testing.T) {
				to, err := lifecycle.Decide(from, action, bothRoles...)

				want, ok := legal[from][action]
				if ok {
					require.NoError(t, err)
					assert.Equal(t, want, to)
					return
				}
				require.Error(t, err)
				assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))
				assert.Equal(t, from, to)
			})
		}
	}
}

func TestDecide_TerminalStatusesRejectEverything(t *testing.T) {
	for _, from := range []task.Status{task.StatusApproved, task.StatusCancelled} {
		assert.True(t, from.IsTerminal())
		for _, action := range tableActions {
			_, err := lifecycle.Decide(from, action, bothRoles...)
			assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition), "%s from %s", action, from)
		}
		assert.Empty(t, lifecycle.Allowed(from, bothRoles...))
	}
}

func TestDecide_WrongRole(t *testing.T) {
	tests := []struct {
		name   string
		from   task.Status
		action task.Action
		role   task.View
	}{
		{"assigner cannot start", task.StatusAssigned, task.ActionStart, task.ViewAssignedByMe},
		{"assigner cannot submit", task.StatusStarted, task.ActionSubmit, task.ViewAssignedByMe},
		{"assigner cannot resubmit", task.StatusRejected, task.ActionResubmit, task.ViewAssignedByMe},
		{"assignee cannot approve", task.StatusSubmitted, task.ActionApprove, task.ViewSelf},
		{"assignee cannot reject", task.StatusSubmitted, task.ActionReject, task.ViewSelf},
		{"assignee cannot cancel", task.StatusStarted, task.ActionCancel, task.ViewSelf},
		{"assignee cannot extend", task.StatusStarted, task.ActionExtend, task.ViewSelf},
		{"role checked before status", task.StatusApproved, task.ActionApprove, task.ViewSelf},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lifecycle.Decide(tt.from, tt.action, tt.role)
			assert.Equal(t, apperr.CodeNotAuthorized, apperr.CodeOf(err))
		})
	}

	_, err := lifecycle.Decide(task.StatusStarted, task.ActionSubmit)
	assert.Equal(t, apperr.CodeNotAuthorized, apperr.CodeOf(err), "no role at all")
}

func TestDecide_UnknownAction(t *testing.T) {
	_, err := lifecycle.Decide(task.StatusAssigned, task.Action(42), bothRoles...)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = lifecycle.Decide(task.StatusAssigned, task.ActionAssign, bothRoles...)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	// ON_HOLD is only ever entered by the store
	_, err = lifecycle.Decide(task.StatusStarted, task.ActionHold, bothRoles...)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestAllowed(t *testing.T) {
	assert.Equal(t,
		[]task.Action{task.ActionStart},
		lifecycle.Allowed(task.StatusOnHold, task.ViewSelf))

	assert.Equal(t,
		[]task.Action{task.ActionApprove, task.ActionReject, task.ActionCancel, task.ActionExtend, task.ActionEdit},
		lifecycle.Allowed(task.StatusSubmitted, task.ViewAssignedByMe))

	assert.Empty(t, lifecycle.Allowed(task.StatusSubmitted, task.ViewSelf))
}

func TestChangesStatus(t *testing.T) {
	assert.True(t, lifecycle.ChangesStatus(task.ActionApprove))
	assert.False(t, lifecycle.ChangesStatus(task.ActionExtend))
	assert.False(t, lifecycle.ChangesStatus(task.ActionEdit))
	assert.False(t, lifecycle.ChangesStatus(task.Action(99)))
}
