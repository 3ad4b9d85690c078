// Package negotiation keeps a deadline on a non-working day from being
// committed without an explicit choice between the suggested working day and
// the date that was asked for.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/calendar"
	"taskDesk/internal/handlers/dto"
	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrBusy        = errors.New("a deadline is already being negotiated")
	ErrNotAwaiting = errors.New("no decision is pending")
)

type DateChecker interface {
	CheckDate(ctx context.Context, date time.Time) (calendar.Verdict, error)
}

// Committer persists a deadline. Each call is one commit on the task store.
type Committer interface {
	Extend(ctx context.Context, id uuid.UUID, date time.Time, remarks string) (dto.TaskResponse, error)
	CreateTasks(ctx context.Context, request dto.CreateTaskRequest) ([]dto.TaskResponse, error)
}

// Field is the date a flow sets.
type Field int

const (
	FieldExtendedDate Field = iota
	FieldEndDate
)

func (f Field) String() string {
	switch f {
	case FieldExtendedDate:
		return "extended_date"
	case FieldEndDate:
		return "end_date"
	}
	return fmt.Sprintf("FIELD(%d)", int(f))
}

type State int

const (
	StateIdle State = iota
	StateChecking
	StateAwaitingDecision
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateChecking:
		return "CHECKING"
	case StateAwaitingDecision:
		return "AWAITING_DECISION"
	case StateCommitting:
		return "COMMITTING"
	}
	return fmt.Sprintf("STATE(%d)", int(s))
}

type Decision int

const (
	Shift Decision = iota + 1
	Keep
)

func (d Decision) String() string {
	switch d {
	case Shift:
		return "SHIFT"
	case Keep:
		return "KEEP"
	}
	return fmt.Sprintf("DECISION(%d)", int(d))
}

// Pending is the deadline change waiting for a date. An extension names
// TaskID; a creation carries the request whose end_date becomes Date.
type Pending struct {
	Field   Field
	TaskID  uuid.UUID
	Create  dto.CreateTaskRequest
	Date    time.Time
	Remarks string
}

// Extension starts a flow that moves the deadline of an existing task.
func Extension(id uuid.UUID, date time.Time, remarks string) Pending {
	return Pending{Field: FieldExtendedDate, TaskID: id, Date: date, Remarks: remarks}
}

// Creation starts a flow that creates tasks due on date.
func Creation(request dto.CreateTaskRequest, date time.Time) Pending {
	return Pending{Field: FieldEndDate, Create: request, Date: date}
}

func (p Pending) validate() error {
	if p.Date.IsZero() {
		return apperr.NewValidationError("date", "is required")
	}

	switch p.Field {
	case FieldExtendedDate:
		if p.TaskID == uuid.Nil {
			return apperr.NewValidationError("task_id", "is required")
		}
	case FieldEndDate:
		if strings.TrimSpace(p.Create.Title) == "" {
			return apperr.NewValidationError("title", "is required")
		}
		if len(p.Create.Assignees) == 0 {
			return apperr.NewValidationError("assignees", "at least one assignee is required")
		}
		if p.Create.StartDate != "" {
			start, err := task.ParseDate(p.Create.StartDate)
			if err != nil {
				return apperr.NewValidationError("start_date", "must be a YYYY-MM-DD date")
			}
			if task.Day(p.Date).Before(start) {
				return apperr.NewValidationError("end_date", "must not be before start_date")
			}
		}
	default:
		return apperr.NewValidationError("field", "unknown date field "+p.Field.String())
	}
	return nil
}

// subject names the flow in logs.
func (p Pending) subject() zap.Field {
	if p.Field == FieldEndDate {
		return zap.String("title", p.Create.Title)
	}
	return zap.String("task_id", p.TaskID.String())
}

// Outcome reports how a Propose or Resolve call ended. When Committed is
// false and Verdict is set, the negotiator awaits a Decision.
type Outcome struct {
	Committed bool
	Field     Field
	Date      time.Time
	// Task is the extended task; Created holds the tasks a creation made.
	Task    *dto.TaskResponse
	Created []dto.TaskResponse
	Verdict   *calendar.Verdict
	// Unchecked is set when the date check failed and the date went through as entered.
	Unchecked bool
}

// Negotiator runs one deadline flow at a time:
// Idle -> Checking -> (AwaitingDecision ->) Committing -> Idle.
type Negotiator struct {
	checker   DateChecker
	committer Committer

	mtx     sync.Mutex
	state   State
	pending Pending
	verdict calendar.Verdict
}

func NewNegotiator(checker DateChecker, committer Committer) *Negotiator {
	return &Negotiator{checker: checker, committer: committer}
}

func (n *Negotiator) State() State {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.state
}

// Verdict returns the conflict awaiting a decision, if any.
func (n *Negotiator) Verdict() (calendar.Verdict, bool) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.verdict, n.state == StateAwaitingDecision
}

// Propose checks p.Date. A working day is committed at once; a non-working
// day parks the flow in AwaitingDecision. When the check service is
// unavailable the date is committed unchecked; any other check error is
// returned and nothing is committed.
func (n *Negotiator) Propose(ctx context.Context, p Pending) (Outcome, error) {
	if err := p.validate(); err != nil {
		return Outcome{}, err
	}
	p.Date = task.Day(p.Date)

	if err := n.enter(StateIdle, StateChecking); err != nil {
		return Outcome{}, ErrBusy
	}

	verdict, err := n.checker.CheckDate(ctx, p.Date)
	if err != nil {
		if apperr.CodeOf(err) != apperr.CodeServiceUnavailable {
			n.set(StateIdle)
			return Outcome{Field: p.Field}, err
		}
		logger.Warn("Client: date check failed, committing unchecked",
			p.subject(),
			zap.String("field", p.Field.String()),
			zap.String("date", task.FormatDate(p.Date)),
			zap.Error(err))
		n.set(StateCommitting)
		out, err := n.commit(ctx, p, p.Date)
		out.Unchecked = true
		return out, err
	}

	if !verdict.NeedsShift {
		n.set(StateCommitting)
		return n.commit(ctx, p, p.Date)
	}

	n.mtx.Lock()
	n.state = StateAwaitingDecision
	n.pending = p
	n.verdict = verdict
	n.mtx.Unlock()

	logger.Info("Client: deadline needs a decision",
		p.subject(),
		zap.String("field", p.Field.String()),
		zap.String("reason", verdict.Reason),
		zap.String("suggested_date", verdict.SuggestedDate))
	return Outcome{Field: p.Field, Verdict: &verdict}, nil
}

// Resolve commits exactly one date: the suggested one for Shift, the
// original for Keep. The negotiator is Idle afterwards whether or not the
// commit succeeded.
func (n *Negotiator) Resolve(ctx context.Context, decision Decision) (Outcome, error) {
	n.mtx.Lock()
	if n.state != StateAwaitingDecision {
		n.mtx.Unlock()
		return Outcome{}, ErrNotAwaiting
	}

	var (
		date time.Time
		err  error
	)
	switch decision {
	case Shift:
		date, err = n.verdict.Suggested()
	case Keep:
		date = n.pending.Date
	default:
		err = apperr.NewValidationError("decision", "must be SHIFT or KEEP")
	}
	if err != nil {
		n.mtx.Unlock()
		return Outcome{}, err
	}

	p, verdict := n.pending, n.verdict
	n.state = StateCommitting
	n.mtx.Unlock()

	out, err := n.commit(ctx, p, date)
	out.Verdict = &verdict
	return out, err
}

// Cancel drops a pending decision without committing anything.
func (n *Negotiator) Cancel() bool {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.state != StateAwaitingDecision {
		return false
	}
	n.reset()
	return true
}

func (n *Negotiator) commit(ctx context.Context, p Pending, date time.Time) (Outcome, error) {
	defer func() {
		n.mtx.Lock()
		n.reset()
		n.mtx.Unlock()
	}()

	out := Outcome{Field: p.Field, Date: date}
	var err error
	switch p.Field {
	case FieldEndDate:
		request := p.Create
		request.EndDate = task.FormatDate(date)
		out.Created, err = n.committer.CreateTasks(ctx, request)
	default:
		var updated dto.TaskResponse
		if updated, err = n.committer.Extend(ctx, p.TaskID, date, p.Remarks); err == nil {
			out.Task = &updated
		}
	}
	if err != nil {
		logger.Warn("Client: deadline commit rejected",
			p.subject(),
			zap.String("field", p.Field.String()),
			zap.String("date", task.FormatDate(date)),
			zap.Error(err))
		return Outcome{Field: p.Field, Date: date}, err
	}
	out.Committed = true
	return out, nil
}

func (n *Negotiator) enter(from, to State) error {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.state != from {
		return fmt.Errorf("state is %s, not %s", n.state, from)
	}
	n.state = to
	return nil
}

func (n *Negotiator) set(s State) {
	n.mtx.Lock()
	n.state = s
	n.mtx.Unlock()
}

// reset must be called with mtx held.
func (n *Negotiator) reset() {
	n.state = StateIdle
	n.pending = Pending{}
	n.verdict = calendar.Verdict{}
}
