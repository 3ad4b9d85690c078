package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/handlers/dto"
	"taskDesk/internal/models/task"
	"taskDesk/internal/negotiation"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func checkDateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check-date DATE",
		Short: "Tell whether DATE (YYYY-MM-DD) is a working day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			verdict, err := c.CheckDate(cmd.Context(), date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !verdict.NeedsShift {
				fmt.Fprintf(out, "%s is a working day\n", verdict.OriginalDate)
				return nil
			}
			fmt.Fprintln(out, verdict.Message)
			return nil
		},
	}
}

func extendCmd(opts *options) *cobra.Command {
	var remarks string

	cmd := &cobra.Command{
		Use:   "extend TASK_ID DATE",
		Short: "Move a task's deadline, asking before a non-working day is committed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			date, err := parseDate(args[1])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			outcome, err := negotiate(cmd, negotiation.NewNegotiator(c, c), negotiation.Extension(id, date, remarks))
			if err != nil || !outcome.Committed {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deadline of %s set to %s\n", id, task.FormatDate(outcome.Date))
			return nil
		},
	}
	cmd.Flags().StringVarP(&remarks, "remarks", "r", "", "Remarks stored in the task history")
	return cmd
}

func createCmd(opts *options) *cobra.Command {
	var (
		description string
		start       string
		due         string
		priority    int
		timeBound   bool
		startTime   string
		endTime     string
		assignees   []string
	)

	cmd := &cobra.Command{
		Use:   "create TITLE",
		Short: "Assign a new task, asking before a non-working due date is committed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(due)
			if err != nil {
				return err
			}
			people, err := parseAssignees(assignees)
			if err != nil {
				return err
			}
			startDate := start
			if startDate == "" {
				startDate = task.FormatDate(time.Now())
			}

			request := dto.CreateTaskRequest{
				Title:       args[0],
				Description: description,
				TaskType:    int(task.TypeRandom),
				Priority:    priority,
				StartDate:   startDate,
				Assignees:   people,
			}
			if timeBound {
				request.TaskType = int(task.TypeTimeBound)
				request.StartTime, request.EndTime = startTime, endTime
			}

			c, err := opts.client()
			if err != nil {
				return err
			}

			outcome, err := negotiate(cmd, negotiation.NewNegotiator(c, c), negotiation.Creation(request, date))
			if err != nil || !outcome.Committed {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range outcome.Created {
				fmt.Fprintf(out, "%s assigned to %d, due %s\n", t.ID, t.AssignedTo, t.EndDate)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&due, "due", "", "End date (YYYY-MM-DD)")
	flags.StringVar(&start, "start", "", "Start date (YYYY-MM-DD), today when empty")
	flags.StringVarP(&description, "description", "d", "", "Task description")
	flags.IntVarP(&priority, "priority", "p", int(task.PriorityMedium), "1 low, 2 medium, 3 high")
	flags.BoolVar(&timeBound, "time-bound", false, "Bind the task to --start-time and --end-time")
	flags.StringVar(&startTime, "start-time", "", "HH:MM, time bound tasks only")
	flags.StringVar(&endTime, "end-time", "", "HH:MM, time bound tasks only")
	flags.StringSliceVarP(&assignees, "assignee", "a", nil, "EMP_ID or EMP_ID:NAME, repeatable")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

// negotiate runs one date flow, prompting for shift, keep or cancel when the
// date is not a working day. A cancelled flow returns an uncommitted Outcome.
func negotiate(cmd *cobra.Command, n *negotiation.Negotiator, p negotiation.Pending) (negotiation.Outcome, error) {
	outcome, err := n.Propose(cmd.Context(), p)
	if err != nil {
		return outcome, err
	}

	out := cmd.OutOrStdout()
	if !outcome.Committed && outcome.Verdict != nil {
		prompt := newPrompter(cmd.InOrStdin(), out)
		answer, err := prompt.choose(outcome.Verdict.Message, shiftKeepCancel)
		if err != nil {
			n.Cancel()
			return negotiation.Outcome{}, err
		}
		if answer == choiceCancel {
			n.Cancel()
			fmt.Fprintln(out, "cancelled, nothing was changed")
			return negotiation.Outcome{}, nil
		}

		decision := negotiation.Keep
		if answer == choiceShift {
			decision = negotiation.Shift
		}
		if outcome, err = n.Resolve(cmd.Context(), decision); err != nil {
			return outcome, err
		}
	}

	if outcome.Unchecked {
		fmt.Fprintln(out, "warning: the date could not be checked and was saved as entered")
	}
	return outcome, nil
}

func alertsCmd(opts *options) *cobra.Command {
	var (
		view        string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List tasks whose deadline now falls on a non-working day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := task.ParseView(strings.ToUpper(view), "")
			if v == "" {
				return apperr.NewValidationError("view", "must be SELF or ASSIGNED_BY_ME")
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			board := negotiation.NewAlertBoard(c, c, v)
			alerts, err := board.Load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(alerts) == 0 {
				fmt.Fprintln(out, "no holiday alerts")
				return nil
			}

			if !interactive {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TASK\tTITLE\tDEADLINE\tREASON\tSUGGESTED")
				for _, a := range alerts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						a.TaskID, a.Title, a.Deadline, a.Verdict.Reason, a.Verdict.SuggestedDate)
				}
				return tw.Flush()
			}

			p := newPrompter(cmd.InOrStdin(), out)
			for _, a := range alerts {
				answer, err := p.choose(fmt.Sprintf("%s: %s", a.Title, a.Verdict.Message), shiftKeepDismiss)
				if err != nil {
					return err
				}
				switch answer {
				case choiceShift:
					if _, err := board.Shift(cmd.Context(), a.TaskID, "shifted from holiday alert"); err != nil {
						fmt.Fprintf(out, "  shift failed: %v\n", err)
						continue
					}
					fmt.Fprintf(out, "  moved to %s\n", a.Verdict.SuggestedDate)
				case choiceKeep:
					board.Keep(a.TaskID)
					fmt.Fprintf(out, "  kept %s\n", a.Deadline)
				default:
					board.Dismiss(a.TaskID)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", string(task.ViewAssignedByMe), "SELF or ASSIGNED_BY_ME")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Resolve each alert with shift/keep/dismiss")
	return cmd
}

func statusCmd(opts *options) *cobra.Command {
	var remarks string

	cmd := &cobra.Command{
		Use:   "status TASK_ID ACTION",
		Short: "Run a lifecycle action (start, submit, approve, reject, resubmit, cancel or its code)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			action, err := parseAction(args[1])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			updated, err := c.UpdateStatus(cmd.Context(), id, action, remarks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", updated.ID, updated.StatusName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&remarks, "remarks", "r", "", "Remarks stored in the task history")
	return cmd
}

func historyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history TASK_ID",
		Short: "Print a task's history, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			entries, err := c.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AT\tACTION\tBY\tDATE\tREMARKS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					e.ActionAt.Format("2006-01-02 15:04"), e.ActionName, e.ActionBy, e.ExtendedDate, e.Remarks)
			}
			return tw.Flush()
		},
	}
}

func tokenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "token EMP_ID [NAME]",
		Short: "Fetch a development token from a server that allows it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			empID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return apperr.NewValidationError("emp_id", "must be an integer")
			}
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			token, err := c.DevToken(cmd.Context(), empID, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token.Token)
			return nil
		},
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.NewValidationError("task_id", "must be a UUID")
	}
	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := task.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperr.NewValidationError("date", "must be a YYYY-MM-DD date")
	}
	return d, nil
}

func parseAssignees(raw []string) ([]task.Assignee, error) {
	if len(raw) == 0 {
		return nil, apperr.NewValidationError("assignees", "at least one --assignee is required")
	}
	people := make([]task.Assignee, 0, len(raw))
	for _, r := range raw {
		idPart, name, _ := strings.Cut(r, ":")
		empID, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil || empID <= 0 {
			return nil, apperr.NewValidationError("assignees", "bad assignee "+r)
		}
		people = append(people, task.Assignee{EmpID: empID, Name: strings.TrimSpace(name)})
	}
	return people, nil
}

var actionsByName = map[string]task.Action{
	"start":    task.ActionStart,
	"submit":   task.ActionSubmit,
	"approve":  task.ActionApprove,
	"reject":   task.ActionReject,
	"resubmit": task.ActionResubmit,
	"cancel":   task.ActionCancel,
}

func parseAction(raw string) (task.Action, error) {
	if a, ok := actionsByName[strings.ToLower(raw)]; ok {
		return a, nil
	}
	code, err := strconv.Atoi(raw)
	if err != nil || !task.Action(code).Valid() {
		return 0, apperr.NewValidationError("action", "unknown action "+raw)
	}
	return task.Action(code), nil
}
