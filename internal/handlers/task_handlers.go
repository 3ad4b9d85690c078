package handlers

import (
	"net/http"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/auth"
	"taskDesk/internal/handlers/dto"
	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"
	"taskDesk/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
	now         func() time.Time
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
		now:         time.Now,
	}
}

func actorOf(r *http.Request) (task.Actor, error) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		return task.Actor{}, apperr.New(apperr.CodeUnauthenticated, "no authenticated employee")
	}
	return actor, nil
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("success", true), toPayload("status", "ok"))
}

// CheckDate answers GET /api/tasks/check-date?date=YYYY-MM-DD.
func (h *TaskHandler) CheckDate(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	verdict, err := h.TaskService.CheckDate(r.Context(), date)
	if err != nil {
		handleError(w, r, err)
		return
	}
	responseWithData(w, http.StatusOK, verdict)
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, err := actorOf(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var request dto.UpdateStatusRequest
	if err := decodeJSON(r, &request); err != nil {
		handleError(w, r, err)
		return
	}
	id, err := parseID("task_id", request.TaskID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if request.ActionType == nil {
		handleError(w, r, apperr.NewValidationError("action_type", "is required"))
		return
	}

	updated, err := h.TaskService.UpdateStatus(r.Context(), actor, id, task.Action(*request.ActionType), request.Remarks)
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: status updated",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)))

	responseWithJSON(w, http.StatusOK,
		toPayload("success", true),
		toPayload("message", "task is now "+updated.Status.String()),
		toPayload("data", dto.FromTask(updated, actor.EmpID, h.now())),
	)
}

func (h *TaskHandler) Extend(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var request dto.ExtendRequest
	if err := decodeJSON(r, &request); err != nil {
		handleError(w, r, err)
		return
	}
	id, err := parseID("task_id", request.TaskID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	date, err := parseDate("extended_date", request.ExtendedDate)
	if err != nil {
		handleError(w, r, err)
		return
	}

	updated, err := h.TaskService.ExtendDeadline(r.Context(), actor, id, date, request.Remarks)
	if err != nil {
		handleError(w, r, err)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("success", true),
		toPayload("message", "deadline moved to "+task.FormatDate(date)),
		toPayload("data", dto.FromTask(updated, actor.EmpID, h.now())),
	)
}

func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	entries, err := h.TaskService.History(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	responseWithData(w, http.StatusOK, dto.FromHistory(entries))
}

func (h *TaskHandler) AffectedByHoliday(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	view, err := parseView(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	affected, err := h.TaskService.AffectedTasks(r.Context(), actor, view)
	if err != nil {
		handleError(w, r, err)
		return
	}

	now := h.now()
	resp := make([]dto.AffectedTaskResponse, len(affected))
	for i, a := range affected {
		resp[i] = dto.AffectedTaskResponse{Task: dto.FromTask(a.Task, actor.EmpID, now), Verdict: a.Verdict}
	}
	responseWithData(w, http.StatusOK, resp)
}

func (h *TaskHandler) CreateTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, err := actorOf(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var request dto.CreateTaskRequest
	if err := decodeJSON(r, &request); err != nil {
		handleError(w, r, err)
		return
	}

	in := service.CreateTaskInput{
		Title:       request.Title,
		Description: request.Description,
		Type:        task.Type(request.TaskType),
		Priority:    task.Priority(request.Priority),
		StartTime:   request.StartTime,
		EndTime:     request.EndTime,
		Assignees:   request.Assignees,
	}
	if request.StartDate != "" {
		if in.StartDate, err = parseDate("start_date", request.StartDate); err != nil {
			handleError(w, r, err)
			return
		}
	}
	if request.EndDate != "" {
		if in.EndDate, err = parseDate("end_date", request.EndDate); err != nil {
			handleError(w, r, err)
			return
		}
	}

	created, err := h.TaskService.CreateTasks(r.Context(), actor, in)
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: tasks created",
		zap.Int("count", len(created)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated,
		toPayload("success", true),
		toPayload("message", "tasks assigned"),
		toPayload("data", dto.FromTaskList(created, actor.EmpID, h.now())),
	)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	view, err := parseView(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	tasks, err := h.TaskService.ListTasks(r.Context(), actor, view, filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	responseWithData(w, http.StatusOK, dto.FromTaskList(tasks, actor.EmpID, h.now()))
}

func (h *TaskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	view, err := parseView(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	counts, err := h.TaskService.Dashboard(r.Context(), actor, view)
	if err != nil {
		handleError(w, r, err)
		return
	}
	responseWithData(w, http.StatusOK, dto.FromCounts(counts))
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	t, err := h.TaskService.GetTask(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	responseWithData(w, http.StatusOK, dto.FromTask(t, actor.EmpID, h.now()))
}

func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	var request dto.EditTaskRequest
	if err := decodeJSON(r, &request); err != nil {
		handleError(w, r, err)
		return
	}

	var options []task.TaskOption
	if request.Title != nil {
		options = append(options, task.WithTitle(*request.Title))
	}
	if request.Description != nil {
		options = append(options, task.WithDescription(*request.Description))
	}
	if request.EndDate != nil {
		endDate, err := parseDate("end_date", *request.EndDate)
		if err != nil {
			handleError(w, r, err)
			return
		}
		options = append(options, task.WithEndDate(endDate))
	}
	if request.Priority != nil {
		p := task.Priority(*request.Priority)
		if !p.Valid() {
			handleError(w, r, apperr.NewValidationError("priority", "unknown priority"))
			return
		}
		options = append(options, task.WithPriority(p))
	}

	updated, err := h.TaskService.EditTask(r.Context(), actor, id, request.Remarks, options...)
	if err != nil {
		handleError(w, r, err)
		return
	}
	responseWithData(w, http.StatusOK, dto.FromTask(updated, actor.EmpID, h.now()))
}
