package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/auth"
	"taskDesk/internal/calendar"
	"taskDesk/internal/config"
	"taskDesk/internal/handlers"
	"taskDesk/internal/handlers/dto"
	"taskDesk/internal/models/task"
	"taskDesk/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskService - service mock
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskService) CreateTasks(ctx context.Context, actor task.Actor, in service.CreateTaskInput) ([]*task.Task, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskService) GetTask(ctx context.Context, actor task.Actor, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) ListTasks(ctx context.Context, actor task.Actor, view task.View, filter task.Filter) ([]*task.Task, error) {
	args := m.Called(ctx, actor, view, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskService) Dashboard(ctx context.Context, actor task.Actor, view task.View) (task.Counts, error) {
	args := m.Called(ctx, actor, view)
	return args.Get(0).(task.Counts), args.Error(1)
}

func (m *MockTaskService) UpdateStatus(ctx context.Context, actor task.Actor, id uuid.UUID, action task.Action, remarks string) (*task.Task, error) {
	args := m.Called(ctx, actor, id, action, remarks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) ExtendDeadline(ctx context.Context, actor task.Actor, id uuid.UUID, date time.Time, remarks string) (*task.Task, error) {
	args := m.Called(ctx, actor, id, date, remarks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) EditTask(ctx context.Context, actor task.Actor, id uuid.UUID, remarks string, options ...task.TaskOption) (*task.Task, error) {
	args := m.Called(ctx, actor, id, remarks, len(options))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) History(ctx context.Context, actor task.Actor, id uuid.UUID) ([]*task.HistoryEntry, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.HistoryEntry), args.Error(1)
}

func (m *MockTaskService) CheckDate(ctx context.Context, date time.Time) (calendar.Verdict, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(calendar.Verdict), args.Error(1)
}

func (m *MockTaskService) AffectedTasks(ctx context.Context, actor task.Actor, view task.View) ([]service.AffectedTask, error) {
	args := m.Called(ctx, actor, view)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.AffectedTask), args.Error(1)
}

var _ handlers.TaskService = (*MockTaskService)(nil)

var (
	lead   = task.Actor{EmpID: 100, Name: "Lead"}
	member = task.Actor{EmpID: 200, Name: "Member"}
)

type harness struct {
	router http.Handler
	issuer *auth.Issuer
	svc    *MockTaskService
}

func newHarness(t *testing.T, devTokens bool) *harness {
	t.Helper()
	authCfg := config.AuthConfig{Secret: "test-secret", Issuer: "taskdesk", TokenTTL: time.Hour, DevTokens: devTokens}
	issuer, err := auth.NewIssuer(authCfg)
	require.NoError(t, err)

	svc := new(MockTaskService)
	serverCfg := config.Default().Server
	return &harness{
		router: handlers.NewRouter(serverCfg, authCfg, handlers.NewTaskHandler(svc), issuer),
		issuer: issuer,
		svc:    svc,
	}
}

func (h *harness) do(t *testing.T, actor *task.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		token, _, err := h.issuer.Issue(*actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) dto.Envelope[T] {
	t.Helper()
	var env dto.Envelope[T]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func sampleTask(status task.Status) *task.Task {
	return &task.Task{
		UUID:       uuid.New(),
		Title:      "Quarterly report",
		Type:       task.TypeRandom,
		Priority:   task.PriorityHigh,
		Status:     status,
		AssignedBy: lead.EmpID,
		AssignedTo: member.EmpID,
		StartDate:  time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC),
		Version:    1,
	}
}

func TestTaskHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success - healthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "error - unhealthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).
					Return(apperr.NewServiceUnavailable("task store", errors.New("down")))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			tt.setupMock(h.svc)

			w := h.do(t, nil, http.MethodGet, "/health", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			h.svc.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_RequiresToken(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(t, nil, http.MethodGet, "/api/tasks/check-date?date=2025-07-06", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	h.svc.AssertNotCalled(t, "CheckDate", mock.Anything, mock.Anything)
}

func TestTaskHandler_CheckDate(t *testing.T) {
	sunday := time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC)
	verdict := calendar.Verdict{
		NeedsShift:    true,
		Reason:        "Sunday",
		OriginalDate:  "2025-07-06",
		SuggestedDate: "2025-07-07",
		Message:       "Jul 06, 2025 is Sunday. Shift to Jul 07, 2025?",
	}

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name:  "success - sunday needs shift",
			query: "date=2025-07-06",
			setupMock: func(m *MockTaskService) {
				m.On("CheckDate", mock.Anything, sunday).Return(verdict, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error - missing date",
			query:          "",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error - malformed date",
			query:          "date=06/07/2025",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "error - calendar unavailable",
			query: "date=2025-07-06",
			setupMock: func(m *MockTaskService) {
				m.On("CheckDate", mock.Anything, sunday).
					Return(calendar.Verdict{}, apperr.NewServiceUnavailable("holiday calendar", errors.New("timeout")))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			tt.setupMock(h.svc)

			w := h.do(t, &member, http.MethodGet, "/api/tasks/check-date?"+tt.query, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				env := decode[calendar.Verdict](t, w)
				assert.True(t, env.Success)
				assert.Equal(t, verdict, env.Data)
			}
			h.svc.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_UpdateStatus(t *testing.T) {
	current := sampleTask(task.StatusSubmitted)

	tests := []struct {
		name           string
		actor          task.Actor
		body           string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:  "success - submit",
			actor: member,
			body:  `{"task_id":"` + current.UUID.String() + `","action_type":2,"remarks":"done"}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateStatus", mock.Anything, member, current.UUID, task.ActionSubmit, "done").
					Return(current, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "error - invalid transition",
			actor: lead,
			body:  `{"task_id":"` + current.UUID.String() + `","action_type":6}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateStatus", mock.Anything, lead, current.UUID, task.ActionCancel, "").
					Return(nil, apperr.NewInvalidTransition(task.StatusApproved, task.ActionCancel))
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   string(apperr.CodeInvalidTransition),
		},
		{
			name:  "error - not authorized",
			actor: member,
			body:  `{"task_id":"` + current.UUID.String() + `","action_type":3}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateStatus", mock.Anything, member, current.UUID, task.ActionApprove, "").
					Return(nil, apperr.NewNotAuthorized(task.ActionApprove, string(task.ViewAssignedByMe)))
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   string(apperr.CodeNotAuthorized),
		},
		{
			name:           "error - missing action",
			actor:          member,
			body:           `{"task_id":"` + current.UUID.String() + `"}`,
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   string(apperr.CodeValidation),
		},
		{
			name:           "error - bad task id",
			actor:          member,
			body:           `{"task_id":"42","action_type":1}`,
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   string(apperr.CodeValidation),
		},
		{
			name:           "error - invalid JSON",
			actor:          member,
			body:           `{invalid json}`,
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   string(apperr.CodeValidation),
		},
		{
			name:  "error - unexpected failure",
			actor: member,
			body:  `{"task_id":"` + current.UUID.String() + `","action_type":1}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateStatus", mock.Anything, member, current.UUID, task.ActionStart, "").
					Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			tt.setupMock(h.svc)

			w := h.do(t, &tt.actor, http.MethodPost, "/api/tasks/update-status", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			env := decode[dto.TaskResponse](t, w)
			assert.Equal(t, tt.expectedCode == "", env.Success)
			assert.Equal(t, tt.expectedCode, env.Error)
			h.svc.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_UpdateStatus_WrongContentType(t *testing.T) {
	h := newHarness(t, false)
	token, _, err := h.issuer.Issue(member)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/update-status", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Extend(t *testing.T) {
	current := sampleTask(task.StatusStarted)
	holiday := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	extended := *current
	extended.ExtendedDate = &holiday

	h := newHarness(t, false)
	h.svc.On("ExtendDeadline", mock.Anything, lead, current.UUID, holiday, "kept").Return(&extended, nil)

	w := h.do(t, &lead, http.MethodPost, "/api/tasks/extend",
		`{"task_id":"`+current.UUID.String()+`","extended_date":"2025-10-20","remarks":"kept"}`)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode[dto.TaskResponse](t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "2025-10-20", env.Data.EffectiveDeadline)
	assert.True(t, env.Data.IsExtended)
	h.svc.AssertExpectations(t)

	w = h.do(t, &lead, http.MethodPost, "/api/tasks/extend", `{"task_id":"`+current.UUID.String()+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_History(t *testing.T) {
	current := sampleTask(task.StatusSubmitted)
	newDate := time.Date(2025, 10, 22, 0, 0, 0, 0, time.UTC)
	entries := []*task.HistoryEntry{
		task.NewHistoryEntry(current, task.ActionAssign, task.StatusAssigned, lead, "", nil),
		task.NewHistoryEntry(current, task.ActionExtend, current.Status, lead, "", &newDate),
	}

	h := newHarness(t, false)
	h.svc.On("History", mock.Anything, member, current.UUID).Return(entries, nil)
	h.svc.On("History", mock.Anything, member, mock.Anything).Return(nil, apperr.NewNotFound("task", "x"))

	w := h.do(t, &member, http.MethodGet, "/api/tasks/"+current.UUID.String()+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[[]dto.HistoryResponse](t, w)
	require.Len(t, env.Data, 2)
	assert.Equal(t, "Assign", env.Data[0].ActionName)
	assert.Equal(t, int(task.ActionExtend), env.Data[1].ActionType)
	assert.Equal(t, "2025-10-22", env.Data[1].ExtendedDate)

	w = h.do(t, &member, http.MethodGet, "/api/tasks/"+uuid.NewString()+"/history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, &member, http.MethodGet, "/api/tasks/not-a-uuid/history", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_AffectedByHoliday(t *testing.T) {
	current := sampleTask(task.StatusStarted)
	verdict := calendar.Verdict{NeedsShift: true, Reason: "Diwali", OriginalDate: "2025-10-20", SuggestedDate: "2025-10-22"}

	h := newHarness(t, false)
	h.svc.On("AffectedTasks", mock.Anything, lead, task.ViewAssignedByMe).
		Return([]service.AffectedTask{{Task: current, Verdict: verdict}}, nil)

	w := h.do(t, &lead, http.MethodGet, "/api/tasks/affected-by-holiday?view=ASSIGNED_BY_ME", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[[]dto.AffectedTaskResponse](t, w)
	require.Len(t, env.Data, 1)
	assert.Equal(t, current.UUID, env.Data[0].Task.ID)
	assert.Equal(t, "2025-10-22", env.Data[0].Verdict.SuggestedDate)
	assert.Equal(t, []int{int(task.ActionCancel), int(task.ActionExtend), int(task.ActionEdit)}, env.Data[0].Task.AllowedActions)

	w = h.do(t, &lead, http.MethodGet, "/api/tasks/affected-by-holiday?view=EVERYONE", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_CreateTasks(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success - fan out to two assignees",
			body: `{"title":"Stock count","task_type":4,"priority":2,"start_date":"2025-10-01",
				"end_date":"2025-10-10","assignees":[{"emp_id":200},{"emp_id":300}]}`,
			setupMock: func(m *MockTaskService) {
				m.On("CreateTasks", mock.Anything, lead, mock.MatchedBy(func(in service.CreateTaskInput) bool {
					return in.Title == "Stock count" && len(in.Assignees) == 2 &&
						in.EndDate.Equal(time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC))
				})).Return([]*task.Task{sampleTask(task.StatusAssigned), sampleTask(task.StatusAssigned)}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "error - validation from service",
			body: `{"title":"Stock count","task_type":4,"priority":2,"start_date":"2025-10-01","end_date":"2025-10-10"}`,
			setupMock: func(m *MockTaskService) {
				m.On("CreateTasks", mock.Anything, lead, mock.Anything).
					Return(nil, apperr.NewValidationError("assignees", "at least one assignee is required"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error - malformed date",
			body:           `{"title":"x","start_date":"01.10.2025"}`,
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			tt.setupMock(h.svc)

			w := h.do(t, &lead, http.MethodPost, "/api/tasks", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				env := decode[[]dto.TaskResponse](t, w)
				assert.Len(t, env.Data, 2)
			}
			h.svc.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_ListTasks(t *testing.T) {
	status := task.StatusStarted
	emp := int64(300)
	from := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	expectedFilter := task.Filter{
		Status:      &status,
		EmployeeID:  &emp,
		DateFrom:    &from,
		OverdueOnly: true,
		Search:      "report",
	}

	h := newHarness(t, false)
	h.svc.On("ListTasks", mock.Anything, lead, task.ViewAssignedByMe, expectedFilter).
		Return([]*task.Task{sampleTask(task.StatusStarted)}, nil)

	w := h.do(t, &lead, http.MethodGet,
		"/api/tasks?view=ASSIGNED_BY_ME&status=1&employee_id=300&date_from=2025-10-01&overdue_only=true&search=report", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[[]dto.TaskResponse](t, w)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "STARTED", env.Data[0].StatusName)
	h.svc.AssertExpectations(t)

	for _, query := range []string{"status=99", "priority=abc", "task_type=1", "date_to=tomorrow"} {
		w := h.do(t, &lead, http.MethodGet, "/api/tasks?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestTaskHandler_Dashboard(t *testing.T) {
	h := newHarness(t, false)
	h.svc.On("Dashboard", mock.Anything, member, task.ViewSelf).Return(task.Counts{
		Total:      3,
		Overdue:    1,
		ByStatus:   map[task.Status]int{task.StatusStarted: 2, task.StatusApproved: 1},
		ByPriority: map[task.Priority]int{task.PriorityHigh: 3},
	}, nil)

	w := h.do(t, &member, http.MethodGet, "/api/tasks/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[dto.DashboardResponse](t, w)
	assert.Equal(t, 3, env.Data.Total)
	assert.Equal(t, 2, env.Data.ByStatus["STARTED"])
	assert.Equal(t, 0, env.Data.ByStatus["CANCELLED"])
	assert.Equal(t, 3, env.Data.ByPriority["HIGH"])
}

func TestTaskHandler_GetAndEditTask(t *testing.T) {
	current := sampleTask(task.StatusAssigned)

	h := newHarness(t, false)
	h.svc.On("GetTask", mock.Anything, member, current.UUID).Return(current, nil)
	h.svc.On("EditTask", mock.Anything, lead, current.UUID, "typo", 2).Return(current, nil)

	w := h.do(t, &member, http.MethodGet, "/api/tasks/"+current.UUID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[dto.TaskResponse](t, w)
	assert.Equal(t, []int{int(task.ActionStart)}, env.Data.AllowedActions)

	w = h.do(t, &lead, http.MethodPatch, "/api/tasks/"+current.UUID.String(),
		`{"title":"Quarterly report v2","end_date":"2025-10-20","remarks":"typo"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, &lead, http.MethodPatch, "/api/tasks/"+current.UUID.String(), `{"priority":7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	h.svc.AssertExpectations(t)
}

func TestAuthHandler_DevToken(t *testing.T) {
	h := newHarness(t, true)

	w := h.do(t, nil, http.MethodPost, "/api/auth/dev-token", `{"emp_id":200,"emp_name":"Member"}`)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[dto.TokenResponse](t, w)

	actor, err := h.issuer.Parse(env.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, member, actor)

	w = h.do(t, nil, http.MethodPost, "/api/auth/dev-token", `{"emp_id":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	disabled := newHarness(t, false)
	w = disabled.do(t, nil, http.MethodPost, "/api/auth/dev-token", `{"emp_id":200}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
