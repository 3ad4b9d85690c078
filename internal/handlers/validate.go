package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/models/task"

	"github.com/google/uuid"
)

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON reads a JSON body into dst, rejecting other content types.
func decodeJSON(r *http.Request, dst any) error {
	if !checkContentType(r, "application/json") {
		return apperr.NewValidationError("Content-Type", "must be application/json")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.CodeValidation, "malformed request body", err)
	}
	return nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, apperr.NewValidationError(field, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.NewValidationError(field, "must be a UUID")
	}
	return id, nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, apperr.NewValidationError(field, "is required")
	}
	d, err := task.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperr.NewValidationError(field, "must be a YYYY-MM-DD date")
	}
	return d, nil
}

func parseView(r *http.Request) (task.View, error) {
	raw := r.URL.Query().Get("view")
	if raw == "" {
		return task.ViewSelf, nil
	}
	view := task.ParseView(raw, "")
	if view == "" {
		return "", apperr.NewValidationError("view", "must be SELF or ASSIGNED_BY_ME")
	}
	return view, nil
}

// parseFilter reads the list filters from the query string. Unset ones stay nil.
func parseFilter(r *http.Request) (task.Filter, error) {
	q := r.URL.Query()
	var f task.Filter

	intParam := func(name string) (*int, error) {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperr.NewValidationError(name, "must be an integer")
		}
		return &n, nil
	}

	status, err := intParam("status")
	if err != nil {
		return f, err
	}
	if status != nil {
		s := task.Status(*status)
		if !s.Valid() {
			return f, apperr.NewValidationError("status", "unknown status")
		}
		f.Status = &s
	}

	priority, err := intParam("priority")
	if err != nil {
		return f, err
	}
	if priority != nil {
		p := task.Priority(*priority)
		if !p.Valid() {
			return f, apperr.NewValidationError("priority", "unknown priority")
		}
		f.Priority = &p
	}

	taskType, err := intParam("task_type")
	if err != nil {
		return f, err
	}
	if taskType != nil {
		t := task.Type(*taskType)
		if !t.Valid() {
			return f, apperr.NewValidationError("task_type", "unknown task type")
		}
		f.Type = &t
	}

	if raw := q.Get("employee_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, apperr.NewValidationError("employee_id", "must be an integer")
		}
		f.EmployeeID = &id
	}

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"date_from", &f.DateFrom}, {"date_to", &f.DateTo}} {
		if raw := q.Get(bound.name); raw != "" {
			d, err := parseDate(bound.name, raw)
			if err != nil {
				return f, err
			}
			*bound.dst = &d
		}
	}

	f.OverdueOnly = parseBool(q.Get("overdue_only"))
	f.ExtendedOnly = parseBool(q.Get("extended_only"))
	f.Search = strings.TrimSpace(q.Get("search"))
	return f, nil
}

func parseBool(raw string) bool {
	b, _ := strconv.ParseBool(raw)
	return b
}
