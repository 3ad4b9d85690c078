// Package client talks to the task API on behalf of the negotiation core and deskctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/calendar"
	"taskDesk/internal/config"
	"taskDesk/internal/handlers/dto"
	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client calls the task API. Reads are retried with exponential backoff;
// mutations are sent once so a retry can never commit twice.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	newBackOff func() backoff.BackOff
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithBackOff replaces the retry schedule for reads.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = newBackOff
	}
}

func New(cfg config.ClientConfig, options ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) CheckDate(ctx context.Context, date time.Time) (calendar.Verdict, error) {
	var verdict calendar.Verdict
	if date.IsZero() {
		return verdict, apperr.NewValidationError("date", "is required")
	}
	query := url.Values{"date": {task.FormatDate(date)}}
	err := c.read(ctx, "/api/tasks/check-date?"+query.Encode(), &verdict)
	return verdict, err
}

func (c *Client) UpdateStatus(ctx context.Context, id uuid.UUID, action task.Action, remarks string) (dto.TaskResponse, error) {
	var updated dto.TaskResponse
	if id == uuid.Nil {
		return updated, apperr.NewValidationError("task_id", "is required")
	}
	if !action.Valid() {
		return updated, apperr.NewValidationError("action_type", "unknown action "+action.String())
	}
	code := int(action)
	body := dto.UpdateStatusRequest{TaskID: id.String(), ActionType: &code, Remarks: remarks}
	err := c.write(ctx, http.MethodPost, "/api/tasks/update-status", body, &updated)
	return updated, err
}

// Extend commits date as the task's deadline. It is the only call that
// persists a negotiated date.
func (c *Client) Extend(ctx context.Context, id uuid.UUID, date time.Time, remarks string) (dto.TaskResponse, error) {
	var updated dto.TaskResponse
	if id == uuid.Nil {
		return updated, apperr.NewValidationError("task_id", "is required")
	}
	if date.IsZero() {
		return updated, apperr.NewValidationError("extended_date", "is required")
	}
	body := dto.ExtendRequest{TaskID: id.String(), ExtendedDate: task.FormatDate(date), Remarks: remarks}
	err := c.write(ctx, http.MethodPost, "/api/tasks/extend", body, &updated)
	return updated, err
}

func (c *Client) History(ctx context.Context, id uuid.UUID) ([]dto.HistoryResponse, error) {
	if id == uuid.Nil {
		return nil, apperr.NewValidationError("id", "is required")
	}
	var entries []dto.HistoryResponse
	err := c.read(ctx, "/api/tasks/"+id.String()+"/history", &entries)
	return entries, err
}

func (c *Client) AffectedTasks(ctx context.Context, view task.View) ([]dto.AffectedTaskResponse, error) {
	var affected []dto.AffectedTaskResponse
	query := url.Values{"view": {string(view)}}
	err := c.read(ctx, "/api/tasks/affected-by-holiday?"+query.Encode(), &affected)
	return affected, err
}

func (c *Client) ListTasks(ctx context.Context, view task.View) ([]dto.TaskResponse, error) {
	var tasks []dto.TaskResponse
	query := url.Values{"view": {string(view)}}
	err := c.read(ctx, "/api/tasks?"+query.Encode(), &tasks)
	return tasks, err
}

func (c *Client) CreateTasks(ctx context.Context, request dto.CreateTaskRequest) ([]dto.TaskResponse, error) {
	var created []dto.TaskResponse
	err := c.write(ctx, http.MethodPost, "/api/tasks", request, &created)
	return created, err
}

// DevToken asks a server with dev tokens enabled to sign a token for empID.
func (c *Client) DevToken(ctx context.Context, empID int64, name string) (dto.TokenResponse, error) {
	var token dto.TokenResponse
	if empID <= 0 {
		return token, apperr.NewValidationError("emp_id", "must be positive")
	}
	err := c.write(ctx, http.MethodPost, "/api/auth/dev-token", dto.DevTokenRequest{EmpID: empID, EmpName: name}, &token)
	return token, err
}

// read GETs path, retrying transient failures.
func (c *Client) read(ctx context.Context, path string, out any) error {
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(max(c.maxRetries, 0))), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		return c.send(ctx, http.MethodGet, path, nil, out)
	}, b)
	if err != nil && attempt > 1 {
		logger.Warn("Client: read failed after retries",
			zap.String("path", path),
			zap.Int("attempts", attempt),
			zap.Error(err))
	}
	return unwrapPermanent(err)
}

// write sends one mutation and never retries it.
func (c *Client) write(ctx context.Context, method, path string, body, out any) error {
	return unwrapPermanent(c.send(ctx, method, path, body, out))
}

// send performs one round trip. Errors the server decided on are permanent;
// transport failures, 429 and 5xx answers are left retryable.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(apperr.NewServiceUnavailable("task api", err))
		}
		return apperr.NewServiceUnavailable("task api", err)
	}
	defer resp.Body.Close()

	logger.Debug("Client: response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("http_status", resp.StatusCode),
		zap.Duration("ms", time.Since(start)))

	var envelope dto.Envelope[json.RawMessage]
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
	if resp.StatusCode >= http.StatusBadRequest || !envelope.Success {
		remote := remoteError(resp.StatusCode, envelope, decodeErr)
		if transient {
			return remote
		}
		return backoff.Permanent(remote)
	}
	if decodeErr != nil {
		return backoff.Permanent(apperr.NewServiceUnavailable("task api", fmt.Errorf("decode response: %w", decodeErr)))
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return backoff.Permanent(apperr.NewServiceUnavailable("task api", fmt.Errorf("decode data: %w", err)))
		}
	}
	return nil
}

// remoteError turns an error envelope back into the business error the server raised.
func remoteError(status int, envelope dto.Envelope[json.RawMessage], decodeErr error) error {
	if decodeErr != nil || envelope.Error == "" {
		return apperr.NewServiceUnavailable("task api", fmt.Errorf("unexpected answer with status %d", status))
	}

	code := apperr.Code(envelope.Error)
	switch code {
	case apperr.CodeInvalidTransition, apperr.CodeNotAuthorized, apperr.CodeValidation,
		apperr.CodeServiceUnavailable, apperr.CodeNotFound, apperr.CodeVersionConflict,
		apperr.CodeUnauthenticated:
	default:
		return apperr.NewServiceUnavailable("task api",
			fmt.Errorf("status %d: %s: %s", status, envelope.Error, envelope.Message))
	}

	busErr := apperr.New(code, envelope.Message)
	for k, v := range envelope.Details {
		busErr.Details[k] = v
	}
	return busErr
}

func unwrapPermanent(err error) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
