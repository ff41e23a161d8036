// Package rest implements gateway.Gateway against a JSON REST endpoint
// exposing GET and POST on /todos.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"todolist/internal/config"
	"todolist/internal/gateway"
)

const (
	// TodosPath is appended to the base URL for both calls.
	TodosPath = "/todos"

	// maxBody bounds how much of a response is read.
	maxBody = 8 << 20
)

// Client implements gateway.Gateway over HTTP.
type Client struct {
	baseURL string
	hc      *http.Client
	timeout time.Duration
	schemas *schemas
}

// New creates a client for cfg.BaseURL with cfg.Timeout applied to every call.
func New(cfg *config.Config) (*Client, error) {
	return NewWithHTTPClient(cfg.BaseURL, &http.Client{}, cfg.Timeout.Duration)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// A non-positive timeout falls back to config.DefaultTimeout.
func NewWithHTTPClient(baseURL string, hc *http.Client, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base url required")
	}
	if hc == nil {
		hc = &http.Client{}
	}
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	s, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: baseURL, hc: hc, timeout: timeout, schemas: s}, nil
}

// todo is the wire shape of a task record.
type todo struct {
	ID        flexID `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

func (t todo) task() gateway.Task {
	return gateway.Task{ID: string(t.ID), Title: t.Title, Completed: t.Completed}
}

// flexID accepts a JSON number or string.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// ListTasks implements gateway.Gateway.
func (c *Client) ListTasks(ctx context.Context) ([]gateway.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, wrapError(gateway.OpList, err)
	}
	if err := validate(c.schemas.list, body); err != nil {
		return nil, wrapError(gateway.OpList, err)
	}

	var todos []todo
	if err := json.Unmarshal(body, &todos); err != nil {
		return nil, wrapError(gateway.OpList, fmt.Errorf("decode response: %w", err))
	}
	result := make([]gateway.Task, 0, len(todos))
	for _, t := range todos {
		result = append(result, t.task())
	}
	return result, nil
}

// CreateTask implements gateway.Gateway.
func (c *Client) CreateTask(ctx context.Context, title string) (gateway.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(todo{Title: title})
	if err != nil {
		return gateway.Task{}, wrapError(gateway.OpCreate, err)
	}
	body, err := c.do(ctx, http.MethodPost, payload)
	if err != nil {
		return gateway.Task{}, wrapError(gateway.OpCreate, err)
	}
	if err := validate(c.schemas.todo, body); err != nil {
		return gateway.Task{}, wrapError(gateway.OpCreate, err)
	}

	var t todo
	if err := json.Unmarshal(body, &t); err != nil {
		return gateway.Task{}, wrapError(gateway.OpCreate, fmt.Errorf("decode response: %w", err))
	}
	return t.task(), nil
}

// statusError is a non-2xx answer.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return http.StatusText(e.code)
	}
	return fmt.Sprintf("%s: %s", http.StatusText(e.code), e.body)
}

func (c *Client) do(ctx context.Context, method string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+TodosPath, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(firstLine(string(body)))}
	}
	return body, nil
}

// wrapError wraps transport errors with user-friendly messages.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *statusError
	if errors.As(err, &se) {
		return &gateway.NetworkError{Op: op, Status: se.code, Err: se}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &gateway.NetworkError{Op: op, Err: fmt.Errorf("request timed out: %w", err)}
	}
	return gateway.Wrap(op, err)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
