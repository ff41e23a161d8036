// Package googletasks implements gateway.Gateway on the Google Tasks API,
// using the user's default task list.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todolist/internal/config"
	"todolist/internal/gateway"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// StatusCompleted is the API status of a finished task.
	StatusCompleted = "completed"

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"
)

// Client implements gateway.Gateway using Google Tasks API.
type Client struct {
	svc     *tasks.Service
	timeout time.Duration
}

// OAuthConfig reads the OAuth client credentials from the config directory.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.OAuthClientFile, err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.OAuthClientFile, err)
	}
	return oauthConfig, nil
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.TokenFile, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.TokenFile, err)
	}

	// Create token source that auto-refreshes
	tokenSource := oauthConfig.TokenSource(ctx, &token)
	httpClient := oauth2.NewClient(ctx, tokenSource)

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	return &Client{svc: svc, timeout: cfg.Timeout.Duration}, nil
}

// NewWithHTTPClient creates a client against endpoint with a custom HTTP
// client (for testing). An empty endpoint uses the public API.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, timeout: config.DefaultTimeout}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// ListTasks returns every task of the default list, completed ones
// included, in API order.
func (c *Client) ListTasks(ctx context.Context) ([]gateway.Task, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result := []gateway.Task{}
	err := c.svc.Tasks.List(DefaultListID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowDeleted(false).
		ShowHidden(true).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, task := range resp.Items {
				result = append(result, gateway.Task{
					ID:        task.Id,
					Title:     task.Title,
					Completed: task.Status == StatusCompleted,
				})
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(gateway.OpList, err)
	}
	return result, nil
}

// CreateTask inserts a task into the default list.
func (c *Client) CreateTask(ctx context.Context, title string) (gateway.Task, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	task, err := c.svc.Tasks.Insert(DefaultListID, &tasks.Task{Title: title}).Context(ctx).Do()
	if err != nil {
		return gateway.Task{}, wrapError(gateway.OpCreate, err)
	}
	return gateway.Task{
		ID:        task.Id,
		Title:     task.Title,
		Completed: task.Status == StatusCompleted,
	}, nil
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return &gateway.NetworkError{Op: op, Err: errors.New("request timed out")}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &gateway.NetworkError{Op: op, Status: apiErr.Code, Err: errors.New("token expired or revoked (run: todolist login)")}
		case http.StatusNotFound:
			return &gateway.NetworkError{Op: op, Status: apiErr.Code, Err: errors.New("not found")}
		}
		return &gateway.NetworkError{Op: op, Status: apiErr.Code, Err: err}
	}

	return gateway.Wrap(op, err)
}

// IsAuthError reports whether err is an authorization failure from the API.
func IsAuthError(err error) bool {
	var ne *gateway.NetworkError
	if !errors.As(err, &ne) {
		return false
	}
	return ne.Status == http.StatusUnauthorized || ne.Status == http.StatusForbidden
}
