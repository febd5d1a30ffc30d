package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/focustrack/focustrack/internal/models"
	"github.com/focustrack/focustrack/internal/tracker"
)

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the API at addr (host:port or a full URL).
func NewClient(addr string) *Client {
	base := addr
	if u, err := url.Parse(addr); err != nil || u.Scheme == "" || u.Host == "" {
		base = "http://" + addr
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Health returns nil when the daemon answers /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil)
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// History returns the newest limit entries; 0 means all.
func (c *Client) History(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	var entries []models.ActivityEntry
	path := "/api/history?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Sprints(ctx context.Context) ([]models.SprintEntry, error) {
	var sprints []models.SprintEntry
	if err := c.do(ctx, http.MethodGet, "/api/sprints", &sprints); err != nil {
		return nil, err
	}
	return sprints, nil
}

func (c *Client) StartSprint(ctx context.Context) (tracker.SprintState, error) {
	var state tracker.SprintState
	err := c.do(ctx, http.MethodPost, "/api/sprint/start", &state)
	return state, err
}

func (c *Client) EndSprint(ctx context.Context) (models.SprintEntry, error) {
	var entry models.SprintEntry
	err := c.do(ctx, http.MethodPost, "/api/sprint/end", &entry)
	return entry, err
}

func (c *Client) EndActivity(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/activity/end", nil)
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/clear", nil)
}

func (c *Client) Report(ctx context.Context, period string) (*models.Report, error) {
	var report models.Report
	if err := c.do(ctx, http.MethodGet, "/api/report?period="+url.QueryEscape(period), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		} else {
			apiErr.Message = string(bytes.TrimSpace(body))
		}
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", path)
	}
	return nil
}
