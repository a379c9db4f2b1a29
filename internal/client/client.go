package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"synergize/internal/models"
)

// APIError carries the server's {"msg": ...} rejection for a request.
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Msg)
}

// Client is a thin HTTP wrapper around the Synergize REST surface. One
// method per endpoint; no retries, failures surface immediately.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New builds a client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs the bearer credential used on authenticated routes.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the currently installed credential.
func (c *Client) Token() string {
	return c.token
}

// Credentials is the register/login response payload.
type Credentials struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(buf)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Msg: "An API error occurred"}
		var body struct {
			Msg string `json:"msg"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Msg != "" {
			apiErr.Msg = body.Msg
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Register creates an account and installs the returned token.
func (c *Client) Register(ctx context.Context, fullName, email, password string) (Credentials, error) {
	var creds Credentials
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"fullName": fullName,
		"email":    email,
		"password": password,
	}, &creds)
	if err != nil {
		return Credentials{}, err
	}
	c.token = creds.Token
	return creds, nil
}

// Login verifies credentials and installs the returned token.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (Credentials, error) {
	var creds Credentials
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"email":      email,
		"password":   password,
		"rememberMe": rememberMe,
	}, &creds)
	if err != nil {
		return Credentials{}, err
	}
	c.token = creds.Token
	return creds, nil
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &user)
	return user, err
}

// UpdateProfile replaces full name, email and avatar wholesale.
func (c *Client) UpdateProfile(ctx context.Context, fullName, email string, avatarURL *string) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodPut, "/api/users/profile", map[string]any{
		"fullName":  fullName,
		"email":     email,
		"avatarUrl": avatarURL,
	}, &user)
	return user, err
}

// ChangePassword swaps the account password after verifying the current one.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/api/users/password", map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}, nil)
}

// ListProjects fetches the caller's projects with tasks and members embedded.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, &projects)
	return projects, err
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// CreateProject creates a project owned by the caller.
func (c *Client) CreateProject(ctx context.Context, title string, startDate, endDate *time.Time) (models.Project, error) {
	var project models.Project
	err := c.do(ctx, http.MethodPost, "/api/projects", map[string]any{
		"title":     title,
		"startDate": formatDate(startDate),
		"endDate":   formatDate(endDate),
	}, &project)
	return project, err
}

// UpdateProject replaces the project's title and both dates. Passing a nil
// date clears it server-side; there is no partial form of this call.
func (c *Client) UpdateProject(ctx context.Context, id int64, title string, startDate, endDate *time.Time) (models.Project, error) {
	var project models.Project
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/projects/%d", id), map[string]any{
		"title":     title,
		"startDate": formatDate(startDate),
		"endDate":   formatDate(endDate),
	}, &project)
	return project, err
}

// DeleteProject removes a project and all of its tasks.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%d", id), nil, nil)
}

// CreateTask adds a task to a project the caller owns.
func (c *Client) CreateTask(ctx context.Context, projectID int64, title, priority string, dueDate *time.Time) (models.Task, error) {
	body := map[string]any{
		"title":     title,
		"projectId": projectID,
		"dueDate":   formatDate(dueDate),
	}
	if priority != "" {
		body["priority"] = priority
	}
	var task models.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", body, &task)
	return task, err
}

// TaskPatch is a partial task update. Nil fields are omitted from the wire
// body and stay unchanged server-side.
type TaskPatch struct {
	Title      *string    `json:"title,omitempty"`
	Status     *string    `json:"status,omitempty"`
	Priority   *string    `json:"priority,omitempty"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	AssigneeID *int64     `json:"assigneeId,omitempty"`
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (models.Task, error) {
	var task models.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d", id), patch, &task)
	return task, err
}
