package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synergize/internal/auth"
	"synergize/internal/models"
	"synergize/internal/storage/sqlite"
)

type testEnv struct {
	srv    *Server
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens, err := auth.NewTokenManager("test-secret")
	require.NoError(t, err)

	return &testEnv{srv: New(store, tokens, nil, ""), tokens: tokens}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(buf)
	} else {
		payload = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (e *testEnv) register(t *testing.T, fullName, email string) authResponse {
	t.Helper()
	rec := e.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"fullName": fullName,
		"email":    email,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authResponse](t, rec)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	resp := env.register(t, "Ada Lovelace", "ada@example.com")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Ada Lovelace", resp.User.FullName)
	assert.NotZero(t, resp.User.ID)

	// The issued token is immediately usable.
	rec := env.request(t, http.MethodGet, "/api/users/me", resp.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The hash never appears in any response body.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "missing@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please enter all fields", decode[map[string]string](t, rec)["msg"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ada", "ada@example.com")

	rec := env.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"fullName": "Imposter",
		"email":    "ada@example.com",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User with this email already exists", decode[map[string]string](t, rec)["msg"])
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ada", "ada@example.com")

	rec := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[authResponse](t, rec)
	assert.NotEmpty(t, resp.Token)

	for _, body := range []map[string]any{
		{"email": "ada@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "hunter22"},
	} {
		rec := env.request(t, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid credentials", decode[map[string]string](t, rec)["msg"])
	}
}

func TestLoginRememberMeExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ada", "ada@example.com")

	issue := func(rememberMe bool) time.Time {
		rec := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":      "ada@example.com",
			"password":   "hunter22",
			"rememberMe": rememberMe,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		exp, err := env.tokens.ExpiresAt(decode[authResponse](t, rec).Token)
		require.NoError(t, err)
		return exp
	}

	assert.InDelta(t, auth.DefaultTokenTTL.Seconds(), time.Until(issue(false)).Seconds(), 60)
	assert.InDelta(t, auth.RememberMeTokenTTL.Seconds(), time.Until(issue(true)).Seconds(), 60)
}

func TestAuthGate(t *testing.T) {
	env := newTestEnv(t)

	for name, header := range map[string]string{
		"missing":   "",
		"malformed": "garbage",
		"badToken":  "Bearer not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			env.srv.Engine().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

// Walks the whole board lifecycle: create project, add task, drag to DONE,
// delete project, observe the cascade.
func TestBoardLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "Ada", "ada@example.com")

	rec := env.request(t, http.MethodPost, "/api/projects", owner.Token, map[string]any{"title": "Launch"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[models.Project](t, rec)
	assert.Equal(t, owner.User.ID, project.OwnerID)
	assert.Nil(t, project.StartDate)
	assert.Nil(t, project.EndDate)

	rec = env.request(t, http.MethodPost, "/api/tasks", owner.Token, map[string]any{
		"title":     "Design",
		"projectId": project.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[models.Task](t, rec)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, owner.User.ID, *task.AssigneeID)

	// Status-only drag update.
	rec = env.request(t, http.MethodPut, "/api/tasks/"+itoa(task.ID), owner.Token, map[string]any{
		"status": models.StatusDone,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/projects", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	projects := decode[[]models.Project](t, rec)
	require.Len(t, projects, 1)
	require.Len(t, projects[0].Tasks, 1)
	assert.Equal(t, models.StatusDone, projects[0].Tasks[0].Status)
	assert.Equal(t, "Design", projects[0].Tasks[0].Title)

	rec = env.request(t, http.MethodDelete, "/api/projects/"+itoa(project.ID), owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Project and all its tasks have been removed", decode[map[string]string](t, rec)["msg"])

	rec = env.request(t, http.MethodGet, "/api/projects", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Project](t, rec))

	// The cascaded task is gone too.
	rec = env.request(t, http.MethodPut, "/api/tasks/"+itoa(task.ID), owner.Token, map[string]any{
		"status": models.StatusTodo,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectUpdateFullReplace(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "Ada", "ada@example.com")

	rec := env.request(t, http.MethodPost, "/api/projects", owner.Token, map[string]any{
		"title":     "Launch",
		"startDate": "2026-03-01",
		"endDate":   "2026-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[models.Project](t, rec)
	require.NotNil(t, project.StartDate)
	require.NotNil(t, project.EndDate)

	// Omitting the dates clears them.
	rec = env.request(t, http.MethodPut, "/api/projects/"+itoa(project.ID), owner.Token, map[string]any{
		"title": "Relaunch",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Project](t, rec)
	assert.Equal(t, "Relaunch", updated.Title)
	assert.Nil(t, updated.StartDate)
	assert.Nil(t, updated.EndDate)
	assert.NotNil(t, updated.Tasks)
}

func TestProjectUpdateRequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "Ada", "ada@example.com")

	rec := env.request(t, http.MethodPost, "/api/projects", owner.Token, map[string]any{"title": "Launch"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[models.Project](t, rec)

	// An update that omits the title must not blank it.
	rec = env.request(t, http.MethodPut, "/api/projects/"+itoa(project.ID), owner.Token, map[string]any{
		"startDate": "2026-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title is required", decode[map[string]string](t, rec)["msg"])

	rec = env.request(t, http.MethodGet, "/api/projects", owner.Token, nil)
	projects := decode[[]models.Project](t, rec)
	require.Len(t, projects, 1)
	assert.Equal(t, "Launch", projects[0].Title)
}

func TestProjectOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "Ada", "ada@example.com")
	intruder := env.register(t, "Eve", "eve@example.com")

	rec := env.request(t, http.MethodPost, "/api/projects", owner.Token, map[string]any{"title": "Private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[models.Project](t, rec)

	rec = env.request(t, http.MethodPut, "/api/projects/"+itoa(project.ID), intruder.Token, map[string]any{"title": "Hijacked"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not authorized", decode[map[string]string](t, rec)["msg"])

	rec = env.request(t, http.MethodDelete, "/api/projects/"+itoa(project.ID), intruder.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The project is unchanged and still present for the owner.
	rec = env.request(t, http.MethodGet, "/api/projects", owner.Token, nil)
	projects := decode[[]models.Project](t, rec)
	require.Len(t, projects, 1)
	assert.Equal(t, "Private", projects[0].Title)

	// Task creation on someone else's project is forbidden with 403.
	rec = env.request(t, http.MethodPost, "/api/tasks", intruder.Token, map[string]any{
		"title":     "Sneaky",
		"projectId": project.ID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to add tasks to this project.", decode[map[string]string](t, rec)["msg"])
}

func TestProjectNotFound(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "Ada", "ada@example.com")

	rec := env.request(t, http.MethodPut, "/api/projects/9999", owner.Token, map[string]any{"title": "Ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodDelete, "/api/projects/9999", owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A task pointing at a missing project is an error, not a crash.
	rec = env.request(t, http.MethodPost, "/api/tasks", owner.Token, map[string]any{
		"title":     "Orphan",
		"projectId": 9999,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "Ada", "ada@example.com")

	for _, body := range []map[string]any{
		{"projectId": 1},
		{"title": "No project"},
	} {
		rec := env.request(t, http.MethodPost, "/api/tasks", owner.Token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Title and Project ID are required.", decode[map[string]string](t, rec)["msg"])
	}
}

func TestTaskPartialUpdatePreservesFields(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "Ada", "ada@example.com")

	rec := env.request(t, http.MethodPost, "/api/projects", owner.Token, map[string]any{"title": "Launch"})
	project := decode[models.Project](t, rec)

	rec = env.request(t, http.MethodPost, "/api/tasks", owner.Token, map[string]any{
		"title":     "Design",
		"projectId": project.ID,
		"priority":  models.PriorityHigh,
		"dueDate":   "2026-09-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[models.Task](t, rec)

	rec = env.request(t, http.MethodPut, "/api/tasks/"+itoa(task.ID), owner.Token, map[string]any{
		"status": models.StatusInProgress,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Task](t, rec)

	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, "Design", updated.Title)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	require.NotNil(t, updated.DueDate)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, owner.User.ID, *updated.AssigneeID)
}

func TestTaskUpdateHasNoOwnershipCheck(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "Ada", "ada@example.com")
	other := env.register(t, "Eve", "eve@example.com")

	rec := env.request(t, http.MethodPost, "/api/projects", owner.Token, map[string]any{"title": "Launch"})
	project := decode[models.Project](t, rec)
	rec = env.request(t, http.MethodPost, "/api/tasks", owner.Token, map[string]any{
		"title":     "Design",
		"projectId": project.ID,
	})
	task := decode[models.Task](t, rec)

	// Any authenticated identity may update any task by id. The exposed
	// contract has no membership check here.
	rec = env.request(t, http.MethodPut, "/api/tasks/"+itoa(task.ID), other.Token, map[string]any{
		"status": models.StatusDone,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusDone, decode[models.Task](t, rec).Status)
}

func TestProfileAndPasswordFlows(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "Ada", "ada@example.com")

	rec := env.request(t, http.MethodPut, "/api/users/profile", user.Token, map[string]any{
		"fullName":  "Ada K. Lovelace",
		"email":     "ada@analytical.engine",
		"avatarUrl": "https://cdn.example.com/ada.png",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.User](t, rec)
	assert.Equal(t, "Ada K. Lovelace", updated.FullName)
	assert.Equal(t, "ada@analytical.engine", updated.Email)
	require.NotNil(t, updated.AvatarURL)

	rec = env.request(t, http.MethodPut, "/api/users/password", user.Token, map[string]string{
		"currentPassword": "wrong-password",
		"newPassword":     "new-secret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect current password.", decode[map[string]string](t, rec)["msg"])

	rec = env.request(t, http.MethodPut, "/api/users/password", user.Token, map[string]string{
		"currentPassword": "hunter22",
		"newPassword":     "new-secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The old password no longer works, the new one does.
	rec = env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "ada@analytical.engine",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "ada@analytical.engine",
		"password": "new-secret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
