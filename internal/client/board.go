package client

import (
	"context"
	"sync"
	"time"

	"synergize/internal/models"
)

// Board keeps a local mirror of the caller's projects and tasks and keeps
// it eventually consistent with server truth. Drag-and-drop status changes
// apply optimistically for immediate feedback; every other mutation waits
// for the server. Reconciliation is always "discard local, refetch whole
// collection" rather than a diff/merge, which is correct and simple at the
// expected scale.
type Board struct {
	mu       sync.Mutex
	api      *Client
	projects []models.Project
	tasks    []models.Task
}

// NewBoard wraps an API client with an empty mirror. Call Refresh to load
// the initial state.
func NewBoard(api *Client) *Board {
	return &Board{api: api}
}

// Refresh replaces the mirror with server truth: the project list is
// refetched and the flat task list re-derived from it. Idempotent and
// last-write-wins, so a stale concurrent refresh cannot corrupt anything.
func (b *Board) Refresh(ctx context.Context) error {
	projects, err := b.api.ListProjects(ctx)
	if err != nil {
		return err
	}

	tasks := []models.Task{}
	for _, p := range projects {
		tasks = append(tasks, p.Tasks...)
	}

	b.mu.Lock()
	b.projects = projects
	b.tasks = tasks
	b.mu.Unlock()
	return nil
}

// Projects returns a snapshot copy of the mirrored project list. The
// embedded task and member slices are copied too, so writes through a
// snapshot never reach the mirror and later mirror rewrites never show
// through a snapshot already handed out.
func (b *Board) Projects() []models.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Project, len(b.projects))
	for i, p := range b.projects {
		tasks := make([]models.Task, len(p.Tasks))
		copy(tasks, p.Tasks)
		p.Tasks = tasks

		members := make([]models.Membership, len(p.Members))
		copy(members, p.Members)
		p.Members = members

		out[i] = p
	}
	return out
}

// Tasks returns a snapshot copy of the flattened task list.
func (b *Board) Tasks() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Task looks up a mirrored task by id.
func (b *Board) Task(id int64) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// MoveTask is the drag-and-drop protocol. A drop onto an unrecognized
// column is ignored. Otherwise the mirror is rewritten optimistically, the
// status-only partial update is sent, and the mirror is refetched from
// server truth whether the call succeeded or failed. A rejected optimistic
// write therefore never survives.
func (b *Board) MoveTask(ctx context.Context, taskID int64, status string) error {
	if _, ok := models.ValidTaskStatuses[status]; !ok {
		return nil
	}

	b.applyStatus(taskID, status)

	_, err := b.api.UpdateTask(ctx, taskID, TaskPatch{Status: &status})

	if refreshErr := b.Refresh(ctx); err == nil {
		err = refreshErr
	}
	return err
}

// applyStatus rewrites the matching task in both mirror collections.
func (b *Board) applyStatus(taskID int64, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.tasks {
		if b.tasks[i].ID == taskID {
			b.tasks[i].Status = status
		}
	}
	for i := range b.projects {
		for j := range b.projects[i].Tasks {
			if b.projects[i].Tasks[j].ID == taskID {
				b.projects[i].Tasks[j].Status = status
			}
		}
	}
}

// CreateProject awaits the server and refetches on success. The mirror is
// never mutated optimistically for form-style flows, so a failure leaves
// it untouched and the caller keeps their input for correction.
func (b *Board) CreateProject(ctx context.Context, title string, startDate, endDate *time.Time) (models.Project, error) {
	project, err := b.api.CreateProject(ctx, title, startDate, endDate)
	if err != nil {
		return models.Project{}, err
	}
	return project, b.Refresh(ctx)
}

// UpdateProject awaits the server and refetches on success.
func (b *Board) UpdateProject(ctx context.Context, id int64, title string, startDate, endDate *time.Time) (models.Project, error) {
	project, err := b.api.UpdateProject(ctx, id, title, startDate, endDate)
	if err != nil {
		return models.Project{}, err
	}
	return project, b.Refresh(ctx)
}

// DeleteProject awaits the server and refetches on success.
func (b *Board) DeleteProject(ctx context.Context, id int64) error {
	if err := b.api.DeleteProject(ctx, id); err != nil {
		return err
	}
	return b.Refresh(ctx)
}

// CreateTask awaits the server and refetches on success.
func (b *Board) CreateTask(ctx context.Context, projectID int64, title, priority string, dueDate *time.Time) (models.Task, error) {
	task, err := b.api.CreateTask(ctx, projectID, title, priority, dueDate)
	if err != nil {
		return models.Task{}, err
	}
	return task, b.Refresh(ctx)
}
