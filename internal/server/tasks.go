package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"synergize/internal/storage/sqlite"
)

type createTaskRequest struct {
	Title     string  `json:"title"`
	ProjectID int64   `json:"projectId"`
	Priority  string  `json:"priority"`
	DueDate   *string `json:"dueDate"`
}

type updateTaskRequest struct {
	Title      *string `json:"title"`
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	DueDate    *string `json:"dueDate"`
	AssigneeID *int64  `json:"assigneeId"`
}

// handleCreateTask inserts a new task into a project the caller owns. The
// caller becomes the assignee.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondMsg(c, http.StatusBadRequest, "Title and Project ID are required.")
		return
	}
	if req.Title == "" || req.ProjectID == 0 {
		s.respondMsg(c, http.StatusBadRequest, "Title and Project ID are required.")
		return
	}

	dueDate, ok := parseDate(req.DueDate)
	if !ok {
		s.respondMsg(c, http.StatusBadRequest, "Invalid due date")
		return
	}

	task, err := s.store.CreateTask(c.Request.Context(), currentUserID(c), req.ProjectID, req.Title, req.Priority, dueDate)
	if errors.Is(err, sqlite.ErrProjectNotFound) {
		s.respondMsg(c, http.StatusNotFound, "Project not found")
		return
	}
	if errors.Is(err, sqlite.ErrNotOwner) {
		s.respondMsg(c, http.StatusForbidden, "Not authorized to add tasks to this project.")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// handleUpdateTask applies a partial update: absent fields stay unchanged,
// so a status-only drag update leaves every other field intact.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondMsg(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	dueDate, ok := parseDate(req.DueDate)
	if !ok {
		s.respondMsg(c, http.StatusBadRequest, "Invalid due date")
		return
	}

	changes := sqlite.TaskChanges{
		Title:      req.Title,
		Status:     req.Status,
		Priority:   req.Priority,
		DueDate:    dueDate,
		AssigneeID: req.AssigneeID,
	}

	task, err := s.store.UpdateTask(c.Request.Context(), id, changes)
	if errors.Is(err, sqlite.ErrTaskNotFound) {
		s.respondMsg(c, http.StatusNotFound, "Task not found.")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
