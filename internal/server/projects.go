package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"synergize/internal/storage/sqlite"
)

type projectRequest struct {
	Title     string  `json:"title"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// handleListProjects returns the caller's projects, newest first, with
// tasks and members embedded.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// handleCreateProject creates a new project owned by the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondMsg(c, http.StatusBadRequest, "Title is required")
		return
	}
	if req.Title == "" {
		s.respondMsg(c, http.StatusBadRequest, "Title is required")
		return
	}

	startDate, ok := parseDate(req.StartDate)
	if !ok {
		s.respondMsg(c, http.StatusBadRequest, "Invalid start date")
		return
	}
	endDate, ok := parseDate(req.EndDate)
	if !ok {
		s.respondMsg(c, http.StatusBadRequest, "Invalid end date")
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), currentUserID(c), req.Title, startDate, endDate)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// handleUpdateProject replaces title and both dates wholesale. A date the
// client omits is cleared, not preserved.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondMsg(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		s.respondMsg(c, http.StatusBadRequest, "Title is required")
		return
	}

	startDate, ok := parseDate(req.StartDate)
	if !ok {
		s.respondMsg(c, http.StatusBadRequest, "Invalid start date")
		return
	}
	endDate, ok := parseDate(req.EndDate)
	if !ok {
		s.respondMsg(c, http.StatusBadRequest, "Invalid end date")
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), currentUserID(c), id, req.Title, startDate, endDate)
	if errors.Is(err, sqlite.ErrProjectNotFound) {
		s.respondMsg(c, http.StatusNotFound, "Project not found")
		return
	}
	if errors.Is(err, sqlite.ErrNotOwner) {
		s.respondMsg(c, http.StatusUnauthorized, "User not authorized")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// handleDeleteProject removes a project and all of its tasks atomically.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	err := s.store.DeleteProject(c.Request.Context(), currentUserID(c), id)
	if errors.Is(err, sqlite.ErrProjectNotFound) {
		s.respondMsg(c, http.StatusNotFound, "Project not found")
		return
	}
	if errors.Is(err, sqlite.ErrNotOwner) {
		s.respondMsg(c, http.StatusUnauthorized, "User not authorized")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Project and all its tasks have been removed"})
}
