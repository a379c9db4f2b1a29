package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"synergize/internal/storage/sqlite"
)

type profileRequest struct {
	FullName  string  `json:"fullName"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatarUrl"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// handleMe returns the profile of the authenticated user.
func (s *Server) handleMe(c *gin.Context) {
	user, err := s.store.GetUser(c.Request.Context(), currentUserID(c))
	if errors.Is(err, sqlite.ErrUserNotFound) {
		s.respondMsg(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// handleUpdateProfile replaces full name, email and avatar wholesale.
func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondMsg(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.store.UpdateUserProfile(c.Request.Context(), currentUserID(c), req.FullName, req.Email, req.AvatarURL)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// handleChangePassword verifies the current password before accepting a
// replacement.
func (s *Server) handleChangePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondMsg(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.store.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.serverError(c, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		s.respondMsg(c, http.StatusBadRequest, "Incorrect current password.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.serverError(c, err)
		return
	}

	if err := s.store.UpdateUserPassword(c.Request.Context(), user.ID, string(hash)); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Password updated successfully."})
}
