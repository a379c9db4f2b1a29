package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"synergize/internal/storage/sqlite"
)

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// handleRegister creates an account and logs the new user straight in.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondMsg(c, http.StatusBadRequest, "Please enter all fields")
		return
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		s.respondMsg(c, http.StatusBadRequest, "Please enter all fields")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.serverError(c, err)
		return
	}

	user, err := s.store.CreateUser(c.Request.Context(), req.FullName, req.Email, string(hash))
	if errors.Is(err, sqlite.ErrDuplicateEmail) {
		s.respondMsg(c, http.StatusBadRequest, "User with this email already exists")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, false)
	if err != nil {
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

// handleLogin verifies credentials and issues a bearer token. rememberMe
// stretches the expiry from one day to thirty.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondMsg(c, http.StatusBadRequest, "Please enter all fields")
		return
	}
	if req.Email == "" || req.Password == "" {
		s.respondMsg(c, http.StatusBadRequest, "Please enter all fields")
		return
	}

	user, err := s.store.GetUserByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, sqlite.ErrUserNotFound) {
		s.respondMsg(c, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.respondMsg(c, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := s.tokens.Issue(user.ID, req.RememberMe)
	if err != nil {
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
