package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxUserID = "userID"

// requireAuth verifies the bearer credential and attaches the resolved user
// id to the request context. Failure is terminal for the request.
func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		s.respondMsg(c, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	userID, err := s.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		s.respondMsg(c, http.StatusUnauthorized, "Token is not valid")
		return
	}

	c.Set(ctxUserID, userID)
	c.Next()
}

// currentUserID retrieves the identity resolved by requireAuth.
func currentUserID(c *gin.Context) int64 {
	id, _ := c.Get(ctxUserID)
	userID, _ := id.(int64)
	return userID
}
