package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"synergize/internal/auth"
	"synergize/internal/storage/sqlite"
)

// Server provides the HTTP handlers for the Synergize backend.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	tokens    *auth.TokenManager
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, tokens *auth.TokenManager, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api"))

	srv := &Server{
		engine:    router,
		store:     store,
		tokens:    tokens,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", s.handleRegister)
			authGroup.POST("/login", s.handleLogin)
		}

		users := api.Group("/users", s.requireAuth)
		{
			users.GET("/me", s.handleMe)
			users.PUT("/profile", s.handleUpdateProfile)
			users.PUT("/password", s.handleChangePassword)
		}

		projects := api.Group("/projects", s.requireAuth)
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
		}

		tasks := api.Group("/tasks", s.requireAuth)
		{
			tasks.POST("", s.handleCreateTask)
			tasks.PUT(":id", s.handleUpdateTask)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func (s *Server) parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondMsg(c, http.StatusBadRequest, "Invalid identifier")
		return 0, false
	}
	return id, true
}

// respondMsg writes the standard {"msg": ...} error body.
func (s *Server) respondMsg(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"msg": msg})
}

// serverError logs the underlying failure and hides it behind a generic
// message. Internal detail never reaches the client body.
func (s *Server) serverError(c *gin.Context, err error) {
	s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	s.respondMsg(c, http.StatusInternalServerError, "Server error")
}

// parseDate accepts the date formats the web client produces: full RFC3339
// timestamps and bare calendar dates. Nil or empty input means no date.
func parseDate(v *string) (*time.Time, bool) {
	if v == nil || *v == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *v); err == nil {
			return &t, true
		}
	}
	return nil, false
}
