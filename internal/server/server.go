package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"taskcal/internal/auth"
	"taskcal/internal/calendar"
	"taskcal/internal/config"
	"taskcal/internal/metrics"
	"taskcal/internal/models"
	"taskcal/internal/storage/sqlite"
)

// CalendarFactory builds a calendar client from the session's credentials.
// The default factory talks to Google; tests substitute a fake.
type CalendarFactory func(c *gin.Context, creds models.Credentials) (calendar.Service, error)

// Server provides the HTTP handlers for the task tracker.
type Server struct {
	engine      *gin.Engine
	store       *sqlite.Store
	auth        *auth.Manager
	logger      *slog.Logger
	newCalendar CalendarFactory
	syncTimeout time.Duration
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, authMgr *auth.Manager, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sessions.Sessions("taskcal_session", cookie.NewStore([]byte(cfg.Session.Secret))))
	router.Use(requestMetrics())

	srv := &Server{
		engine:      router,
		store:       store,
		auth:        authMgr,
		logger:      logger,
		syncTimeout: time.Duration(cfg.Sync.TimeoutSeconds) * time.Second,
	}
	srv.newCalendar = func(c *gin.Context, creds models.Credentials) (calendar.Service, error) {
		return calendar.NewGoogleService(c.Request.Context(), cfg.Google.CalendarID,
			option.WithTokenSource(authMgr.TokenSource(c, creds)))
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires the task, auth and operational handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleListTasks)
	s.engine.POST("/add_task", s.handleAddTask)
	s.engine.GET("/edit/:id", s.handleShowTask)
	s.engine.POST("/edit/:id", s.handleEditTask)
	s.engine.POST("/complete/:id", s.handleCompleteTask)
	s.engine.POST("/delete/:id", s.handleDeleteTask)

	s.engine.GET("/authorize", s.handleAuthorize)
	s.engine.GET("/oauth2callback", s.handleOAuthCallback)

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestMetrics records per-request latency.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
