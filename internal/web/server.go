package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storesense/counterdash/internal/cameras"
	"github.com/storesense/counterdash/internal/config"
	"github.com/storesense/counterdash/internal/gateway"
	"github.com/storesense/counterdash/internal/logger"
	"github.com/storesense/counterdash/internal/notify"
	"github.com/storesense/counterdash/internal/session"
	"github.com/storesense/counterdash/internal/stats"
	"github.com/storesense/counterdash/internal/theme"
)

// Server is the local operator surface. It serves the reconciled view state
// that the poll tasks publish into the view store and forwards operator
// commands to the controllers.
type Server struct {
	config     *config.WebConfig
	logger     *logger.Logger
	httpServer *http.Server
	router     *gin.Engine

	views   *ViewStore
	session *session.Controller
	cameras *cameras.Controller
	stats   *stats.Controller
	theme   *theme.Controller
	alerts  *notify.Center
	busy    *notify.Busy
	gw      *gateway.Client

	startTime time.Time
}

// Deps bundles everything the operator surface serves
type Deps struct {
	Views   *ViewStore
	Session *session.Controller
	Cameras *cameras.Controller
	Stats   *stats.Controller
	Theme   *theme.Controller
	Alerts  *notify.Center
	Busy    *notify.Busy
	Gateway *gateway.Client
}

// NewServer creates the operator web server
func NewServer(cfg *config.WebConfig, deps Deps, log *logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	s := &Server{
		config:    cfg,
		logger:    log,
		router:    router,
		views:     deps.Views,
		session:   deps.Session,
		cameras:   deps.Cameras,
		stats:     deps.Stats,
		theme:     deps.Theme,
		alerts:    deps.Alerts,
		busy:      deps.Busy,
		gw:        deps.Gateway,
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Name returns the service name
func (s *Server) Name() string { return "web-server" }

// Start starts the web server
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Web server is disabled")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		s.logger.Info("Starting web server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server error", "address", addr, "error", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		s.logger.Info("Web server started", "address", addr)
		return nil
	}
}

// Stop stops the web server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping web server")
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes sets up all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		ui := api.Group("/ui")
		{
			ui.GET("/state", s.handleUIState)
			ui.GET("/frame", s.handleUIFrame)
			ui.GET("/alerts", s.handleAlerts)
			ui.POST("/alerts/:id/dismiss", s.handleDismissAlert)
		}

		camera := api.Group("/camera")
		{
			camera.POST("/start", s.handleCameraStart)
			camera.POST("/stop", s.handleCameraStop)
			camera.POST("/reset", s.handleCameraReset)
			camera.POST("/snapshot", s.handleCameraSnapshot)
			camera.POST("/select/:id", s.handleCameraSelect)

			camera.GET("/:id", s.handleCameraGet)
			camera.POST("/add", s.handleCameraAdd)
			camera.POST("/edit/:id", s.handleCameraEdit)
			camera.POST("/delete/:id", s.handleCameraDelete)
			camera.POST("/test_connection", s.handleCameraTestConnection)
		}

		statsGroup := api.Group("/stats")
		{
			statsGroup.GET("/data", s.handleStatsData)
			statsGroup.POST("/export", s.handleStatsExport)
		}

		api.GET("/theme", s.handleThemeGet)
		api.POST("/theme", s.handleThemeToggle)

		api.POST("/settings/save", s.handleSettingsSave)
	}
}

// ginLogger creates a Gin middleware for logging
func ginLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware creates a CORS middleware for local network access
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
