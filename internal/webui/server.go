// Package webui is the thin web admin dashboard: a JSON API over the same
// use cases the CLI drives, plus a websocket feed of dispatch receipts.
package webui

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dcpsystems/dcp/internal/registry"
	"github.com/dcpsystems/dcp/internal/resilience"
)

// Config carries everything the dashboard needs to serve one project.
type Config struct {
	ProjectRoot string
	ConfigPath  string
	MockMode    bool
	Registry    *registry.Registry
	Breakers    *resilience.Registry
	Queue       *resilience.RetryQueue
	Auth        AuthConfig
}

// Server wraps a gin.Engine wired with the dashboard's routes.
type Server struct {
	cfg    Config
	engine *gin.Engine
	hub    *receiptHub
	log    *logrus.Entry
}

// New builds a Server and registers every route. log may be nil.
func New(cfg Config, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{cfg: cfg, engine: gin.New(), hub: newReceiptHub(), log: log}
	go s.hub.run()

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger(log))
	s.engine.Use(perIPRateLimit(20, time.Minute))

	s.registerRoutes()
	return s
}

// Handler exposes the underlying http.Handler, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Run blocks, serving on addr ("host:port").
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) registerRoutes() {
	s.engine.POST("/api/login", s.handleLogin)

	api := s.engine.Group("/api")
	api.Use(s.authRequired())
	{
		api.GET("/status", s.handleStatus)
		api.GET("/config/check", s.handleConfigCheck)
		api.POST("/detect", s.handleDetect)
		api.POST("/run/:capability", s.handleRun)
		api.GET("/health", s.handleHealth)
	}

	ws := s.engine.Group("/ws")
	ws.Use(s.authRequired())
	ws.GET("/receipts", s.handleReceiptStream)
}

func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("dashboard request")
	}
}
