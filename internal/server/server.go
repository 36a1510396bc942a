// Package server exposes the hosts blocker over HTTP for the study backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gajzzs/studyblock/internal/blocker"
	"github.com/gajzzs/studyblock/internal/config"
	"github.com/gajzzs/studyblock/internal/crypto"
	"github.com/gajzzs/studyblock/internal/platform"
)

// Blocker is the part of blocker.HostsBlocker the handlers use.
type Blocker interface {
	Block(hostnames []string, durationMinutes int) (*blocker.BlockResult, error)
	Unblock() (*blocker.UnblockResult, error)
	BlockedWebsites() []string
	ManagedHostnames() ([]string, error)
}

type Server struct {
	blocker    Blocker
	cfg        *config.Config
	router     *gin.Engine
	httpServer *http.Server
	startedAt  time.Time
}

type blockRequest struct {
	Websites []string `json:"websites"`
	Duration int      `json:"duration"`
}

func NewServer(b Blocker, cfg *config.Config) *Server {
	s := &Server{
		blocker:   b,
		cfg:       cfg,
		startedAt: time.Now(),
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), requestID())

	if len(s.cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  s.cfg.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-API-Key"},
			ExposeHeaders: []string{"X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	api.GET("/status", s.handleStatus)

	study := api.Group("/study")
	if s.cfg.APIKeyHash != "" {
		study.Use(requireAPIKey(s.cfg.APIKeyHash))
	}
	{
		study.POST("/block-websites", s.handleBlock)
		study.POST("/unblock-websites", s.handleUnblock)
		study.GET("/blocked-websites", s.handleBlocked)
	}

	return router
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	log.Printf("HTTP API listening on %s", ln.Addr())
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "running",
		"hosts_path":       s.cfg.HostsPath,
		"privileged":       platform.IsPrivileged(),
		"blocked_websites": s.blocker.BlockedWebsites(),
		"uptime_seconds":   int(time.Since(s.startedAt).Seconds()),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleBlock(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Websites) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No websites specified"})
		return
	}
	if req.Duration == 0 {
		req.Duration = s.cfg.DefaultDuration
	}

	res, err := s.blocker.Block(req.Websites, req.Duration)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"blocked_count": res.BlockedCount,
		"blocked_sites": res.Hostnames,
		"duration":      res.DurationMinutes,
		"warnings":      res.Warnings,
		"message":       fmt.Sprintf("Blocked %d websites for %d minutes", res.BlockedCount, res.DurationMinutes),
	})
}

func (s *Server) handleUnblock(c *gin.Context) {
	res, err := s.blocker.Unblock()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         res.Success,
		"removed_entries": res.RemovedEntries,
		"warnings":        res.Warnings,
	})
}

// handleBlocked reports the in-memory set; ?source=file re-reads the hosts file.
func (s *Server) handleBlocked(c *gin.Context) {
	if c.Query("source") == "file" {
		hosts, err := s.blocker.ManagedHostnames()
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"source": "file", "blocked_websites": hosts})
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": "memory", "blocked_websites": s.blocker.BlockedWebsites()})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"success": false, "error": err.Error()}

	var be *blocker.Error
	if errors.As(err, &be) {
		body["kind"] = be.Kind.String()
		body["stage"] = string(be.Stage)
		switch be.Kind {
		case blocker.KindInvalidArgument:
			status = http.StatusBadRequest
		case blocker.KindPermissionDenied:
			status = http.StatusForbidden
		}
	}
	c.JSON(status, body)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requireAPIKey(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !crypto.ValidateAPIKey(c.GetHeader("X-API-Key"), hash) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or missing API key"})
			return
		}
		c.Next()
	}
}
