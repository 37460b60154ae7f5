// Package api exposes the HTTP surface of the service: content browsing,
// quiz sessions, progress, saved questions, admin validation and the
// websocket event stream.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mcq-study/backend/internal/content"
	"github.com/mcq-study/backend/internal/event"
	"github.com/mcq-study/backend/internal/identity"
	"github.com/mcq-study/backend/internal/progress"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server holds the service dependencies behind the HTTP handlers.
type Server struct {
	content  content.Store
	sessions *progress.Synchronizer
	ledger   progress.Store
	saved    progress.SavedStore
	auth     identity.Provider
	events   event.Publisher
	hub      *event.Hub
	checks   map[string]HealthChecker
}

// Options configures a Server.
type Options struct {
	Content  content.Store
	Sessions *progress.Synchronizer
	Ledger   progress.Store
	Saved    progress.SavedStore
	Auth     identity.Provider
	Events   event.Publisher
	Hub      *event.Hub
	// Checks are probed by the readiness endpoint, keyed by dependency name.
	Checks map[string]HealthChecker
}

// NewServer wires the handlers to their dependencies.
func NewServer(opts Options) *Server {
	if opts.Events == nil {
		opts.Events = event.NopPublisher{}
	}
	return &Server{
		content:  opts.Content,
		sessions: opts.Sessions,
		ledger:   opts.Ledger,
		saved:    opts.Saved,
		auth:     opts.Auth,
		events:   opts.Events,
		hub:      opts.Hub,
		checks:   opts.Checks,
	}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", deviceHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", s.handleReady)
	if s.hub != nil {
		r.GET("/ws/events", gin.WrapH(s.hub))
	}

	api := r.Group("/api", s.identify())
	{
		api.GET("/chapters", s.handleChapters)
		api.GET("/chapters/:chapterID", s.handleChapter)
		api.GET("/subjects", s.handleSubjects)
		api.GET("/subjects/:subject/chapters", s.handleSubjectChapters)

		q := api.Group("/quiz/:chapterID", s.requireDevice())
		{
			q.GET("", s.handleQuizState)
			q.POST("/answer", s.handleQuizAnswer)
			q.POST("/next", s.handleQuizNext)
			q.POST("/previous", s.handleQuizPrevious)
			q.POST("/search", s.handleQuizSearch)
			q.POST("/reset", s.handleQuizReset)
		}

		me := api.Group("/me", s.requireUser())
		{
			me.GET("/progress", s.handleProgress)
			me.GET("/progress/export", s.handleProgressExport)
			me.GET("/progress/:chapterID", s.handleChapterProgress)
			me.GET("/saved", s.handleSavedList)
			me.PUT("/saved/:questionID", s.handleSavedAdd)
			me.DELETE("/saved/:questionID", s.handleSavedRemove)
		}

		admin := api.Group("/admin", s.requireAdmin())
		{
			admin.POST("/chapters/validate", s.handleValidateChapter)
		}
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	status := http.StatusOK
	deps := make(gin.H, len(s.checks))
	for name, check := range s.checks {
		if err := check.HealthCheck(c.Request.Context()); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	c.JSON(status, gin.H{"dependencies": deps})
}

// publish sends an event without letting sink failures affect the response.
func (s *Server) publish(ctx context.Context, e event.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		slog.Error("publishing event failed", "type", e.Type, "error", err)
	}
}
