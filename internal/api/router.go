package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/middleware"
	"github.com/lalith-99/inkwell/internal/service"
	"go.uber.org/zap"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Profiles *service.ProfileService
	Works    *service.WorkService
	Chapters *service.ChapterService
	Shares   *service.ShareService
	Comments *service.CommentService
	Feedback *service.FeedbackService
	Hub      *events.Hub

	JWTSecret string
	SiteURL   string

	// Health reports whether storage is reachable. Nil means always ok.
	Health func(ctx context.Context) error

	Logger *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Logger), gin.Recovery())

	// Health check and read-only pages are PUBLIC.
	r.GET("/v1/health", func(c *gin.Context) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				d.Logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := NewPublicHandler(d.Works, d.Shares)
	r.GET("/share/:token", public.Share)
	r.GET("/w/:handle/:slug", public.Work)

	// Readers holding a share link may leave feedback without an account.
	feedback := NewFeedbackHandler(d.Feedback)
	r.POST("/share/:token/chapters/:id/feedback", middleware.OptionalAuthMiddleware(d.JWTSecret), feedback.Create)

	// All other /v1/* routes require a valid JWT.
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(d.JWTSecret))

	profiles := NewProfileHandler(d.Profiles)
	v1.GET("/me", profiles.Me)
	v1.PATCH("/me", profiles.Update)

	works := NewWorkHandler(d.Works)
	v1.GET("/works", works.List)
	v1.POST("/works", works.Create)
	v1.GET("/works/:id", works.Get)
	v1.PATCH("/works/:id", works.Update)
	v1.DELETE("/works/:id", works.Delete)

	chapters := NewChapterHandler(d.Chapters)
	v1.GET("/works/:id/chapters", chapters.List)
	v1.POST("/works/:id/chapters", chapters.Create)
	v1.GET("/chapters/:id", chapters.Get)
	v1.PATCH("/chapters/:id", chapters.Update)
	v1.DELETE("/chapters/:id", chapters.Delete)
	v1.POST("/chapters/:id/move", chapters.Move)
	v1.GET("/chapters/:id/revisions", chapters.ListRevisions)
	v1.POST("/chapters/:id/revisions", chapters.SaveRevision)
	v1.GET("/chapters/:id/feedback", feedback.List)

	comments := NewCommentHandler(d.Comments)
	v1.GET("/chapters/:id/comments", comments.List)
	v1.POST("/chapters/:id/comments", comments.Create)
	v1.PATCH("/comments/:id", comments.Update)

	shares := NewShareHandler(d.Shares)
	v1.GET("/works/:id/shares", shares.List)
	v1.POST("/works/:id/shares", shares.Create)
	v1.DELETE("/shares/:id", shares.Delete)

	if d.Hub != nil {
		feed := NewEventsHandler(d.Works, d.Hub, d.SiteURL, d.Logger)
		v1.GET("/works/:id/events", feed.Stream)
	}

	return r
}
