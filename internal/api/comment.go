package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/inkwell/internal/middleware"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
}

func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// createCommentRequest is the body of POST /v1/chapters/:id/comments.
// The anchor keys are camelCase because editors store them that way.
type createCommentRequest struct {
	Anchor *models.CommentAnchor `json:"anchor" binding:"required"`
	Body   string                `json:"body"`
}

type updateCommentRequest struct {
	Status models.CommentStatus `json:"status" binding:"required"`
}

// Create handles POST /v1/chapters/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}
	var req createCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.comments.Create(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetEmail(c), chapterID, *req.Anchor, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// List handles GET /v1/chapters/:id/comments, oldest first.
func (h *CommentHandler) List(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}

	comments, err := h.comments.ListByChapter(c.Request.Context(), middleware.GetUserID(c), chapterID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// Update handles PATCH /v1/comments/:id. Only status can change.
func (h *CommentHandler) Update(c *gin.Context) {
	commentID, ok := paramID(c, "id", "comment")
	if !ok {
		return
	}
	var req updateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.comments.SetStatus(c.Request.Context(), middleware.GetUserID(c), commentID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}
