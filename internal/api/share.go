package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/inkwell/internal/middleware"
	"github.com/lalith-99/inkwell/internal/service"
)

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

// createShareRequest: expires_at is RFC 3339 and optional.
type createShareRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// Create handles POST /v1/works/:id/shares
func (h *ShareHandler) Create(c *gin.Context) {
	workID, ok := paramID(c, "id", "work")
	if !ok {
		return
	}
	var req createShareRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	link, err := h.shares.Create(c.Request.Context(), middleware.GetUserID(c), workID, req.ExpiresAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// List handles GET /v1/works/:id/shares, newest first.
func (h *ShareHandler) List(c *gin.Context) {
	workID, ok := paramID(c, "id", "work")
	if !ok {
		return
	}

	links, err := h.shares.ListByWork(c.Request.Context(), middleware.GetUserID(c), workID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

// Delete handles DELETE /v1/shares/:id
func (h *ShareHandler) Delete(c *gin.Context) {
	shareID, ok := paramID(c, "id", "share")
	if !ok {
		return
	}

	if err := h.shares.Delete(c.Request.Context(), middleware.GetUserID(c), shareID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
