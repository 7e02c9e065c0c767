package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/inkwell/internal/service"
)

// PublicHandler serves the read-only pages that need no sign-in. Pages
// are returned as JSON; rendering belongs to the frontend.
type PublicHandler struct {
	works  *service.WorkService
	shares *service.ShareService
}

func NewPublicHandler(works *service.WorkService, shares *service.ShareService) *PublicHandler {
	return &PublicHandler{works: works, shares: shares}
}

// Share handles GET /share/:token
func (h *PublicHandler) Share(c *gin.Context) {
	page, err := h.shares.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Work handles GET /w/:handle/:slug
func (h *PublicHandler) Work(c *gin.Context) {
	page, err := h.works.GetPublic(c.Request.Context(), c.Param("handle"), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
