package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
)

// respondError writes err as {"error": message} with the status of its
// kind. Storage failures were already logged by the service and carry a
// generic message.
func respondError(c *gin.Context, err error) {
	c.JSON(apperr.KindOf(err).Status(), gin.H{"error": apperr.Message(err)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// paramID parses the :name path parameter. On failure it has already
// responded with 400.
func paramID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the request body. On failure it has already responded
// with 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// isNull reports whether a raw JSON field was sent as an explicit null.
func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
