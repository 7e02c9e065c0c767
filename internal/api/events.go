package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/middleware"
	"github.com/lalith-99/inkwell/internal/service"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// EventsHandler streams a work's change events to its author, so an open
// editor can refetch instead of polling.
type EventsHandler struct {
	works    *service.WorkService
	hub      *events.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewEventsHandler accepts connections without an Origin header (non
// browser clients) or from siteURL.
func NewEventsHandler(works *service.WorkService, hub *events.Hub, siteURL string, logger *zap.Logger) *EventsHandler {
	site := strings.TrimRight(siteURL, "/")
	return &EventsHandler{
		works:  works,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == site
			},
		},
	}
}

// Stream handles GET /v1/works/:id/events
func (h *EventsHandler) Stream(c *gin.Context) {
	workID, ok := paramID(c, "id", "work")
	if !ok {
		return
	}
	principal := middleware.GetUserID(c)
	if _, err := h.works.Get(c.Request.Context(), principal, workID); err != nil {
		respondError(c, err)
		return
	}

	// Subscribe before the handshake completes so no event published
	// after the client sees the upgrade is missed.
	sub := h.hub.Subscribe(workID)
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		h.logger.Warn("websocket upgrade failed", zap.String("work_id", workID.String()), zap.Error(err))
		return
	}
	defer conn.Close()

	// The client sends nothing but control frames; reading is how close
	// and pong are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Dropped by the hub for falling behind.
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			if ev.Type == events.WorkDeleted {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "work deleted"))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
