package handlers

import (
	"log/slog"

	"rideshare-service/internal/api/middleware"
	"rideshare-service/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{hub: hub, upgrader: ws.NewUpgrader(allowedOrigins)}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Upgrades to a WebSocket for realtime events. Authenticate with ?token=<jwt> or an Authorization header.
// @Tags websocket
// @Param token query string false "JWT, when no Authorization header can be sent"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 401 {object} response.Body "Missing or invalid token"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID := middleware.UserID(c)

	// ServeWS has already written the HTTP error when the upgrade fails
	client, err := ws.ServeWS(h.hub, &h.upgrader, c.Writer, c.Request, userID)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "userID", userID, "error", err)
		return
	}
	slog.Info("WebSocket connection established", "userID", userID, "connID", client.ID())
}
