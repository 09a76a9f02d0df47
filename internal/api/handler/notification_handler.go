package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/employee-ingest/internal/notification"
)

// StreamEmployeeEvents handles GET /api/v1/notifications/employee
// Holds an event stream open until the client disconnects
func (h *NotificationHandler) StreamEmployeeEvents(c *gin.Context) {
	sub, err := notification.NewSSESubscriber(c.Writer)
	if err != nil {
		h.logger.Error("Failed to open event stream", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to open event stream",
		})
		return
	}
	defer sub.Wait()

	h.registry.Serve(c.Request.Context(), sub, h.heartbeat)
}

// StreamEmployeeEventsWS handles GET /api/v1/notifications/employee/ws
func (h *NotificationHandler) StreamEmployeeEventsWS(c *gin.Context) {
	conn, err := notification.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written an error response
		h.logger.Warn("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.registry.Serve(c.Request.Context(), notification.NewWebSocketSubscriber(conn), h.heartbeat)
}
