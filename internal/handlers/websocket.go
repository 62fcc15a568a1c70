package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/services"
)

// WebSocketHandler upgrades an authenticated request to the live event stream.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		services.HandleWebSocket(hub, c.Writer, c.Request, userID, userType)
	}
}
