package routes

import (
	"github.com/gin-gonic/gin"

	"dealer_tracker/internal/controllers"
)

// WebSocketRoutes authenticates inside the handler since browsers cannot set headers on upgrade.
func WebSocketRoutes(r *gin.Engine, h *controllers.Handler) {
	ws := r.Group("/ws")
	{
		ws.GET("/location", h.HandleLocationWebSocket)
	}
}
