package routes

import (
	"github.com/gin-gonic/gin"

	"dealer_tracker/internal/controllers"
	"dealer_tracker/internal/middleware"
)

func AdminRoutes(r *gin.Engine, h *controllers.Handler, auth *middleware.Auth) {
	admin := r.Group("/admin")
	admin.Use(auth.RequireAuthWithRole(middleware.RoleAdmin))
	{
		admin.GET("/orders/anomalies", h.ListAnomalies)
	}
}
