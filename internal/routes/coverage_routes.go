package routes

import (
	"github.com/gin-gonic/gin"

	"dealer_tracker/internal/controllers"
	"dealer_tracker/internal/middleware"
)

func CoverageRoutes(r *gin.Engine, h *controllers.Handler, auth *middleware.Auth) {
	coverage := r.Group("/coverage")
	coverage.Use(auth.RequireAuth())
	{
		coverage.GET("/check", h.CheckCoverage)
	}
}

func EmergencyRoutes(r *gin.Engine, h *controllers.Handler, auth *middleware.Auth) {
	emergencies := r.Group("/emergencies")
	emergencies.Use(auth.RequireAuthWithRole(middleware.RoleAdmin, middleware.RoleCompany, middleware.RoleDealer))
	{
		emergencies.GET("/:id/nearest-dealer", h.NearestDealerToEmergency)
	}
}
