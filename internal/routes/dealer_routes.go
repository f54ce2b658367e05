package routes

import (
	"github.com/gin-gonic/gin"

	"dealer_tracker/internal/controllers"
	"dealer_tracker/internal/middleware"
)

// DealerRoutes lets dealers reach only their own records; the handlers check ownership.
func DealerRoutes(r *gin.Engine, h *controllers.Handler, auth *middleware.Auth) {
	dealers := r.Group("/dealers")
	dealers.Use(auth.RequireAuthWithRole(middleware.RoleAdmin, middleware.RoleCompany, middleware.RoleDealer))
	{
		dealers.GET("/:id/route/frequent", h.FrequentRoute)
		dealers.POST("/:id/history", h.AppendHistory)
		dealers.GET("/:id/history", h.GetHistory)
		dealers.GET("/:id/history/frequent-location", h.FrequentLocation)
	}

	dispatch := r.Group("/dealers")
	dispatch.Use(auth.RequireAuthWithRole(middleware.RoleAdmin, middleware.RoleCompany))
	{
		dispatch.GET("/nearest", h.NearestDealer)
		dispatch.POST("/:id/route/refresh", h.RefreshRoute)
	}
}
