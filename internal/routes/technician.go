package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/controllers"
	"field-service/pkg/middleware"
)

func runTechnicianRouter(secureGroup *echo.Group, deps *Dependencies, logger *zap.Logger) {
	ctrl := controllers.NewTechnicianController(deps.TechnicianService, logger)
	dispatch := middleware.RequireRoles(dispatchRoles...)

	techs := secureGroup.Group("/technicians")
	techs.GET("", ctrl.List)
	techs.GET("/available", ctrl.FindAvailable, dispatch)
	techs.POST("", ctrl.Create, middleware.RequireRoles(adminOnlyRoles...))
	techs.GET("/:id", ctrl.Get)
	techs.PUT("/:id", ctrl.Update, middleware.RequireRoles(adminOnlyRoles...))
	techs.GET("/:id/workload", ctrl.Workload)
	techs.GET("/:id/schedule", ctrl.Schedule)
}
