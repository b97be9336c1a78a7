package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/controllers"
	"field-service/pkg/middleware"
)

func runCatalogRouter(secureGroup *echo.Group, deps *Dependencies, logger *zap.Logger) {
	ctrl := controllers.NewCatalogController(deps.CatalogService, logger)
	dispatch := middleware.RequireRoles(dispatchRoles...)

	secureGroup.POST("/customers", ctrl.CreateCustomer, dispatch)
	secureGroup.GET("/customers/:id", ctrl.GetCustomer)
	secureGroup.GET("/service-types", ctrl.ListServiceTypes)
	secureGroup.POST("/service-types", ctrl.CreateServiceType, middleware.RequireRoles(adminOnlyRoles...))
}
