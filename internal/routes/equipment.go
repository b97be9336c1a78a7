package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/controllers"
	"field-service/pkg/middleware"
)

func runEquipmentRouter(secureGroup *echo.Group, deps *Dependencies, logger *zap.Logger) {
	ctrl := controllers.NewEquipmentController(deps.EquipmentService, logger)

	secureGroup.POST("/equipment", ctrl.Create, middleware.RequireRoles(dispatchRoles...))
	secureGroup.GET("/equipment/:id", ctrl.Get)
	secureGroup.GET("/equipment/:id/qr", ctrl.QRCode)
	secureGroup.GET("/equipment/:id/warranty", ctrl.Warranty)
	secureGroup.GET("/equipment/:id/history", ctrl.History)
	secureGroup.GET("/customers/:id/equipment", ctrl.ListByCustomer)
	secureGroup.POST("/customers/:id/equipment/import", ctrl.Import, middleware.RequireRoles(dispatchRoles...))
}
