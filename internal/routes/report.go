package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/controllers"
	"field-service/pkg/middleware"
)

func runReportRouter(secureGroup *echo.Group, deps *Dependencies, logger *zap.Logger) {
	reportController := controllers.NewReportController(deps.ReportService, logger)

	reports := secureGroup.Group("/reports", middleware.RequireRoles(dispatchRoles...))
	reports.GET("/orders.xlsx", reportController.ExportOrders)
	reports.GET("/workload.xlsx", reportController.ExportWorkload)
}
