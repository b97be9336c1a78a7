package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/controllers"
	"field-service/pkg/middleware"
)

func runStockRouter(secureGroup *echo.Group, deps *Dependencies, logger *zap.Logger) {
	ctrl := controllers.NewStockController(deps.StockService, logger)
	dispatch := middleware.RequireRoles(dispatchRoles...)

	products := secureGroup.Group("/products")
	products.GET("", ctrl.ListProducts)
	products.POST("", ctrl.CreateProduct, dispatch)
	products.GET("/:id", ctrl.GetProduct)
	products.GET("/:id/ledger", ctrl.Ledger, dispatch)

	stock := products.Group("/:id/stock", dispatch)
	stock.POST("/entry", ctrl.Entry)
	stock.POST("/exit", ctrl.Exit)
	stock.POST("/adjust", ctrl.Adjust)
	stock.POST("/count", ctrl.Count)
}
