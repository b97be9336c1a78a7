package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/controllers"
	"field-service/pkg/filestorage"
	"field-service/pkg/middleware"
)

func runOrderRouter(secureGroup *echo.Group, deps *Dependencies, fileStorage filestorage.FileStorageInterface, logger *zap.Logger) {
	orderCtrl := controllers.NewOrderController(deps.OrderService, logger)
	photoCtrl := controllers.NewPhotoController(deps.OrderService, fileStorage, logger)

	dispatch := middleware.RequireRoles(dispatchRoles...)
	field := middleware.RequireRoles(fieldRoles...)
	customer := middleware.RequireRoles(customerRoles...)

	orders := secureGroup.Group("/orders")
	{
		orders.GET("", orderCtrl.ListOrders)
		orders.POST("", orderCtrl.CreateOrder, dispatch)
		orders.GET("/overdue", orderCtrl.ListOverdue, dispatch)
		orders.GET("/:id", orderCtrl.GetOrder)
		orders.GET("/:id/status", orderCtrl.GetOrderStatus)
		orders.GET("/:id/history", orderCtrl.GetHistory)

		orders.POST("/:id/assign", orderCtrl.AssignTechnician, dispatch)
		orders.POST("/:id/start", orderCtrl.StartService, field)
		orders.POST("/:id/request-approval", orderCtrl.RequestApproval, field)
		orders.POST("/:id/accept", orderCtrl.CustomerAccept, customer)
		orders.POST("/:id/reject", orderCtrl.CustomerReject, customer)
		orders.POST("/:id/complete", orderCtrl.CompleteService, field)
		orders.POST("/:id/complete-with-parts", orderCtrl.CompleteWithParts, field)
		orders.POST("/:id/cancel", orderCtrl.Cancel, dispatch)
		orders.POST("/:id/reset", orderCtrl.ResetToDraft, dispatch)
		orders.POST("/:id/reschedule", orderCtrl.Reschedule, dispatch)
		orders.PUT("/:id/service-type", orderCtrl.ChangeServiceType, dispatch)

		orders.POST("/:id/lines", orderCtrl.AddLine, field)
		orders.PUT("/:id/lines/:lineId", orderCtrl.UpdateLine, field)
		orders.DELETE("/:id/lines/:lineId", orderCtrl.RemoveLine, field)
		orders.POST("/:id/photos/:kind", photoCtrl.Upload, field)

		orders.POST("/:id/journal-entry", orderCtrl.PostJournalEntry, dispatch)
		orders.POST("/:id/invoice/post", orderCtrl.MarkInvoicePosted, dispatch)
	}
}
