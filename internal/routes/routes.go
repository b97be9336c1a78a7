package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/controllers"
	"field-service/pkg/constants"
	"field-service/pkg/filestorage"
	"field-service/pkg/middleware"
	"field-service/pkg/service"
	"field-service/pkg/websocket"
)

var (
	dispatchRoles  = []string{constants.RoleAdmin, constants.RoleDispatcher}
	fieldRoles     = []string{constants.RoleAdmin, constants.RoleDispatcher, constants.RoleTechnician}
	customerRoles  = []string{constants.RoleAdmin, constants.RoleDispatcher, constants.RoleCustomer}
	adminOnlyRoles = []string{constants.RoleAdmin}
)

func InitRouter(
	e *echo.Echo,
	deps *Dependencies,
	hub *websocket.Hub,
	fileStorage filestorage.FileStorageInterface,
	jwtSvc service.JWTService,
	logger *zap.Logger,
) {
	logger.Info("InitRouter: начало создания маршрутов")

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	wsController := controllers.NewWebSocketController(hub, jwtSvc, logger)
	e.GET("/ws", wsController.ServeWs)

	authMW := middleware.NewAuthMiddleware(jwtSvc, logger)
	secureGroup := e.Group("/api", authMW.Auth)

	runOrderRouter(secureGroup, deps, fileStorage, logger)
	runTechnicianRouter(secureGroup, deps, logger)
	runStockRouter(secureGroup, deps, logger)
	runEquipmentRouter(secureGroup, deps, logger)
	runCatalogRouter(secureGroup, deps, logger)
	runReportRouter(secureGroup, deps, logger)

	logger.Info("InitRouter: создание маршрутов завершено")
}
