package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "field-service/pkg/errors"
	"field-service/pkg/service"
	"field-service/pkg/utils"
	appwebsocket "field-service/pkg/websocket"
)

// Origin не проверяется: доступ к ленте даёт только токен.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type WebSocketController struct {
	hub        *appwebsocket.Hub
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewWebSocketController(hub *appwebsocket.Hub, jwtService service.JWTService, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{hub: hub, jwtService: jwtService, logger: logger}
}

// ServeWs подключает ленту заказов. Браузер не умеет ставить заголовок, поэтому токен в ?token=.
// Диспетчеры получают все события заказов, остальные роли только личные уведомления.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return utils.ErrorResponse(ctx, apperrors.ErrEmptyAuthHeader)
	}
	claims, err := c.jwtService.ValidateToken(token)
	if err != nil {
		c.logger.Warn("WebSocket: токен отклонён", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		c.logger.Error("WebSocket: не удалось открыть соединение", zap.Error(err))
		return nil
	}

	client := appwebsocket.NewClient(c.hub, conn, claims.UserID, claims.Role)
	c.hub.Register <- client
	go client.WritePump()
	go client.ReadPump()

	c.logger.Info("WebSocket: клиент подключен", zap.Uint64("userID", claims.UserID), zap.String("role", claims.Role))
	return nil
}
