package utils

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HttpResponse struct {
	Status  bool                   `json:"status"`
	Body    interface{}            `json:"body,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HttpResponse{
		Status:  true,
		Body:    body,
		Message: message,
	})
}

// ErrorResponse переводит ошибку сервиса в HTTP-ответ. 5xx пишется в лог
// запроса, если InjectLogger положил его в контекст.
func ErrorResponse(ctx echo.Context, err error) error {
	code, message, details := StatusFromError(err)

	if code >= http.StatusInternalServerError {
		if logger, ok := ctx.Get("logger").(*zap.Logger); ok {
			logger.Error("необработанная ошибка запроса",
				zap.String("method", ctx.Request().Method),
				zap.String("path", ctx.Path()),
				zap.Error(err),
			)
		}
	}

	return ctx.JSON(code, &HttpResponse{
		Status:  false,
		Body:    struct{}{},
		Message: message,
		Details: details,
	})
}
