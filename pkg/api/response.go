package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"field-service/pkg/types"
)

type Response[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Body    T      `json:"body,omitempty"`
}

type ListBody[T any] struct {
	List       []T               `json:"list"`
	Pagination *types.Pagination `json:"pagination,omitempty"`
}

// SuccessOne - для возврата одного объекта
func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Status:  true,
		Message: message,
		Body:    data,
	})
}

// SuccessList - список с пагинацией. filter.WithPagination=false отдаёт список без неё.
func SuccessList[T any](c echo.Context, message string, list []T, total uint64, filter types.Filter) error {
	if list == nil {
		list = make([]T, 0)
	}
	body := ListBody[T]{List: list}
	if filter.WithPagination {
		p := types.NewPagination(total, filter.Page, filter.Limit)
		body.Pagination = &p
	}
	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Status:  true,
		Message: message,
		Body:    body,
	})
}
