package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	apperrors "field-service/pkg/errors"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"валидация", apperrors.NewValidationError("quantity", "должно быть больше нуля"), http.StatusBadRequest, "quantity: должно быть больше нуля"},
		{"предусловие", apperrors.NewPreconditionError("state", "заказ уже выполнен"), http.StatusUnprocessableEntity, "заказ уже выполнен"},
		{"не найдено", apperrors.NewNotFoundError("Заказ", 7), http.StatusNotFound, "Заказ с ID 7 не найден(а)"},
		{"конфликт", apperrors.NewConflictError("параллельное изменение", fmt.Errorf("40001")), http.StatusConflict, "параллельное изменение"},
		{"обёрнутое предусловие", fmt.Errorf("complete: %w", apperrors.NewPreconditionError("", "нет фото")), http.StatusUnprocessableEntity, "нет фото"},
		{"http", apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат ID", nil, nil), http.StatusBadRequest, "Неверный формат ID"},
		{"токен", apperrors.ErrTokenExpired, http.StatusUnauthorized, apperrors.ErrTokenExpired.Error()},
		{"запрещено", apperrors.ErrForbidden, http.StatusForbidden, apperrors.ErrForbidden.Error()},
		{"неизвестная", fmt.Errorf("connection reset"), http.StatusInternalServerError, "внутренняя ошибка сервера"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message, _ := StatusFromError(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestStatusFromError_InsufficientStockDetails(t *testing.T) {
	err := fmt.Errorf("accept: %w", apperrors.NewInsufficientStockError(41, decimal.NewFromInt(2), decimal.NewFromInt(1)))

	code, _, details := StatusFromError(err)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, uint64(41), details["product_id"])
	assert.Equal(t, "2", details["requested"])
	assert.Equal(t, "1", details["available"])
}

func TestParseFilterFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("filter[state]", "assigned,in_progress")
	q.Set("sort", "-scheduled_at")
	q.Set("search", "  OS000 ")
	q.Set("limit", "10")
	q.Set("page", "3")

	f := ParseFilterFromQuery(q)
	assert.Equal(t, "assigned,in_progress", f.Filter["state"])
	assert.Equal(t, "desc", f.Sort["scheduled_at"])
	assert.Equal(t, "OS000", f.Search)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 20, f.Offset)
	assert.True(t, f.WithPagination)
}

func TestParseFilterFromQuery_Defaults(t *testing.T) {
	f := ParseFilterFromQuery(url.Values{"limit": {"100000"}, "offset": {"1000"}, "all": {"true"}})
	assert.Equal(t, maxLimit, f.Limit)
	assert.Equal(t, 1000, f.Offset)
	assert.Equal(t, 3, f.Page)
	assert.False(t, f.WithPagination)

	f = ParseFilterFromQuery(url.Values{"limit": {"-5"}, "sort[name]": {"ASC"}})
	assert.Equal(t, defaultLimit, f.Limit)
	assert.Equal(t, "asc", f.Sort["name"])
	assert.Equal(t, 1, f.Page)
}
