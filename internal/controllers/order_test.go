package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/services"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
	"field-service/pkg/types"
	"field-service/pkg/utils"
	"field-service/pkg/validation"
)

// fakeOrderService реализует только то, что вызывают тесты.
type fakeOrderService struct {
	services.ServiceOrderServiceInterface

	created    dto.CreateServiceOrderDTO
	actor      entities.Actor
	err        error
	lastFilter types.Filter
}

func (f *fakeOrderService) CreateOrder(_ context.Context, actor entities.Actor, d dto.CreateServiceOrderDTO) (*entities.ServiceOrder, error) {
	f.actor, f.created = actor, d
	if f.err != nil {
		return nil, f.err
	}
	return &entities.ServiceOrder{ID: 1, Name: "OS00001", State: constants.StateDraft}, nil
}

func (f *fakeOrderService) ListOrders(_ context.Context, filter types.Filter) ([]*entities.ServiceOrder, uint64, error) {
	f.lastFilter = filter
	return []*entities.ServiceOrder{{ID: 1}, {ID: 2}}, 45, nil
}

func (f *fakeOrderService) CompleteWithParts(_ context.Context, actor entities.Actor, id uint64, _ dto.CompleteWithPartsDTO) (*entities.ServiceOrder, error) {
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}
	return &entities.ServiceOrder{ID: id, State: constants.StateDone}, nil
}

func newOrderRequest(method, target, body string, actor *entities.Actor) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validation.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if actor != nil {
		req = req.WithContext(utils.WithUser(req.Context(), actor.UserID, actor.Role))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

var dispatcher = &entities.Actor{UserID: 1, Role: constants.RoleDispatcher}

func TestOrderController_CreateOrder(t *testing.T) {
	svc := &fakeOrderService{}
	ctrl := NewOrderController(svc, zap.NewNop())

	c, rec := newOrderRequest(http.MethodPost, "/api/orders",
		`{"customer_id":10,"equipment_id":11,"service_type_id":20,"reported_fault":"шумит","labor_hours":"2","labor_price":"300"}`, dispatcher)
	require.NoError(t, ctrl.CreateOrder(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, *dispatcher, svc.actor)
	assert.True(t, svc.created.LaborPrice.Equal(decimal.NewFromInt(300)))
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["status"])
	assert.Equal(t, "OS00001", body["body"].(map[string]interface{})["name"])
}

func TestOrderController_CreateOrderErrors(t *testing.T) {
	valid := `{"customer_id":10,"equipment_id":11,"service_type_id":20,"reported_fault":"шумит"}`
	tests := []struct {
		name  string
		body  string
		actor *entities.Actor
		err   error
		want  int
	}{
		{"нет пользователя в контексте", valid, nil, nil, http.StatusUnauthorized},
		{"ошибка валидации", `{"customer_id":10}`, dispatcher, nil, http.StatusBadRequest},
		{"неизвестный приоритет", strings.Replace(valid, `}`, `,"priority":"asap"}`, 1), dispatcher, nil, http.StatusBadRequest},
		{"нарушено правило", valid, dispatcher, apperrors.NewPreconditionError("equipment_owner", "оборудование принадлежит другому клиенту"), http.StatusUnprocessableEntity},
		{"не найдено", valid, dispatcher, apperrors.NewNotFoundError("Клиент", 10), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewOrderController(&fakeOrderService{err: tt.err}, zap.NewNop())
			c, rec := newOrderRequest(http.MethodPost, "/api/orders", tt.body, tt.actor)
			require.NoError(t, ctrl.CreateOrder(c))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, false, decodeBody(t, rec)["status"])
		})
	}
}

func TestOrderController_ListOrders(t *testing.T) {
	svc := &fakeOrderService{}
	ctrl := NewOrderController(svc, zap.NewNop())

	c, rec := newOrderRequest(http.MethodGet, "/api/orders?limit=20&page=2&sort=-scheduled_at", "", dispatcher)
	require.NoError(t, ctrl.ListOrders(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.lastFilter.Page)
	pagination := decodeBody(t, rec)["body"].(map[string]interface{})["pagination"].(map[string]interface{})
	assert.Equal(t, float64(45), pagination["total_count"])
	assert.Equal(t, float64(3), pagination["total_pages"])
}

func TestOrderController_CompleteWithPartsShortage(t *testing.T) {
	svc := &fakeOrderService{err: apperrors.NewInsufficientStockError(40, decimal.NewFromInt(3), decimal.NewFromInt(1))}
	ctrl := NewOrderController(svc, zap.NewNop())
	technician := &entities.Actor{UserID: 101, Role: constants.RoleTechnician}

	c, rec := newOrderRequest(http.MethodPost, "/api/orders/7/complete-with-parts",
		`{"diagnosis":"износ","work_performed":"замена","lines":[{"product_id":40,"quantity":"3"}]}`, technician)
	c.SetParamNames("id")
	c.SetParamValues("7")
	require.NoError(t, ctrl.CompleteWithParts(c))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	details := decodeBody(t, rec)["details"].(map[string]interface{})
	assert.Equal(t, float64(40), details["product_id"])
	assert.Equal(t, "3", details["requested"])
	assert.Equal(t, "1", details["available"])

	c, rec = newOrderRequest(http.MethodPost, "/api/orders/0/complete-with-parts", `{}`, technician)
	c.SetParamNames("id")
	c.SetParamValues("0")
	require.NoError(t, ctrl.CompleteWithParts(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
