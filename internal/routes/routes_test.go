package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-service/pkg/config"
	"field-service/pkg/constants"
	"field-service/pkg/eventbus"
	"field-service/pkg/service"
	"field-service/pkg/validation"
	"field-service/pkg/websocket"
)

// newRouter собирает маршруты без БД: проверяются только ответы,
// которые отдаются до обращения к хранилищу.
func newRouter(t *testing.T) (*echo.Echo, service.JWTService) {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.Config{
		Stock:      config.StockConfig{DefaultAlertThreshold: "1"},
		Scheduling: config.SchedulingConfig{DefaultMaxDailyOrders: 3},
	}
	deps, err := NewDependencies(nil, nil, eventbus.New(logger), cfg, logger)
	require.NoError(t, err)

	e := echo.New()
	e.Validator = validation.New()
	jwtSvc := service.NewJWTService("routes-secret", time.Hour)
	InitRouter(e, deps, websocket.NewHub(logger), nil, jwtSvc, logger)
	return e, jwtSvc
}

func serve(e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNewDependencies_BadThreshold(t *testing.T) {
	cfg := &config.Config{Stock: config.StockConfig{DefaultAlertThreshold: "много"}}
	_, err := NewDependencies(nil, nil, eventbus.New(zap.NewNop()), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	e, jwtSvc := newRouter(t)
	technician, err := jwtSvc.GenerateToken(101, constants.RoleTechnician)
	require.NoError(t, err)
	dispatcher, err := jwtSvc.GenerateToken(1, constants.RoleDispatcher)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		target string
		token  string
		body   string
		want   int
	}{
		{"health без авторизации", http.MethodGet, "/health", "", "", http.StatusOK},
		{"api без токена", http.MethodGet, "/api/orders", "", "", http.StatusUnauthorized},
		{"техник не создаёт заказы", http.MethodPost, "/api/orders", technician, `{}`, http.StatusForbidden},
		{"техник не отменяет заказы", http.MethodPost, "/api/orders/1/cancel", technician, `{}`, http.StatusForbidden},
		{"техник не согласует за клиента", http.MethodPost, "/api/orders/1/accept", technician, "", http.StatusForbidden},
		{"пустой заказ не проходит валидацию", http.MethodPost, "/api/orders", dispatcher, `{}`, http.StatusBadRequest},
		{"битый json", http.MethodPost, "/api/orders", dispatcher, `{"customer_id":`, http.StatusBadRequest},
		{"неверный id", http.MethodPost, "/api/orders/abc/cancel", dispatcher, `{}`, http.StatusBadRequest},
		{"неизвестный маршрут", http.MethodGet, "/api/unknown", dispatcher, "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.target, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
