package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-service/pkg/constants"
	"field-service/pkg/service"
	"field-service/pkg/utils"
)

func newProtectedServer(t *testing.T, roles ...string) (*echo.Echo, service.JWTService) {
	t.Helper()
	jwtSvc := service.NewJWTService("middleware-secret", time.Hour)
	auth := NewAuthMiddleware(jwtSvc, zap.NewNop())

	e := echo.New()
	handler := func(c echo.Context) error {
		userID, err := utils.GetUserIDFromCtx(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]uint64{"user_id": userID})
	}
	e.GET("/orders", handler, auth.Auth, RequireRoles(roles...))
	return e, jwtSvc
}

func TestAuth(t *testing.T) {
	e, jwtSvc := newProtectedServer(t, constants.RoleDispatcher, constants.RoleTechnician)
	token, err := jwtSvc.GenerateToken(7, constants.RoleTechnician)
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"bearer токен", "/orders", "Bearer " + token, http.StatusOK},
		{"токен в query для websocket", "/orders?token=" + token, "", http.StatusOK},
		{"без токена", "/orders", "", http.StatusUnauthorized},
		{"неверная схема", "/orders", "Basic " + token, http.StatusUnauthorized},
		{"испорченный токен", "/orders", "Bearer " + token + "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"user_id":7}`, rec.Body.String())
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	e, jwtSvc := newProtectedServer(t, constants.RoleAdmin, constants.RoleDispatcher)

	for role, want := range map[string]int{
		constants.RoleDispatcher: http.StatusOK,
		constants.RoleTechnician: http.StatusForbidden,
		constants.RoleCustomer:   http.StatusForbidden,
	} {
		token, err := jwtSvc.GenerateToken(3, role)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}
