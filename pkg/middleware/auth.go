package middleware

import (
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "field-service/pkg/errors"
	"field-service/pkg/service"
	"field-service/pkg/utils"
)

type AuthMiddleware struct {
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		logger:     logger,
	}
}

// tokenFromRequest: "Authorization: Bearer <token>", для websocket допускается ?token=.
func tokenFromRequest(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", apperrors.ErrEmptyAuthHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.ErrInvalidAuthHeader
	}
	return parts[1], nil
}

// Auth проверяет токен и кладёт пользователя и роль в контекст запроса.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			m.logger.Warn("AuthMiddleware: нет токена", zap.Error(err))
			return utils.ErrorResponse(c, err)
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			m.logger.Warn("AuthMiddleware: ошибка валидации токена", zap.Error(err))
			return utils.ErrorResponse(c, err)
		}

		ctx := utils.WithUser(c.Request().Context(), claims.UserID, claims.Role)
		c.SetRequest(c.Request().WithContext(ctx))

		m.logger.Debug("AuthMiddleware: пользователь аутентифицирован",
			zap.Uint64("userID", claims.UserID), zap.String("role", claims.Role))
		return next(c)
	}
}

// RequireRoles пропускает только перечисленные роли. Ставится после Auth.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, err := utils.GetRoleFromCtx(c.Request().Context())
			if err != nil {
				return utils.ErrorResponse(c, err)
			}
			if !slices.Contains(roles, role) {
				return utils.ErrorResponse(c, apperrors.ErrForbidden)
			}
			return next(c)
		}
	}
}
