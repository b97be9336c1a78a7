package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"field-service/internal/entities"
	apperrors "field-service/pkg/errors"
	"field-service/pkg/utils"
)

const requestTimeoutSeconds = 30

func parseIDParam(ctx echo.Context, name string) (uint64, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неверный формат ID",
			apperrors.ErrBadRequest,
			map[string]interface{}{"param": name, "value": raw},
		)
	}
	return id, nil
}

// actorFromContext собирает Actor из того, что положил AuthMiddleware.
func actorFromContext(ctx echo.Context) (entities.Actor, error) {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return entities.Actor{}, err
	}
	role, err := utils.GetRoleFromCtx(reqCtx)
	if err != nil {
		return entities.Actor{}, err
	}
	return entities.Actor{UserID: userID, Role: role}, nil
}

// bindAndValidate: ошибка разбора тела - 400, ошибка валидатора - ValidationError (тоже 400).
func bindAndValidate(ctx echo.Context, target interface{}) error {
	if err := ctx.Bind(target); err != nil {
		return apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неверный формат данных в теле запроса",
			err,
			nil,
		)
	}
	return ctx.Validate(target)
}
