package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"field-service/internal/dto"
	"field-service/pkg/utils"
)

func (c *OrderController) AddLine(ctx echo.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	orderID, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	var d dto.LineItemDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	line, err := c.orderService.AddLine(ctx.Request().Context(), actor, orderID, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, line, "Позиция добавлена", http.StatusCreated)
}

func (c *OrderController) UpdateLine(ctx echo.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	orderID, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	lineID, err := parseIDParam(ctx, "lineId")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	var d dto.UpdateLineDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	line, err := c.orderService.UpdateLine(ctx.Request().Context(), actor, orderID, lineID, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, line, "Позиция обновлена", http.StatusOK)
}

func (c *OrderController) RemoveLine(ctx echo.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	orderID, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	lineID, err := parseIDParam(ctx, "lineId")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	if err := c.orderService.RemoveLine(ctx.Request().Context(), actor, orderID, lineID); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, nil, "Позиция удалена", http.StatusOK)
}
