package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/services"
	"field-service/pkg/utils"
)

type StockController struct {
	stockService services.StockServiceInterface
	logger       *zap.Logger
}

func NewStockController(stockService services.StockServiceInterface, logger *zap.Logger) *StockController {
	return &StockController{stockService: stockService, logger: logger}
}

func (c *StockController) CreateProduct(ctx echo.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	var d dto.CreateProductDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	product, err := c.stockService.CreateProduct(ctx.Request().Context(), actor, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, product, "Товар создан", http.StatusCreated)
}

func (c *StockController) ListProducts(ctx echo.Context) error {
	products, err := c.stockService.ListProducts(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, products, "Успешно", http.StatusOK)
}

func (c *StockController) GetProduct(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	product, err := c.stockService.GetProduct(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, product, "Успешно", http.StatusOK)
}

func (c *StockController) Ledger(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	limit := uint64(100)
	if raw := ctx.QueryParam("limit"); raw != "" {
		if l, err := strconv.ParseUint(raw, 10, 64); err == nil && l > 0 {
			limit = l
		}
	}
	entries, err := c.stockService.Ledger(ctx.Request().Context(), id, limit)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, entries, "Успешно", http.StatusOK)
}

// stockOperation - метод сервиса, например services.StockServiceInterface.Entry.
type stockOperation func(svc services.StockServiceInterface, ctx context.Context, actor entities.Actor, productID uint64, d dto.StockQuantityDTO) (*entities.Product, error)

// stockWizard - общий обработчик /stock/{entry,exit,adjust,count}.
func (c *StockController) stockWizard(ctx echo.Context, message string, op stockOperation) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	var d dto.StockQuantityDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	product, err := op(c.stockService, ctx.Request().Context(), actor, id, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, product, message, http.StatusOK)
}

func (c *StockController) Entry(ctx echo.Context) error {
	return c.stockWizard(ctx, "Приход проведён", services.StockServiceInterface.Entry)
}

func (c *StockController) Exit(ctx echo.Context) error {
	return c.stockWizard(ctx, "Расход проведён", services.StockServiceInterface.Exit)
}

func (c *StockController) Adjust(ctx echo.Context) error {
	return c.stockWizard(ctx, "Остаток скорректирован", services.StockServiceInterface.Adjust)
}

func (c *StockController) Count(ctx echo.Context) error {
	return c.stockWizard(ctx, "Инвентаризация проведена", services.StockServiceInterface.Count)
}
