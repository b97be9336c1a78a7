package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/services"
	"field-service/pkg/utils"
)

// CatalogController - клиенты и виды услуг.
type CatalogController struct {
	catalogService services.CatalogServiceInterface
	logger         *zap.Logger
}

func NewCatalogController(catalogService services.CatalogServiceInterface, logger *zap.Logger) *CatalogController {
	return &CatalogController{catalogService: catalogService, logger: logger}
}

func (c *CatalogController) CreateCustomer(ctx echo.Context) error {
	var d dto.CreateCustomerDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	customer, err := c.catalogService.CreateCustomer(ctx.Request().Context(), d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, customer, "Клиент создан", http.StatusCreated)
}

func (c *CatalogController) GetCustomer(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	customer, err := c.catalogService.GetCustomer(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, customer, "Успешно", http.StatusOK)
}

func (c *CatalogController) CreateServiceType(ctx echo.Context) error {
	var d dto.CreateServiceTypeDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	st, err := c.catalogService.CreateServiceType(ctx.Request().Context(), d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, st, "Вид услуги создан", http.StatusCreated)
}

func (c *CatalogController) ListServiceTypes(ctx echo.Context) error {
	list, err := c.catalogService.ListServiceTypes(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, list, "Успешно", http.StatusOK)
}
