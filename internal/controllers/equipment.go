package controllers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/services"
	apperrors "field-service/pkg/errors"
	"field-service/pkg/utils"
	"field-service/pkg/validation"
)

type EquipmentController struct {
	equipmentService services.EquipmentServiceInterface
	logger           *zap.Logger
}

func NewEquipmentController(equipmentService services.EquipmentServiceInterface, logger *zap.Logger) *EquipmentController {
	return &EquipmentController{equipmentService: equipmentService, logger: logger}
}

func (c *EquipmentController) Create(ctx echo.Context) error {
	var d dto.CreateEquipmentDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	eq, err := c.equipmentService.Create(ctx.Request().Context(), d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, eq, "Оборудование создано", http.StatusCreated)
}

func (c *EquipmentController) Get(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	eq, err := c.equipmentService.Get(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, eq, "Успешно", http.StatusOK)
}

func (c *EquipmentController) ListByCustomer(ctx echo.Context) error {
	customerID, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	list, err := c.equipmentService.ListByCustomer(ctx.Request().Context(), customerID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, list, "Успешно", http.StatusOK)
}

// QRCode отдаёт PNG для наклейки на оборудование.
func (c *EquipmentController) QRCode(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	png, err := c.equipmentService.QRCode(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=equipment-%d.png", id))
	return ctx.Blob(http.StatusOK, "image/png", png)
}

func (c *EquipmentController) Warranty(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	warranty, err := c.equipmentService.Warranty(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, warranty, "Успешно", http.StatusOK)
}

func (c *EquipmentController) History(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	orders, err := c.equipmentService.History(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, orders, "Успешно", http.StatusOK)
}

// Import - POST /customers/:id/equipment/import, multipart-поле file с XLSX.
func (c *EquipmentController) Import(ctx echo.Context) error {
	customerID, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("file", "файл не был передан"))
	}
	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	defer src.Close()

	// XLSX - это zip-архив
	if err := validation.ValidateFile(fileHeader, src, "equipment_import"); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	result, err := c.equipmentService.ImportFromXLSX(ctx.Request().Context(), customerID, src)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, result, "Импорт завершён", http.StatusOK)
}
