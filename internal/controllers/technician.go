package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/services"
	apperrors "field-service/pkg/errors"
	"field-service/pkg/utils"
)

type TechnicianController struct {
	technicianService services.TechnicianServiceInterface
	logger            *zap.Logger
}

func NewTechnicianController(technicianService services.TechnicianServiceInterface, logger *zap.Logger) *TechnicianController {
	return &TechnicianController{technicianService: technicianService, logger: logger}
}

func (c *TechnicianController) List(ctx echo.Context) error {
	techs, err := c.technicianService.List(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, techs, "Успешно", http.StatusOK)
}

func (c *TechnicianController) Get(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	tech, err := c.technicianService.Get(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, tech, "Успешно", http.StatusOK)
}

func (c *TechnicianController) Create(ctx echo.Context) error {
	var d dto.UpsertTechnicianDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	tech, err := c.technicianService.Create(ctx.Request().Context(), d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, tech, "Техник создан", http.StatusCreated)
}

func (c *TechnicianController) Update(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	var d dto.UpsertTechnicianDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	tech, err := c.technicianService.Update(ctx.Request().Context(), id, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, tech, "Техник обновлён", http.StatusOK)
}

func (c *TechnicianController) Workload(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	workload, err := c.technicianService.Workload(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, workload, "Успешно", http.StatusOK)
}

// Schedule - заказы техника на день ?date=2006-01-02, по умолчанию сегодня.
func (c *TechnicianController) Schedule(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	day := time.Now()
	if raw := ctx.QueryParam("date"); raw != "" {
		day, err = time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			return utils.ErrorResponse(ctx, apperrors.NewValidationError("date", "ожидается формат ГГГГ-ММ-ДД"))
		}
	}
	orders, err := c.technicianService.Schedule(ctx.Request().Context(), id, day)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, orders, "Успешно", http.StatusOK)
}

// FindAvailable - первый свободный техник на ?at=RFC3339.
func (c *TechnicianController) FindAvailable(ctx echo.Context) error {
	raw := ctx.QueryParam("at")
	if raw == "" {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("at", "обязательный параметр"))
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("at", "ожидается RFC3339"))
	}
	tech, err := c.technicianService.FindAvailable(ctx.Request().Context(), at)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, tech, "Успешно", http.StatusOK)
}
