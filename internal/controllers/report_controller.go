package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/services"
	"field-service/pkg/utils"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportController struct {
	reportService services.ReportServiceInterface
	logger        *zap.Logger
}

func NewReportController(reportService services.ReportServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{reportService: reportService, logger: logger}
}

func (c *ReportController) respondWithXLSX(ctx echo.Context, name string, data []byte) error {
	fileName := fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("20060102_1504"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return ctx.Blob(http.StatusOK, xlsxMime, data)
}

// ExportOrders - те же фильтры, что у списка заказов, без пагинации.
func (c *ReportController) ExportOrders(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	c.logger.Debug("выгрузка заказов", zap.Any("filter", filter))

	data, err := c.reportService.ExportOrders(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return c.respondWithXLSX(ctx, "orders", data)
}

func (c *ReportController) ExportWorkload(ctx echo.Context) error {
	data, err := c.reportService.ExportWorkload(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return c.respondWithXLSX(ctx, "workload", data)
}
