package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/services"
	"field-service/pkg/api"
	"field-service/pkg/utils"
)

type OrderController struct {
	orderService services.ServiceOrderServiceInterface
	logger       *zap.Logger
}

func NewOrderController(orderService services.ServiceOrderServiceInterface, logger *zap.Logger) *OrderController {
	return &OrderController{orderService: orderService, logger: logger}
}

func (c *OrderController) CreateOrder(ctx echo.Context) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	var d dto.CreateServiceOrderDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		c.logger.Debug("CreateOrder: некорректный запрос", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, requestTimeoutSeconds)
	defer cancel()

	order, err := c.orderService.CreateOrder(reqCtx, actor, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, order, "Заказ создан", http.StatusCreated)
}

func (c *OrderController) ListOrders(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	orders, total, err := c.orderService.ListOrders(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Успешно", orders, total, filter)
}

func (c *OrderController) ListOverdue(ctx echo.Context) error {
	orders, err := c.orderService.ListOverdue(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, orders, "Успешно", http.StatusOK)
}

func (c *OrderController) GetOrder(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	details, err := c.orderService.GetOrder(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Успешно", details)
}

func (c *OrderController) GetOrderStatus(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	status, err := c.orderService.GetOrderStatus(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Успешно", status)
}

func (c *OrderController) GetHistory(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	history, err := c.orderService.History(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, history, "Успешно", http.StatusOK)
}

// orderAction - общий каркас POST /api/orders/:id/<действие>.
func (c *OrderController) orderAction(
	ctx echo.Context,
	message string,
	run func(reqCtx echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error),
) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	order, err := run(ctx, actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, order, message, http.StatusOK)
}

func (c *OrderController) AssignTechnician(ctx echo.Context) error {
	return c.orderAction(ctx, "Техник назначен", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		var d dto.AssignTechnicianDTO
		if err := bindAndValidate(e, &d); err != nil {
			return nil, err
		}
		return c.orderService.AssignTechnician(e.Request().Context(), actor, id, d)
	})
}

func (c *OrderController) StartService(ctx echo.Context) error {
	return c.orderAction(ctx, "Работы начаты", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		return c.orderService.StartService(e.Request().Context(), actor, id)
	})
}

func (c *OrderController) RequestApproval(ctx echo.Context) error {
	return c.orderAction(ctx, "Отправлено на согласование", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		var d dto.RequestApprovalDTO
		if err := bindAndValidate(e, &d); err != nil {
			return nil, err
		}
		return c.orderService.RequestApproval(e.Request().Context(), actor, id, d)
	})
}

func (c *OrderController) CustomerAccept(ctx echo.Context) error {
	return c.orderAction(ctx, "Заказ согласован", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		return c.orderService.CustomerAccept(e.Request().Context(), actor, id)
	})
}

func (c *OrderController) CustomerReject(ctx echo.Context) error {
	return c.orderAction(ctx, "Заказ отклонён клиентом", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		var d dto.RejectOrderDTO
		if err := bindAndValidate(e, &d); err != nil {
			return nil, err
		}
		return c.orderService.CustomerReject(e.Request().Context(), actor, id, d)
	})
}

func (c *OrderController) CompleteService(ctx echo.Context) error {
	return c.orderAction(ctx, "Заказ выполнен", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		var d dto.CompleteServiceDTO
		if err := bindAndValidate(e, &d); err != nil {
			return nil, err
		}
		return c.orderService.CompleteService(e.Request().Context(), actor, id, d)
	})
}

func (c *OrderController) CompleteWithParts(ctx echo.Context) error {
	return c.orderAction(ctx, "Заказ выполнен", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		var d dto.CompleteWithPartsDTO
		if err := bindAndValidate(e, &d); err != nil {
			return nil, err
		}
		return c.orderService.CompleteWithParts(e.Request().Context(), actor, id, d)
	})
}

func (c *OrderController) Cancel(ctx echo.Context) error {
	return c.orderAction(ctx, "Заказ отменён", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		var d dto.CancelOrderDTO
		if err := bindAndValidate(e, &d); err != nil {
			return nil, err
		}
		return c.orderService.Cancel(e.Request().Context(), actor, id, d)
	})
}

func (c *OrderController) ResetToDraft(ctx echo.Context) error {
	return c.orderAction(ctx, "Заказ возвращён в черновик", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		return c.orderService.ResetToDraft(e.Request().Context(), actor, id)
	})
}

func (c *OrderController) Reschedule(ctx echo.Context) error {
	return c.orderAction(ctx, "Заказ перенесён", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		var d dto.RescheduleDTO
		if err := bindAndValidate(e, &d); err != nil {
			return nil, err
		}
		return c.orderService.Reschedule(e.Request().Context(), actor, id, d)
	})
}

func (c *OrderController) ChangeServiceType(ctx echo.Context) error {
	return c.orderAction(ctx, "Вид услуги изменён", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		var d dto.ChangeServiceTypeDTO
		if err := bindAndValidate(e, &d); err != nil {
			return nil, err
		}
		return c.orderService.ChangeServiceType(e.Request().Context(), actor, id, d)
	})
}

func (c *OrderController) PostJournalEntry(ctx echo.Context) error {
	return c.orderAction(ctx, "Проводка создана", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		return c.orderService.PostJournalEntry(e.Request().Context(), actor, id)
	})
}

func (c *OrderController) MarkInvoicePosted(ctx echo.Context) error {
	return c.orderAction(ctx, "Счёт проведён", func(e echo.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
		return c.orderService.MarkInvoicePosted(e.Request().Context(), actor, id)
	})
}
