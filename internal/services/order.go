package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/events"
	"field-service/internal/repositories"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
	"field-service/pkg/types"
)

const orderStatusCacheKey = "order_status:%d"

// OrderRepositories - хранилища, с которыми работает автомат состояний заказа.
type OrderRepositories struct {
	Orders       repositories.ServiceOrderRepositoryInterface
	Lines        repositories.RefactionLineRepositoryInterface
	Technicians  repositories.TechnicianRepositoryInterface
	ServiceTypes repositories.ServiceTypeRepositoryInterface
	Customers    repositories.CustomerRepositoryInterface
	Equipment    repositories.EquipmentRepositoryInterface
	Products     repositories.ProductRepositoryInterface
	History      repositories.OrderHistoryRepositoryInterface
}

// OrderPolicy - настраиваемое поведение заказа.
type OrderPolicy struct {
	AutoRescheduleEnabled bool
	AutoRescheduleDays    int
	StatusCacheTTL        time.Duration
	ReceivableAccount     string
	IncomeAccount         string
}

type ServiceOrderServiceInterface interface {
	CreateOrder(ctx context.Context, actor entities.Actor, d dto.CreateServiceOrderDTO) (*entities.ServiceOrder, error)
	GetOrder(ctx context.Context, id uint64) (*dto.OrderDetailsDTO, error)
	ListOrders(ctx context.Context, filter types.Filter) ([]*entities.ServiceOrder, uint64, error)
	GetOrderStatus(ctx context.Context, id uint64) (*dto.OrderStatusDTO, error)
	History(ctx context.Context, id uint64) ([]*entities.OrderHistory, error)
	ListOverdue(ctx context.Context) ([]*entities.ServiceOrder, error)

	AssignTechnician(ctx context.Context, actor entities.Actor, id uint64, d dto.AssignTechnicianDTO) (*entities.ServiceOrder, error)
	StartService(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error)
	RequestApproval(ctx context.Context, actor entities.Actor, id uint64, d dto.RequestApprovalDTO) (*entities.ServiceOrder, error)
	CustomerAccept(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error)
	CustomerReject(ctx context.Context, actor entities.Actor, id uint64, d dto.RejectOrderDTO) (*entities.ServiceOrder, error)
	CompleteService(ctx context.Context, actor entities.Actor, id uint64, d dto.CompleteServiceDTO) (*entities.ServiceOrder, error)
	Cancel(ctx context.Context, actor entities.Actor, id uint64, d dto.CancelOrderDTO) (*entities.ServiceOrder, error)
	ResetToDraft(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error)

	Reschedule(ctx context.Context, actor entities.Actor, id uint64, d dto.RescheduleDTO) (*entities.ServiceOrder, error)
	CompleteWithParts(ctx context.Context, actor entities.Actor, id uint64, d dto.CompleteWithPartsDTO) (*entities.ServiceOrder, error)

	ChangeServiceType(ctx context.Context, actor entities.Actor, id uint64, d dto.ChangeServiceTypeDTO) (*entities.ServiceOrder, error)
	AddLine(ctx context.Context, actor entities.Actor, orderID uint64, d dto.LineItemDTO) (*entities.RefactionLine, error)
	UpdateLine(ctx context.Context, actor entities.Actor, orderID, lineID uint64, d dto.UpdateLineDTO) (*entities.RefactionLine, error)
	RemoveLine(ctx context.Context, actor entities.Actor, orderID, lineID uint64) error
	SetPhoto(ctx context.Context, actor entities.Actor, id uint64, kind constants.PhotoKind, path string) (*entities.ServiceOrder, error)
	PostJournalEntry(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error)
	MarkInvoicePosted(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error)
}

// ServiceOrderService - автомат состояний сервисного заказа.
// Каждая публичная операция выполняется в одной транзакции, события уходят после коммита.
type ServiceOrderService struct {
	txManager    repositories.TxManagerInterface
	repos        OrderRepositories
	availability *AvailabilityService
	ledger       *StockLedgerService
	invoices     InvoicePoster
	cache        repositories.CacheRepositoryInterface
	publisher    EventPublisher
	policy       OrderPolicy
	clock        Clock
	logger       *zap.Logger
}

func NewServiceOrderService(
	txManager repositories.TxManagerInterface,
	repos OrderRepositories,
	availability *AvailabilityService,
	ledger *StockLedgerService,
	invoices InvoicePoster,
	cache repositories.CacheRepositoryInterface,
	publisher EventPublisher,
	policy OrderPolicy,
	clock Clock,
	logger *zap.Logger,
) *ServiceOrderService {
	return &ServiceOrderService{
		txManager:    txManager,
		repos:        repos,
		availability: availability,
		ledger:       ledger,
		invoices:     invoices,
		cache:        cache,
		publisher:    publisher,
		policy:       policy,
		clock:        clock,
		logger:       logger,
	}
}

// execute блокирует заказ, применяет fn и сохраняет результат.
// Любая ошибка откатывает транзакцию целиком, события при этом не публикуются.
func (s *ServiceOrderService) execute(
	ctx context.Context, actor entities.Actor, orderID uint64, operation string,
	fn func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error,
) (*entities.ServiceOrder, error) {
	u := newUnitOfWork(actor, s.clock())
	var result *entities.ServiceOrder

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		u.reset()
		order, err := s.repos.Orders.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := fn(tx, u, order); err != nil {
			return err
		}
		if err := s.repos.Orders.Update(ctx, tx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		s.logOperationError(operation, orderID, err)
		return nil, err
	}

	s.invalidateStatus(ctx, orderID)
	u.publish(ctx, s.publisher)
	s.logger.Info("операция над заказом выполнена",
		zap.String("operation", operation),
		zap.Uint64("orderID", orderID),
		zap.String("state", result.State.String()),
		zap.Uint64("actorID", actor.UserID),
	)
	return result, nil
}

func (s *ServiceOrderService) logOperationError(operation string, orderID uint64, err error) {
	fields := []zap.Field{zap.String("operation", operation), zap.Uint64("orderID", orderID), zap.Error(err)}
	switch {
	case apperrors.IsValidation(err), apperrors.IsPrecondition(err), errors.Is(err, apperrors.ErrNotFound):
		s.logger.Warn("операция над заказом отклонена", fields...)
	default:
		s.logger.Error("ошибка операции над заказом", fields...)
	}
}

// changeState меняет статус, пишет историю и ставит событие в очередь на публикацию.
func (s *ServiceOrderService) changeState(ctx context.Context, tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder, to constants.OrderState, comment string) error {
	from := order.State
	order.State = to
	if err := s.record(ctx, tx, u, order.ID, constants.HistoryStatusChange, from.String(), to.String(), comment); err != nil {
		return err
	}
	u.emit(events.OrderStateChangedEvent{Order: *order, From: from, To: to, Actor: u.actor, Comment: comment})
	return nil
}

func (s *ServiceOrderService) record(ctx context.Context, tx pgx.Tx, u *unitOfWork, orderID uint64, eventType, oldValue, newValue, comment string) error {
	h := &entities.OrderHistory{
		OrderID:   orderID,
		UserID:    u.actor.UserID,
		EventType: eventType,
		OldValue:  optionalString(oldValue),
		NewValue:  optionalString(newValue),
		Comment:   optionalString(comment),
		TxID:      u.txID,
		CreatedAt: u.now,
	}
	if err := s.repos.History.CreateInTx(ctx, tx, h); err != nil {
		return fmt.Errorf("не удалось записать историю заказа: %w", err)
	}
	return nil
}

func optionalString(v string) null.String {
	if v == "" {
		return null.String{}
	}
	return null.StringFrom(v)
}

func formatTime(t null.Time) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}

func formatID(id null.Uint64) string {
	if !id.Valid {
		return ""
	}
	return fmt.Sprintf("%d", id.Uint64)
}

func requireState(order *entities.ServiceOrder, operation string, allowed ...constants.OrderState) error {
	for _, st := range allowed {
		if order.State == st {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, st := range allowed {
		names[i] = st.String()
	}
	return apperrors.NewPreconditionError("state",
		"операция %s доступна только в статусе %s, текущий статус заказа %s: %s",
		operation, strings.Join(names, " или "), order.Name, order.State)
}

func requireNonTerminal(order *entities.ServiceOrder, operation string) error {
	if order.State.IsTerminal() {
		return apperrors.NewPreconditionError("state",
			"заказ %s в конечном статусе %s, операция %s недоступна", order.Name, order.State, operation)
	}
	return nil
}

// ============================================================
// СОЗДАНИЕ И ЧТЕНИЕ
// ============================================================

func (s *ServiceOrderService) CreateOrder(ctx context.Context, actor entities.Actor, d dto.CreateServiceOrderDTO) (*entities.ServiceOrder, error) {
	now := s.clock()
	fault := strings.TrimSpace(d.ReportedFault)
	if fault == "" {
		return nil, apperrors.NewValidationError("reported_fault", "описание неисправности обязательно")
	}
	priority := constants.PriorityNormal
	if d.Priority != "" {
		priority = constants.Priority(d.Priority)
		if !priority.IsValid() {
			return nil, apperrors.NewValidationError("priority", "неизвестный приоритет %q", d.Priority)
		}
	}
	if d.LaborHours.IsNegative() || d.LaborPrice.IsNegative() {
		return nil, apperrors.NewValidationError("labor", "часы и стоимость работы не могут быть отрицательными")
	}
	if d.ScheduledAt.Valid && d.ScheduledAt.Time.Before(now) {
		return nil, apperrors.NewValidationError("scheduled_at", "дата выезда %s уже прошла", d.ScheduledAt.Time.Format(time.RFC3339))
	}

	order := &entities.ServiceOrder{
		CustomerID:    d.CustomerID,
		EquipmentID:   d.EquipmentID,
		ServiceTypeID: d.ServiceTypeID,
		TechnicianID:  d.TechnicianID,
		State:         constants.StateDraft,
		Priority:      priority,
		ScheduledAt:   d.ScheduledAt,
		ReportedFault: fault,
		LaborHours:    d.LaborHours,
		LaborPrice:    d.LaborPrice,
	}

	u := newUnitOfWork(actor, now)
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.repos.Customers.FindByID(ctx, tx, d.CustomerID); err != nil {
			return err
		}
		equipment, err := s.repos.Equipment.FindByID(ctx, tx, d.EquipmentID)
		if err != nil {
			return err
		}
		if equipment.CustomerID != d.CustomerID {
			return apperrors.NewValidationError("equipment_id",
				"оборудование %d принадлежит другому клиенту", d.EquipmentID)
		}
		serviceType, err := s.repos.ServiceTypes.FindByID(ctx, tx, d.ServiceTypeID)
		if err != nil {
			return err
		}
		if d.TechnicianID.Valid {
			if _, err := s.repos.Technicians.FindByID(ctx, tx, d.TechnicianID.Uint64); err != nil {
				return err
			}
		}

		RecomputeTotals(order, serviceType, nil)
		if err := s.repos.Orders.Create(ctx, tx, order); err != nil {
			return err
		}
		return s.record(ctx, tx, u, order.ID, constants.HistoryCreate, "", order.State.String(), fault)
	})
	if err != nil {
		s.logger.Warn("не удалось создать заказ", zap.Uint64("customerID", d.CustomerID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("заказ создан", zap.Uint64("orderID", order.ID), zap.String("name", order.Name))
	return order, nil
}

func (s *ServiceOrderService) GetOrder(ctx context.Context, id uint64) (*dto.OrderDetailsDTO, error) {
	order, err := s.repos.Orders.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repos.Lines.ListByOrder(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	return &dto.OrderDetailsDTO{
		Order:         order,
		Lines:         lines,
		LaborTotal:    order.LaborTotal(),
		InvoiceTotal:  order.InvoiceTotal(),
		IsOverdue:     order.IsOverdue(now),
		DurationHours: order.DurationHours(),
	}, nil
}

func (s *ServiceOrderService) ListOrders(ctx context.Context, filter types.Filter) ([]*entities.ServiceOrder, uint64, error) {
	return s.repos.Orders.GetAll(ctx, filter)
}

// ListOverdue - просроченные на текущий момент заказы.
func (s *ServiceOrderService) ListOverdue(ctx context.Context) ([]*entities.ServiceOrder, error) {
	orders, err := s.repos.Orders.ListNonTerminal(ctx, nil)
	if err != nil {
		return nil, err
	}
	return FindOverdue(orders, s.clock()), nil
}

func (s *ServiceOrderService) History(ctx context.Context, id uint64) ([]*entities.OrderHistory, error) {
	if _, err := s.repos.Orders.FindByID(ctx, nil, id); err != nil {
		return nil, err
	}
	return s.repos.History.FindByOrderID(ctx, id)
}

// GetOrderStatus - проекция для опроса статуса. Кешируется, признак просрочки
// вычисляется при каждом чтении.
func (s *ServiceOrderService) GetOrderStatus(ctx context.Context, id uint64) (*dto.OrderStatusDTO, error) {
	key := fmt.Sprintf(orderStatusCacheKey, id)
	now := s.clock()

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var status dto.OrderStatusDTO
			if jsonErr := json.Unmarshal([]byte(raw), &status); jsonErr == nil {
				status.IsOverdue = status.ScheduledAt.Valid && status.ScheduledAt.Time.Before(now) && !status.State.IsTerminal()
				return &status, nil
			}
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("кеш статуса недоступен", zap.Uint64("orderID", id), zap.Error(err))
		}
	}

	order, err := s.repos.Orders.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	status := &dto.OrderStatusDTO{
		OrderID:         order.ID,
		Name:            order.Name,
		State:           order.State,
		TechnicianID:    order.TechnicianID,
		ScheduledAt:     order.ScheduledAt,
		Total:           order.TotalAmount,
		ProgressPercent: order.State.Progress(),
		IsOverdue:       order.IsOverdue(now),
	}
	if order.TechnicianID.Valid {
		tech, err := s.repos.Technicians.FindByID(ctx, nil, order.TechnicianID.Uint64)
		if err == nil {
			status.TechnicianName = tech.Name
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	if s.cache != nil {
		if raw, err := json.Marshal(status); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.policy.StatusCacheTTL); err != nil {
				s.logger.Warn("не удалось сохранить статус в кеш", zap.Uint64("orderID", id), zap.Error(err))
			}
		}
	}
	return status, nil
}

func (s *ServiceOrderService) invalidateStatus(ctx context.Context, orderID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, fmt.Sprintf(orderStatusCacheKey, orderID)); err != nil {
		s.logger.Warn("не удалось сбросить кеш статуса", zap.Uint64("orderID", orderID), zap.Error(err))
	}
}
