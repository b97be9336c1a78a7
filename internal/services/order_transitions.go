package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/events"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
)

// resolveTechnician: указанный техник обязан быть доступен, без него берётся первый свободный.
// Строка выбранного техника блокируется до конца транзакции, и дневной лимит
// проверяется уже под блокировкой.
func (s *ServiceOrderService) resolveTechnician(ctx context.Context, tx pgx.Tx, orderID uint64, at time.Time, candidate null.Uint64) (*entities.Technician, error) {
	if !candidate.Valid {
		found, err := s.availability.FindAvailableTechnician(ctx, tx, at, orderID)
		if err != nil {
			return nil, err
		}
		if found != nil {
			tech, ok, err := s.lockAvailable(ctx, tx, found.ID, orderID, at)
			if err != nil {
				return nil, err
			}
			if ok {
				return tech, nil
			}
		}
		return nil, apperrors.NewPreconditionError("technician",
			"нет свободного техника на %s", at.Format("02.01.2006 15:04"))
	}

	tech, ok, err := s.lockAvailable(ctx, tx, candidate.Uint64, orderID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewPreconditionError("technician",
			"техник %s недоступен на %s: нерабочее время или дневной лимит заказов исчерпан",
			tech.Name, at.Format("02.01.2006 15:04"))
	}
	return tech, nil
}

func (s *ServiceOrderService) lockAvailable(ctx context.Context, tx pgx.Tx, techID, orderID uint64, at time.Time) (*entities.Technician, bool, error) {
	tech, err := s.repos.Technicians.FindByIDForUpdate(ctx, tx, techID)
	if err != nil {
		return nil, false, err
	}
	ok, err := s.availability.IsAvailable(ctx, tx, tech, at, orderID)
	if err != nil {
		return nil, false, err
	}
	return tech, ok, nil
}

func (s *ServiceOrderService) AssignTechnician(ctx context.Context, actor entities.Actor, id uint64, d dto.AssignTechnicianDTO) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "assign_technician", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireState(order, "assign_technician", constants.StateDraft); err != nil {
			return err
		}
		if !order.ScheduledAt.Valid {
			return apperrors.NewPreconditionError("scheduled_at", "для назначения техника у заказа %s должна быть указана дата выезда", order.Name)
		}
		if order.ScheduledAt.Time.Before(u.now) {
			return apperrors.NewPreconditionError("scheduled_at", "дата выезда заказа %s уже прошла: %s",
				order.Name, order.ScheduledAt.Time.Format("02.01.2006 15:04"))
		}

		// явно указанный, затем предварительно выбранный при создании, затем первый свободный
		candidate := d.TechnicianID
		if !candidate.Valid {
			candidate = order.TechnicianID
		}
		tech, err := s.resolveTechnician(ctx, tx, order.ID, order.ScheduledAt.Time, candidate)
		if err != nil {
			return err
		}

		old := formatID(order.TechnicianID)
		order.TechnicianID = null.Uint64From(tech.ID)
		if err := s.record(ctx, tx, u, order.ID, constants.HistoryAssign, old, formatID(order.TechnicianID), tech.Name); err != nil {
			return err
		}
		return s.changeState(ctx, tx, u, order, constants.StateAssigned, "")
	})
}

func (s *ServiceOrderService) StartService(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "start_service", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireState(order, "start_service", constants.StateAssigned); err != nil {
			return err
		}
		if !order.TechnicianID.Valid {
			return apperrors.NewPreconditionError("technician", "заказу %s не назначен техник", order.Name)
		}
		tech, err := s.repos.Technicians.FindByID(ctx, tx, order.TechnicianID.Uint64)
		if err != nil {
			return err
		}
		isAssignee := tech.UserID.Valid && tech.UserID.Uint64 == u.actor.UserID
		if !isAssignee && !u.actor.CanDispatch() {
			return apperrors.NewPreconditionError("technician",
				"начать работы по заказу %s может только назначенный техник %s", order.Name, tech.Name)
		}

		order.StartedAt = null.TimeFrom(u.now)
		order.EndedAt = null.Time{}
		return s.changeState(ctx, tx, u, order, constants.StateInProgress, "")
	})
}

func (s *ServiceOrderService) RequestApproval(ctx context.Context, actor entities.Actor, id uint64, d dto.RequestApprovalDTO) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "request_approval", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireState(order, "request_approval", constants.StateInProgress); err != nil {
			return err
		}
		diagnosis := strings.TrimSpace(d.Diagnosis)
		if diagnosis == "" && order.Diagnosis.Valid {
			diagnosis = strings.TrimSpace(order.Diagnosis.String)
		}
		if diagnosis == "" {
			return apperrors.NewValidationError("diagnosis", "для запроса согласования необходим диагноз")
		}

		serviceType, err := s.repos.ServiceTypes.FindByID(ctx, tx, order.ServiceTypeID)
		if err != nil {
			return err
		}
		lines, err := s.repos.Lines.ListByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if serviceType.RequiresApproval && len(lines) == 0 {
			return apperrors.NewPreconditionError("lines",
				"вид услуги %s требует согласования сметы: добавьте запчасти в заказ %s", serviceType.Name, order.Name)
		}

		order.Diagnosis = null.StringFrom(diagnosis)
		RecomputeTotals(order, serviceType, lines)
		return s.changeState(ctx, tx, u, order, constants.StatePendingApproval, "")
	})
}

// CustomerAccept резервирует все строки. При нехватке любого товара ничего не резервируется,
// и, если включён автоперенос, заказ переносится на N дней с повторным подбором техника.
func (s *ServiceOrderService) CustomerAccept(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "customer_accept", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireState(order, "customer_accept", constants.StatePendingApproval); err != nil {
			return err
		}
		lines, err := s.repos.Lines.ListByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		if err := s.changeState(ctx, tx, u, order, constants.StateAccepted, ""); err != nil {
			return err
		}

		shortage := s.ledger.checkAvailability(ctx, tx, lines, nil, false)
		if shortage == nil {
			for _, line := range lines {
				if err := s.ledger.reserve(ctx, tx, u, line); err != nil {
					return err
				}
			}
			return nil
		}
		if !apperrors.IsInsufficientStock(shortage) {
			return shortage
		}

		if !s.policy.AutoRescheduleEnabled {
			return s.record(ctx, tx, u, order.ID, constants.HistoryComment, "", "",
				fmt.Sprintf("запчасти не зарезервированы: %v", shortage))
		}
		return s.autoReschedule(ctx, tx, u, order, shortage)
	})
}

func (s *ServiceOrderService) autoReschedule(ctx context.Context, tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder, shortage error) error {
	base := u.now
	if order.ScheduledAt.Valid && order.ScheduledAt.Time.After(base) {
		base = order.ScheduledAt.Time
	}
	newDate := base.AddDate(0, 0, s.policy.AutoRescheduleDays)

	tech, err := s.availability.FindAvailableTechnician(ctx, tx, newDate, order.ID)
	if err != nil {
		return err
	}
	if tech == nil {
		return s.record(ctx, tx, u, order.ID, constants.HistoryComment, "", "",
			fmt.Sprintf("автоперенос невозможен: нет свободного техника на %s; %v", newDate.Format("02.01.2006"), shortage))
	}

	oldDate, oldTech := order.ScheduledAt, order.TechnicianID
	reason := fmt.Sprintf("автоперенос на %d дн.: %v", s.policy.AutoRescheduleDays, shortage)

	order.ScheduledAt = null.TimeFrom(newDate)
	order.TechnicianID = null.Uint64From(tech.ID)
	order.OverdueNotified = false

	if err := s.record(ctx, tx, u, order.ID, constants.HistoryReschedule,
		rescheduleValue(oldDate, oldTech), rescheduleValue(order.ScheduledAt, order.TechnicianID), reason); err != nil {
		return err
	}
	if err := s.changeState(ctx, tx, u, order, constants.StateAssigned, reason); err != nil {
		return err
	}
	u.emit(events.OrderRescheduledEvent{
		Order:           *order,
		OldScheduledAt:  oldDate,
		OldTechnicianID: oldTech,
		Reason:          reason,
		Automatic:       true,
		Actor:           u.actor,
	})
	return nil
}

func rescheduleValue(at null.Time, techID null.Uint64) string {
	return fmt.Sprintf("%s; техник %s", formatTime(at), formatID(techID))
}

func (s *ServiceOrderService) CustomerReject(ctx context.Context, actor entities.Actor, id uint64, d dto.RejectOrderDTO) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "customer_reject", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireState(order, "customer_reject", constants.StatePendingApproval); err != nil {
			return err
		}
		reason := strings.TrimSpace(d.Reason)
		if reason == "" {
			return apperrors.NewValidationError("reason", "укажите причину отказа")
		}
		order.RejectionReason = null.StringFrom(reason)
		return s.changeState(ctx, tx, u, order, constants.StateRejected, reason)
	})
}

func (s *ServiceOrderService) CompleteService(ctx context.Context, actor entities.Actor, id uint64, d dto.CompleteServiceDTO) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "complete_service", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		return s.complete(ctx, tx, u, order, d.WorkPerformed)
	})
}

// complete: сначала все проверки и проверка остатков по всем строкам, затем списание.
func (s *ServiceOrderService) complete(ctx context.Context, tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder, workPerformed string) error {
	if err := requireState(order, "complete_service", constants.StateAccepted, constants.StateInProgress); err != nil {
		return err
	}
	work := strings.TrimSpace(workPerformed)
	if work == "" {
		return apperrors.NewValidationError("work_performed", "необходимо описать выполненные работы")
	}

	serviceType, err := s.repos.ServiceTypes.FindByID(ctx, tx, order.ServiceTypeID)
	if err != nil {
		return err
	}
	if serviceType.RequiresDiagnosis && strings.TrimSpace(order.Diagnosis.String) == "" {
		return apperrors.NewValidationError("diagnosis", "вид услуги %s требует диагноз", serviceType.Name)
	}
	if serviceType.AllowPhotos && !order.PhotoAfter.Valid {
		return apperrors.NewPreconditionError("photo_after", "для завершения заказа %s загрузите фото после работ", order.Name)
	}

	var tech *entities.Technician
	if order.TechnicianID.Valid {
		tech, err = s.repos.Technicians.FindByID(ctx, tx, order.TechnicianID.Uint64)
		if err != nil {
			return err
		}
	}

	lines, err := s.repos.Lines.ListByOrder(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	if err := s.ledger.checkAvailability(ctx, tx, lines, tech, true); err != nil {
		return err
	}
	for _, line := range lines {
		if err := s.ledger.consume(ctx, tx, u, line, tech); err != nil {
			return err
		}
	}

	order.WorkPerformed = null.StringFrom(work)
	if !order.StartedAt.Valid {
		order.StartedAt = null.TimeFrom(u.now)
	}
	end := u.now
	if end.Before(order.StartedAt.Time) {
		end = order.StartedAt.Time
	}
	order.EndedAt = null.TimeFrom(end)
	order.OverdueNotified = false
	RecomputeTotals(order, serviceType, lines)

	if !order.InvoiceID.Valid {
		invoiceID, err := s.invoices.CreateInvoice(ctx, tx, buildInvoice(order, serviceType, lines))
		if err != nil {
			return fmt.Errorf("не удалось создать счёт по заказу %s: %w", order.Name, err)
		}
		order.InvoiceID = null.Uint64From(invoiceID)
		if err := s.record(ctx, tx, u, order.ID, constants.HistoryInvoice, "", formatID(order.InvoiceID),
			"сумма "+order.InvoiceTotal().StringFixed(2)); err != nil {
			return err
		}
	}

	return s.changeState(ctx, tx, u, order, constants.StateDone, "")
}

func buildInvoice(order *entities.ServiceOrder, serviceType *entities.ServiceType, lines []*entities.RefactionLine) *entities.Invoice {
	inv := &entities.Invoice{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Amount:     order.InvoiceTotal(),
	}
	if serviceType.BasePrice.IsPositive() {
		inv.Lines = append(inv.Lines, entities.InvoiceLine{
			Description: serviceType.Name,
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   serviceType.BasePrice,
		})
	}
	for _, line := range lines {
		inv.Lines = append(inv.Lines, entities.InvoiceLine{
			ProductID:   line.ProductID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	if order.LaborTotal().IsPositive() {
		inv.Lines = append(inv.Lines, entities.InvoiceLine{
			Description: "Работа",
			Quantity:    order.LaborHours,
			UnitPrice:   order.LaborPrice,
		})
	}
	return inv
}

func (s *ServiceOrderService) ensureInvoiceNotPosted(ctx context.Context, tx pgx.Tx, order *entities.ServiceOrder, operation string) error {
	if !order.InvoiceID.Valid {
		return nil
	}
	posted, err := s.invoices.IsPosted(ctx, tx, order.InvoiceID.Uint64)
	if err != nil {
		return err
	}
	if posted {
		return apperrors.NewPreconditionError("invoice",
			"по заказу %s проведён счёт, операция %s недоступна", order.Name, operation)
	}
	return nil
}

func (s *ServiceOrderService) releaseReservations(ctx context.Context, tx pgx.Tx, u *unitOfWork, orderID uint64) error {
	lines, err := s.repos.Lines.ListByOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := s.ledger.cancelReservation(ctx, tx, u, line); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServiceOrderService) Cancel(ctx context.Context, actor entities.Actor, id uint64, d dto.CancelOrderDTO) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "cancel", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireNonTerminal(order, "cancel"); err != nil {
			return err
		}
		if err := s.ensureInvoiceNotPosted(ctx, tx, order, "cancel"); err != nil {
			return err
		}
		if err := s.releaseReservations(ctx, tx, u, order.ID); err != nil {
			return err
		}
		order.OverdueNotified = false
		return s.changeState(ctx, tx, u, order, constants.StateCancelled, strings.TrimSpace(d.Reason))
	})
}

// ResetToDraft возвращает в черновик любой невыполненный заказ без счёта, в том числе отменённый.
// Резервы снимаются, техник остаётся предварительно выбранным для следующего назначения.
func (s *ServiceOrderService) ResetToDraft(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "reset_to_draft", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		// отменённый заказ без счёта можно вернуть в работу
		if order.State == constants.StateDone {
			return apperrors.NewPreconditionError("state",
				"заказ %s уже выполнен, операция reset_to_draft недоступна", order.Name)
		}
		if order.InvoiceID.Valid {
			return apperrors.NewPreconditionError("invoice", "к заказу %s привязан счёт, возврат в черновик невозможен", order.Name)
		}
		if err := s.releaseReservations(ctx, tx, u, order.ID); err != nil {
			return err
		}
		order.StartedAt = null.Time{}
		order.EndedAt = null.Time{}
		order.RejectionReason = null.String{}
		return s.changeState(ctx, tx, u, order, constants.StateDraft, "")
	})
}
