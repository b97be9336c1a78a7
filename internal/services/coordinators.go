package services

import (
	"context"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/events"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
)

// Reschedule переносит заказ на новую дату с тем же или другим техником.
// Все проверки выполняются до изменений, частичного переноса не бывает.
func (s *ServiceOrderService) Reschedule(ctx context.Context, actor entities.Actor, id uint64, d dto.RescheduleDTO) (*entities.ServiceOrder, error) {
	now := s.clock()
	if d.NewDate.IsZero() {
		return nil, apperrors.NewValidationError("new_date", "укажите новую дату")
	}
	if !d.NewDate.After(now) {
		return nil, apperrors.NewValidationError("new_date", "новая дата %s должна быть в будущем", d.NewDate.Format("02.01.2006 15:04"))
	}
	reason := strings.TrimSpace(d.Reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "укажите причину переноса")
	}
	if d.KeepCurrentTechnician && d.TechnicianID.Valid {
		return nil, apperrors.NewValidationError("technician_id", "нельзя одновременно оставить текущего техника и выбрать нового")
	}

	return s.execute(ctx, actor, id, "reschedule", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireNonTerminal(order, "reschedule"); err != nil {
			return err
		}

		candidate := d.TechnicianID
		if d.KeepCurrentTechnician {
			if !order.TechnicianID.Valid {
				return apperrors.NewPreconditionError("technician", "у заказа %s нет текущего техника", order.Name)
			}
			candidate = order.TechnicianID
		}

		tech, err := s.resolveTechnician(ctx, tx, order.ID, d.NewDate, candidate)
		if err != nil {
			return err
		}

		oldDate, oldTech := order.ScheduledAt, order.TechnicianID
		order.ScheduledAt = null.TimeFrom(d.NewDate)
		order.TechnicianID = null.Uint64From(tech.ID)
		order.OverdueNotified = false

		if err := s.record(ctx, tx, u, order.ID, constants.HistoryReschedule,
			rescheduleValue(oldDate, oldTech), rescheduleValue(order.ScheduledAt, order.TechnicianID), reason); err != nil {
			return err
		}
		u.emit(events.OrderRescheduledEvent{
			Order:           *order,
			OldScheduledAt:  oldDate,
			OldTechnicianID: oldTech,
			Reason:          reason,
			Actor:           u.actor,
		})
		return nil
	})
}

// CompleteWithParts добавляет использованные запчасти и завершает заказ одной операцией.
// Нехватка любого товара отменяет всё, включая добавленные строки.
func (s *ServiceOrderService) CompleteWithParts(ctx context.Context, actor entities.Actor, id uint64, d dto.CompleteWithPartsDTO) (*entities.ServiceOrder, error) {
	diagnosis := strings.TrimSpace(d.Diagnosis)
	if diagnosis == "" {
		return nil, apperrors.NewValidationError("diagnosis", "диагноз обязателен")
	}
	if strings.TrimSpace(d.WorkPerformed) == "" {
		return nil, apperrors.NewValidationError("work_performed", "необходимо описать выполненные работы")
	}
	for i, item := range d.Lines {
		if err := validateLineItem(i, item); err != nil {
			return nil, err
		}
	}

	return s.execute(ctx, actor, id, "complete_with_parts", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireState(order, "complete_with_parts", constants.StateInProgress); err != nil {
			return err
		}
		serviceType, err := s.repos.ServiceTypes.FindByID(ctx, tx, order.ServiceTypeID)
		if err != nil {
			return err
		}
		if serviceType.RequiresParts && len(d.Lines) == 0 {
			return apperrors.NewPreconditionError("lines", "вид услуги %s требует указать использованные запчасти", serviceType.Name)
		}

		order.Diagnosis = null.StringFrom(diagnosis)
		for _, item := range d.Lines {
			if _, err := s.createLine(ctx, tx, u, order, item); err != nil {
				return err
			}
		}
		return s.complete(ctx, tx, u, order, d.WorkPerformed)
	})
}
