package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-service/internal/entities"
	"field-service/internal/events"
	"field-service/internal/repositories"
	"field-service/pkg/constants"
)

// FindOverdue возвращает заказы, у которых дата выезда прошла, а работа не завершена.
func FindOverdue(orders []*entities.ServiceOrder, now time.Time) []*entities.ServiceOrder {
	var result []*entities.ServiceOrder
	for _, o := range orders {
		if o.IsOverdue(now) {
			result = append(result, o)
		}
	}
	return result
}

// OverdueSweeper отмечает просроченные заказы и уведомляет о каждом один раз.
// Флаг сбрасывается при переносе или выходе из просрочки, следующая просрочка уведомляется снова.
type OverdueSweeper struct {
	txManager   repositories.TxManagerInterface
	orderRepo   repositories.ServiceOrderRepositoryInterface
	historyRepo repositories.OrderHistoryRepositoryInterface
	publisher   EventPublisher
	clock       Clock
	logger      *zap.Logger
}

func NewOverdueSweeper(
	txManager repositories.TxManagerInterface,
	orderRepo repositories.ServiceOrderRepositoryInterface,
	historyRepo repositories.OrderHistoryRepositoryInterface,
	publisher EventPublisher,
	clock Clock,
	logger *zap.Logger,
) *OverdueSweeper {
	return &OverdueSweeper{
		txManager:   txManager,
		orderRepo:   orderRepo,
		historyRepo: historyRepo,
		publisher:   publisher,
		clock:       clock,
		logger:      logger,
	}
}

// Sweep возвращает число заказов, о которых отправлено уведомление.
func (s *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	u := newUnitOfWork(entities.SystemActor, s.clock())
	notified := 0

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		u.reset()
		notified = 0

		orders, err := s.orderRepo.ListNonTerminal(ctx, tx)
		if err != nil {
			return err
		}
		for _, candidate := range orders {
			overdue := candidate.IsOverdue(u.now)
			if overdue == candidate.OverdueNotified {
				continue
			}

			order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			overdue = order.IsOverdue(u.now)
			if overdue == order.OverdueNotified {
				continue
			}

			order.OverdueNotified = overdue
			if err := s.orderRepo.Update(ctx, tx, order); err != nil {
				return err
			}
			if !overdue {
				continue
			}

			if err := s.historyRepo.CreateInTx(ctx, tx, &entities.OrderHistory{
				OrderID:   order.ID,
				UserID:    u.actor.UserID,
				EventType: constants.HistoryOverdue,
				NewValue:  optionalString(formatTime(order.ScheduledAt)),
				TxID:      u.txID,
				CreatedAt: u.now,
			}); err != nil {
				return err
			}
			u.emit(events.OrderOverdueEvent{Order: *order})
			notified++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("ошибка проверки просроченных заказов", zap.Error(err))
		return 0, err
	}

	u.publish(ctx, s.publisher)
	if notified > 0 {
		s.logger.Info("найдены просроченные заказы", zap.Int("count", notified))
	}
	return notified, nil
}

// ReminderJob напоминает техникам о назначенных на завтра заказах.
type ReminderJob struct {
	orderRepo repositories.ServiceOrderRepositoryInterface
	publisher EventPublisher
	clock     Clock
	logger    *zap.Logger
}

func NewReminderJob(orderRepo repositories.ServiceOrderRepositoryInterface, publisher EventPublisher, clock Clock, logger *zap.Logger) *ReminderJob {
	return &ReminderJob{orderRepo: orderRepo, publisher: publisher, clock: clock, logger: logger}
}

func (j *ReminderJob) Run(ctx context.Context) (int, error) {
	now := j.clock()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, 1)

	orders, err := j.orderRepo.ListScheduledBetween(ctx, nil, from, to, []constants.OrderState{constants.StateAssigned})
	if err != nil {
		j.logger.Error("ошибка получения заказов для напоминаний", zap.Error(err))
		return 0, err
	}
	for _, o := range orders {
		if j.publisher != nil {
			j.publisher.Publish(ctx, events.OrderReminderEvent{Order: *o})
		}
	}
	j.logger.Info("напоминания о заказах на завтра отправлены", zap.Int("count", len(orders)), zap.Time("date", from))
	return len(orders), nil
}
