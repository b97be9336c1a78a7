package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-service/internal/entities"
	"field-service/internal/repositories"
)

// AvailabilityService отвечает, может ли техник взять заказ на указанное время.
type AvailabilityService struct {
	orderRepo       repositories.ServiceOrderRepositoryInterface
	technicianRepo  repositories.TechnicianRepositoryInterface
	defaultMaxDaily int
	logger          *zap.Logger
}

func NewAvailabilityService(
	orderRepo repositories.ServiceOrderRepositoryInterface,
	technicianRepo repositories.TechnicianRepositoryInterface,
	defaultMaxDaily int,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		orderRepo:       orderRepo,
		technicianRepo:  technicianRepo,
		defaultMaxDaily: defaultMaxDaily,
		logger:          logger,
	}
}

// IsAvailable: техник отмечен флагом, час попадает в рабочее окно и дневной лимит
// незавершённых заказов не исчерпан. excludeOrderID не учитывается в лимите
// (перепланирование уже назначенного заказа).
func (s *AvailabilityService) IsAvailable(ctx context.Context, tx pgx.Tx, tech *entities.Technician, at time.Time, excludeOrderID uint64) (bool, error) {
	if tech == nil || !tech.IsTechnician || !tech.Active {
		return false, nil
	}

	works, err := tech.WorksAt(at.Hour())
	if err != nil {
		// Часы проверяются при записи техника, сюда попадают только старые данные.
		s.logger.Warn("некорректные рабочие часы техника",
			zap.Uint64("technicianID", tech.ID),
			zap.String("availableHours", tech.AvailableHours),
			zap.Error(err),
		)
		return false, nil
	}
	if !works {
		return false, nil
	}

	limit := tech.DailyLimit(s.defaultMaxDaily)
	if limit <= 0 {
		return false, nil
	}

	count, err := s.orderRepo.CountActiveForTechnicianOnDate(ctx, tx, tech.ID, at, excludeOrderID)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки загрузки техника: %w", err)
	}
	return count < limit, nil
}

// FindAvailableTechnician - первый подходящий техник в порядке ID.
// Возвращает nil без ошибки, если подходящих нет.
func (s *AvailabilityService) FindAvailableTechnician(ctx context.Context, tx pgx.Tx, at time.Time, excludeOrderID uint64) (*entities.Technician, error) {
	techs, err := s.technicianRepo.ListActive(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка техников: %w", err)
	}
	for _, tech := range techs {
		ok, err := s.IsAvailable(ctx, tx, tech, at, excludeOrderID)
		if err != nil {
			return nil, err
		}
		if ok {
			return tech, nil
		}
	}
	return nil, nil
}
