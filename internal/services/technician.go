package services

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/repositories"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
)

type TechnicianServiceInterface interface {
	Create(ctx context.Context, d dto.UpsertTechnicianDTO) (*entities.Technician, error)
	Update(ctx context.Context, id uint64, d dto.UpsertTechnicianDTO) (*entities.Technician, error)
	Get(ctx context.Context, id uint64) (*entities.Technician, error)
	List(ctx context.Context) ([]*entities.Technician, error)
	Workload(ctx context.Context, id uint64) (*dto.TechnicianWorkloadDTO, error)
	Schedule(ctx context.Context, id uint64, day time.Time) ([]*entities.ServiceOrder, error)
	FindAvailable(ctx context.Context, at time.Time) (*entities.Technician, error)
}

type TechnicianService struct {
	txManager      repositories.TxManagerInterface
	technicianRepo repositories.TechnicianRepositoryInterface
	orderRepo      repositories.ServiceOrderRepositoryInterface
	availability   *AvailabilityService
	logger         *zap.Logger
}

func NewTechnicianService(
	txManager repositories.TxManagerInterface,
	technicianRepo repositories.TechnicianRepositoryInterface,
	orderRepo repositories.ServiceOrderRepositoryInterface,
	availability *AvailabilityService,
	logger *zap.Logger,
) *TechnicianService {
	return &TechnicianService{
		txManager:      txManager,
		technicianRepo: technicianRepo,
		orderRepo:      orderRepo,
		availability:   availability,
		logger:         logger,
	}
}

// applyTechnicianDTO проверяет данные при записи: в хранилище попадают только
// корректные рабочие часы и неотрицательный лимит.
func applyTechnicianDTO(t *entities.Technician, d dto.UpsertTechnicianDTO) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return apperrors.NewValidationError("name", "имя техника обязательно")
	}
	hours := strings.ReplaceAll(strings.TrimSpace(d.AvailableHours), " ", "")
	if _, err := entities.ParseHourRanges(hours); err != nil {
		return apperrors.NewValidationError("available_hours", "%s", err.Error())
	}
	if d.MaxDailyOrders.Valid && d.MaxDailyOrders.Int < 0 {
		return apperrors.NewValidationError("max_daily_orders", "лимит заказов в день не может быть отрицательным")
	}

	t.Name = name
	t.UserID = d.UserID
	t.Phone = d.Phone
	t.TelegramChatID = d.TelegramChatID
	t.AvailableHours = hours
	t.MaxDailyOrders = d.MaxDailyOrders
	t.WarehouseID = d.WarehouseID
	t.Specialties = d.Specialties
	if d.IsTechnician != nil {
		t.IsTechnician = *d.IsTechnician
	}
	if d.Active != nil {
		t.Active = *d.Active
	}
	return nil
}

func (s *TechnicianService) Create(ctx context.Context, d dto.UpsertTechnicianDTO) (*entities.Technician, error) {
	tech := &entities.Technician{IsTechnician: true, Active: true}
	if err := applyTechnicianDTO(tech, d); err != nil {
		return nil, err
	}
	if err := s.technicianRepo.Create(ctx, nil, tech); err != nil {
		s.logger.Error("ошибка создания техника", zap.String("name", tech.Name), zap.Error(err))
		return nil, err
	}
	s.logger.Info("техник создан", zap.Uint64("technicianID", tech.ID))
	return tech, nil
}

func (s *TechnicianService) Update(ctx context.Context, id uint64, d dto.UpsertTechnicianDTO) (*entities.Technician, error) {
	var tech *entities.Technician
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.technicianRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := applyTechnicianDTO(current, d); err != nil {
			return err
		}
		if err := s.technicianRepo.Update(ctx, tx, current); err != nil {
			return err
		}
		tech = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tech, nil
}

func (s *TechnicianService) Get(ctx context.Context, id uint64) (*entities.Technician, error) {
	return s.technicianRepo.FindByID(ctx, nil, id)
}

func (s *TechnicianService) List(ctx context.Context) ([]*entities.Technician, error) {
	return s.technicianRepo.GetAll(ctx)
}

// Workload - число заказов техника по статусам.
func (s *TechnicianService) Workload(ctx context.Context, id uint64) (*dto.TechnicianWorkloadDTO, error) {
	tech, err := s.technicianRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.orderRepo.CountByStateForTechnician(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &dto.TechnicianWorkloadDTO{
		TechnicianID: tech.ID,
		Name:         tech.Name,
		ByState:      make(map[string]int, len(constants.AllStates)),
	}
	for _, st := range constants.AllStates {
		n := counts[st]
		result.ByState[st.String()] = n
		result.Total += n
		if !st.IsTerminal() {
			result.Active += n
		}
	}
	return result, nil
}

// Schedule - заказы техника на календарный день.
func (s *TechnicianService) Schedule(ctx context.Context, id uint64, day time.Time) ([]*entities.ServiceOrder, error) {
	if _, err := s.technicianRepo.FindByID(ctx, nil, id); err != nil {
		return nil, err
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.orderRepo.ListByTechnicianBetween(ctx, id, from, from.AddDate(0, 0, 1))
}

func (s *TechnicianService) FindAvailable(ctx context.Context, at time.Time) (*entities.Technician, error) {
	tech, err := s.availability.FindAvailableTechnician(ctx, nil, at, 0)
	if err != nil {
		return nil, err
	}
	if tech == nil {
		return nil, apperrors.NewPreconditionError("technician", "нет свободного техника на %s", at.Format("02.01.2006 15:04"))
	}
	return tech, nil
}
