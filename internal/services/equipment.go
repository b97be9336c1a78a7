package services

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/repositories"
	apperrors "field-service/pkg/errors"
)

type EquipmentServiceInterface interface {
	Create(ctx context.Context, d dto.CreateEquipmentDTO) (*entities.Equipment, error)
	Get(ctx context.Context, id uint64) (*entities.Equipment, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]*entities.Equipment, error)
	QRCode(ctx context.Context, id uint64) ([]byte, error)
	Warranty(ctx context.Context, id uint64) (*dto.WarrantyDTO, error)
	History(ctx context.Context, id uint64) ([]*entities.ServiceOrder, error)
	ImportFromXLSX(ctx context.Context, customerID uint64, file io.Reader) (*dto.EquipmentImportResultDTO, error)
}

type EquipmentService struct {
	equipmentRepo repositories.EquipmentRepositoryInterface
	customerRepo  repositories.CustomerRepositoryInterface
	orderRepo     repositories.ServiceOrderRepositoryInterface
	encoder       QREncoder
	clock         Clock
	logger        *zap.Logger
}

func NewEquipmentService(
	equipmentRepo repositories.EquipmentRepositoryInterface,
	customerRepo repositories.CustomerRepositoryInterface,
	orderRepo repositories.ServiceOrderRepositoryInterface,
	encoder QREncoder,
	clock Clock,
	logger *zap.Logger,
) *EquipmentService {
	return &EquipmentService{
		equipmentRepo: equipmentRepo,
		customerRepo:  customerRepo,
		orderRepo:     orderRepo,
		encoder:       encoder,
		clock:         clock,
		logger:        logger,
	}
}

// Create: серийный номер уникален в пределах бренда и модели, дубль - ConflictError из хранилища.
func (s *EquipmentService) Create(ctx context.Context, d dto.CreateEquipmentDTO) (*entities.Equipment, error) {
	serial := strings.TrimSpace(d.SerialNumber)
	if serial == "" {
		return nil, apperrors.NewValidationError("serial_number", "серийный номер обязателен")
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, apperrors.NewValidationError("name", "название оборудования обязательно")
	}
	if _, err := s.customerRepo.FindByID(ctx, nil, d.CustomerID); err != nil {
		return nil, err
	}

	eq := &entities.Equipment{
		CustomerID:     d.CustomerID,
		Name:           strings.TrimSpace(d.Name),
		EquipmentType:  strings.TrimSpace(d.EquipmentType),
		Brand:          strings.TrimSpace(d.Brand),
		Model:          strings.TrimSpace(d.Model),
		SerialNumber:   serial,
		WarrantyExpiry: d.WarrantyExpiry,
		Location:       d.Location,
	}
	if err := s.equipmentRepo.Create(ctx, nil, eq); err != nil {
		s.logger.Warn("не удалось создать оборудование", zap.String("serial", serial), zap.Error(err))
		return nil, err
	}
	s.logger.Info("оборудование создано", zap.Uint64("equipmentID", eq.ID), zap.String("serial", serial))
	return eq, nil
}

func (s *EquipmentService) Get(ctx context.Context, id uint64) (*entities.Equipment, error) {
	return s.equipmentRepo.FindByID(ctx, nil, id)
}

func (s *EquipmentService) ListByCustomer(ctx context.Context, customerID uint64) ([]*entities.Equipment, error) {
	return s.equipmentRepo.ListByCustomer(ctx, customerID)
}

// QRCode - PNG-этикетка с кодом "{код клиента}-{название}".
func (s *EquipmentService) QRCode(ctx context.Context, id uint64) ([]byte, error) {
	eq, err := s.equipmentRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	customer, err := s.customerRepo.FindByID(ctx, nil, eq.CustomerID)
	if err != nil {
		return nil, err
	}
	png, err := s.encoder.Encode(eq.QRToken(customer.Code))
	if err != nil {
		s.logger.Error("ошибка генерации QR-кода", zap.Uint64("equipmentID", id), zap.Error(err))
		return nil, err
	}
	return png, nil
}

func (s *EquipmentService) Warranty(ctx context.Context, id uint64) (*dto.WarrantyDTO, error) {
	eq, err := s.equipmentRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	return &dto.WarrantyDTO{
		EquipmentID: eq.ID,
		Status:      eq.WarrantyStatus(now),
		Expiry:      eq.WarrantyExpiry,
		CheckedAt:   now,
	}, nil
}

func (s *EquipmentService) History(ctx context.Context, id uint64) ([]*entities.ServiceOrder, error) {
	if _, err := s.equipmentRepo.FindByID(ctx, nil, id); err != nil {
		return nil, err
	}
	return s.orderRepo.ListByEquipment(ctx, id)
}
