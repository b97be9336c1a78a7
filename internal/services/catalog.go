package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/repositories"
	apperrors "field-service/pkg/errors"
)

type CatalogServiceInterface interface {
	CreateCustomer(ctx context.Context, d dto.CreateCustomerDTO) (*entities.Customer, error)
	GetCustomer(ctx context.Context, id uint64) (*entities.Customer, error)
	CreateServiceType(ctx context.Context, d dto.CreateServiceTypeDTO) (*entities.ServiceType, error)
	ListServiceTypes(ctx context.Context) ([]*entities.ServiceType, error)
}

// CatalogService - справочники клиентов и видов услуг.
type CatalogService struct {
	customerRepo    repositories.CustomerRepositoryInterface
	serviceTypeRepo repositories.ServiceTypeRepositoryInterface
	logger          *zap.Logger
}

func NewCatalogService(
	customerRepo repositories.CustomerRepositoryInterface,
	serviceTypeRepo repositories.ServiceTypeRepositoryInterface,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{customerRepo: customerRepo, serviceTypeRepo: serviceTypeRepo, logger: logger}
}

func (s *CatalogService) CreateCustomer(ctx context.Context, d dto.CreateCustomerDTO) (*entities.Customer, error) {
	code := strings.ToUpper(strings.TrimSpace(d.Code))
	if code == "" {
		return nil, apperrors.NewValidationError("code", "код клиента обязателен")
	}
	c := &entities.Customer{
		Code:           code,
		Name:           strings.TrimSpace(d.Name),
		Email:          d.Email,
		Phone:          d.Phone,
		TelegramChatID: d.TelegramChatID,
	}
	if err := s.customerRepo.Create(ctx, nil, c); err != nil {
		return nil, err
	}
	s.logger.Info("клиент создан", zap.Uint64("customerID", c.ID), zap.String("code", c.Code))
	return c, nil
}

func (s *CatalogService) GetCustomer(ctx context.Context, id uint64) (*entities.Customer, error) {
	return s.customerRepo.FindByID(ctx, nil, id)
}

func (s *CatalogService) CreateServiceType(ctx context.Context, d dto.CreateServiceTypeDTO) (*entities.ServiceType, error) {
	if d.BasePrice.IsNegative() {
		return nil, apperrors.NewValidationError("base_price", "базовая цена не может быть отрицательной")
	}
	if d.EstimatedHours.IsNegative() {
		return nil, apperrors.NewValidationError("estimated_hours", "оценка часов не может быть отрицательной")
	}
	st := &entities.ServiceType{
		Name:           strings.TrimSpace(d.Name),
		Code:           strings.ToUpper(strings.TrimSpace(d.Code)),
		BasePrice:      d.BasePrice,
		EstimatedHours: d.EstimatedHours,
		ServiceTypePolicy: entities.ServiceTypePolicy{
			RequiresDiagnosis: d.RequiresDiagnosis,
			RequiresApproval:  d.RequiresApproval,
			RequiresParts:     d.RequiresParts,
			AllowPhotos:       d.AllowPhotos,
		},
	}
	if err := s.serviceTypeRepo.Create(ctx, nil, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *CatalogService) ListServiceTypes(ctx context.Context) ([]*entities.ServiceType, error) {
	return s.serviceTypeRepo.GetAll(ctx)
}
