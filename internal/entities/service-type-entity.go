package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceTypePolicy - требования вида услуги, которые проверяет автомат состояний.
type ServiceTypePolicy struct {
	RequiresDiagnosis bool `json:"requires_diagnosis" db:"requires_diagnosis"`
	RequiresApproval  bool `json:"requires_approval" db:"requires_approval"`
	RequiresParts     bool `json:"requires_parts" db:"requires_parts"`
	AllowPhotos       bool `json:"allow_photos" db:"allow_photos"`
}

type ServiceType struct {
	ID             uint64          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Code           string          `json:"code" db:"code"`
	BasePrice      decimal.Decimal `json:"base_price" db:"base_price"`
	EstimatedHours decimal.Decimal `json:"estimated_hours" db:"estimated_hours"`
	ServiceTypePolicy
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
