package dto

import (
	"time"

	"github.com/aarondl/null/v8"
)

type CreateEquipmentDTO struct {
	CustomerID     uint64      `json:"customer_id" validate:"required"`
	Name           string      `json:"name" validate:"required,max=200"`
	EquipmentType  string      `json:"equipment_type" validate:"max=100"`
	Brand          string      `json:"brand" validate:"max=100"`
	Model          string      `json:"model" validate:"max=100"`
	SerialNumber   string      `json:"serial_number" validate:"required,max=100"`
	WarrantyExpiry null.Time   `json:"warranty_expiry"`
	Location       null.String `json:"location" validate:"omitempty,max=300"`
}

type WarrantyDTO struct {
	EquipmentID uint64    `json:"equipment_id"`
	Status      string    `json:"status"`
	Expiry      null.Time `json:"expiry"`
	CheckedAt   time.Time `json:"checked_at"`
}

type EquipmentImportResultDTO struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
