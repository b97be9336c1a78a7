package entities

import (
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
)

const (
	WarrantyValid   = "valid"
	WarrantyExpired = "expired"
	WarrantyUnknown = "unknown"
)

type Equipment struct {
	ID             uint64      `json:"id" db:"id"`
	CustomerID     uint64      `json:"customer_id" db:"customer_id"`
	Name           string      `json:"name" db:"name"`
	EquipmentType  string      `json:"equipment_type" db:"equipment_type"`
	Brand          string      `json:"brand" db:"brand"`
	Model          string      `json:"model" db:"model"`
	SerialNumber   string      `json:"serial_number" db:"serial_number"`
	WarrantyExpiry null.Time   `json:"warranty_expiry" db:"warranty_expiry"`
	Location       null.String `json:"location" db:"location"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

func (e *Equipment) WarrantyStatus(now time.Time) string {
	if !e.WarrantyExpiry.Valid {
		return WarrantyUnknown
	}
	if e.WarrantyExpiry.Time.Before(now) {
		return WarrantyExpired
	}
	return WarrantyValid
}

// QRToken - текст, кодируемый в QR-этикетку оборудования.
func (e *Equipment) QRToken(customerCode string) string {
	return fmt.Sprintf("%s-%s", customerCode, e.Name)
}
