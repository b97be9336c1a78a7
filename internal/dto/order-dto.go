package dto

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"

	"field-service/internal/entities"
	"field-service/pkg/constants"
)

type CreateServiceOrderDTO struct {
	CustomerID    uint64          `json:"customer_id" validate:"required"`
	EquipmentID   uint64          `json:"equipment_id" validate:"required"`
	ServiceTypeID uint64          `json:"service_type_id" validate:"required"`
	ReportedFault string          `json:"reported_fault" validate:"required,max=2000"`
	Priority      string          `json:"priority" validate:"omitempty,order_priority"`
	ScheduledAt   null.Time       `json:"scheduled_at"`
	TechnicianID  null.Uint64     `json:"technician_id"`
	LaborHours    decimal.Decimal `json:"labor_hours" validate:"nonneg_decimal"`
	LaborPrice    decimal.Decimal `json:"labor_price" validate:"nonneg_decimal"`
}

type AssignTechnicianDTO struct {
	// Не указан - техник выбирается автоматически.
	TechnicianID null.Uint64 `json:"technician_id"`
}

type RequestApprovalDTO struct {
	Diagnosis string `json:"diagnosis" validate:"max=4000"`
}

type RejectOrderDTO struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type CompleteServiceDTO struct {
	WorkPerformed string `json:"work_performed" validate:"max=4000"`
}

type CancelOrderDTO struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type RescheduleDTO struct {
	NewDate               time.Time   `json:"new_date" validate:"required"`
	TechnicianID          null.Uint64 `json:"technician_id"`
	KeepCurrentTechnician bool        `json:"keep_current_technician"`
	Reason                string      `json:"reason" validate:"max=2000"`
}

type LineItemDTO struct {
	ProductID   uint64              `json:"product_id" validate:"required"`
	Description string              `json:"description" validate:"max=500"`
	Quantity    decimal.Decimal     `json:"quantity" validate:"positive_decimal"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
}

type UpdateLineDTO struct {
	Quantity    decimal.NullDecimal `json:"quantity"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	Description null.String         `json:"description" validate:"omitempty,max=500"`
}

type CompleteWithPartsDTO struct {
	Diagnosis     string        `json:"diagnosis" validate:"max=4000"`
	WorkPerformed string        `json:"work_performed" validate:"max=4000"`
	Lines         []LineItemDTO `json:"lines" validate:"dive"`
}

type ChangeServiceTypeDTO struct {
	ServiceTypeID uint64 `json:"service_type_id" validate:"required"`
}

// OrderStatusDTO - лёгкая проекция для опроса статуса (кешируется в Redis).
type OrderStatusDTO struct {
	OrderID         uint64               `json:"order_id"`
	Name            string               `json:"name"`
	State           constants.OrderState `json:"state"`
	TechnicianID    null.Uint64          `json:"technician_id"`
	TechnicianName  string               `json:"technician_name,omitempty"`
	ScheduledAt     null.Time            `json:"scheduled_at"`
	Total           decimal.Decimal      `json:"total"`
	ProgressPercent int                  `json:"progress_percent"`
	IsOverdue       bool                 `json:"is_overdue"`
}

type OrderDetailsDTO struct {
	Order         *entities.ServiceOrder    `json:"order"`
	Lines         []*entities.RefactionLine `json:"lines"`
	LaborTotal    decimal.Decimal           `json:"labor_total"`
	InvoiceTotal  decimal.Decimal           `json:"invoice_total"`
	IsOverdue     bool                      `json:"is_overdue"`
	DurationHours float64                   `json:"duration_hours"`
}
