package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"

	"field-service/pkg/constants"
	"field-service/pkg/types"
)

type ServiceOrder struct {
	ID            uint64               `json:"id" db:"id"`
	Name          string               `json:"name" db:"name"`
	CustomerID    uint64               `json:"customer_id" db:"customer_id"`
	EquipmentID   uint64               `json:"equipment_id" db:"equipment_id"`
	ServiceTypeID uint64               `json:"service_type_id" db:"service_type_id"`
	TechnicianID  null.Uint64          `json:"technician_id" db:"technician_id"`
	State         constants.OrderState `json:"state" db:"state"`
	Priority      constants.Priority   `json:"priority" db:"priority"`

	ScheduledAt null.Time `json:"scheduled_at" db:"scheduled_at"`
	StartedAt   null.Time `json:"started_at" db:"started_at"`
	EndedAt     null.Time `json:"ended_at" db:"ended_at"`

	ReportedFault   string      `json:"reported_fault" db:"reported_fault"`
	Diagnosis       null.String `json:"diagnosis" db:"diagnosis"`
	WorkPerformed   null.String `json:"work_performed" db:"work_performed"`
	RejectionReason null.String `json:"rejection_reason" db:"rejection_reason"`
	PhotoBefore     null.String `json:"photo_before" db:"photo_before"`
	PhotoAfter      null.String `json:"photo_after" db:"photo_after"`

	LaborHours  decimal.Decimal `json:"labor_hours" db:"labor_hours"`
	LaborPrice  decimal.Decimal `json:"labor_price" db:"labor_price"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`

	InvoiceID       null.Uint64 `json:"invoice_id" db:"invoice_id"`
	JournalEntryID  null.Uint64 `json:"journal_entry_id" db:"journal_entry_id"`
	OverdueNotified bool        `json:"overdue_notified" db:"overdue_notified"`

	types.BaseEntity
}

// IsOverdue вычисляется при чтении, в БД хранится только флаг уведомления.
func (o *ServiceOrder) IsOverdue(now time.Time) bool {
	return o.ScheduledAt.Valid && o.ScheduledAt.Time.Before(now) && !o.State.IsTerminal()
}

func (o *ServiceOrder) LaborTotal() decimal.Decimal {
	return o.LaborHours.Mul(o.LaborPrice)
}

// InvoiceTotal - сумма к оплате: запчасти и базовая цена плюс работа.
func (o *ServiceOrder) InvoiceTotal() decimal.Decimal {
	return o.TotalAmount.Add(o.LaborTotal())
}

// DurationHours - фактическая длительность работ в часах, 0 если работы не завершены.
func (o *ServiceOrder) DurationHours() float64 {
	if !o.StartedAt.Valid || !o.EndedAt.Valid {
		return 0
	}
	return o.EndedAt.Time.Sub(o.StartedAt.Time).Hours()
}
