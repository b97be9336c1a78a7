package events

import (
	"github.com/aarondl/null/v8"

	"field-service/internal/entities"
	"field-service/pkg/constants"
)

const (
	OrderStateChangedEventName = "order.state_changed"
	OrderRescheduledEventName  = "order.rescheduled"
	OrderOverdueEventName      = "order.overdue"
	OrderReminderEventName     = "order.reminder"
	LowStockEventName          = "stock.low"
)

// OrderStateChangedEvent публикуется после коммита каждого перехода статуса.
type OrderStateChangedEvent struct {
	Order   entities.ServiceOrder
	From    constants.OrderState
	To      constants.OrderState
	Actor   entities.Actor
	Comment string
}

func (e OrderStateChangedEvent) Name() string { return OrderStateChangedEventName }

// OrderRescheduledEvent - перенос даты и/или смена техника.
type OrderRescheduledEvent struct {
	Order           entities.ServiceOrder
	OldScheduledAt  null.Time
	OldTechnicianID null.Uint64
	Reason          string
	// Automatic - перенос из-за нехватки запчастей при согласовании.
	Automatic bool
	Actor     entities.Actor
}

func (e OrderRescheduledEvent) Name() string { return OrderRescheduledEventName }

type OrderOverdueEvent struct {
	Order entities.ServiceOrder
}

func (e OrderOverdueEvent) Name() string { return OrderOverdueEventName }

type OrderReminderEvent struct {
	Order entities.ServiceOrder
}

func (e OrderReminderEvent) Name() string { return OrderReminderEventName }

type LowStockEvent struct {
	Product   entities.Product
	Operation constants.LedgerOperation
}

func (e LowStockEvent) Name() string { return LowStockEventName }
