package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"

	"field-service/pkg/constants"
)

// StockLedgerEntry - неизменяемая запись журнала, одна на каждое изменение остатка.
type StockLedgerEntry struct {
	ID               uint64                    `json:"id" db:"id"`
	ProductID        uint64                    `json:"product_id" db:"product_id"`
	PreviousQuantity decimal.Decimal           `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      decimal.Decimal           `json:"new_quantity" db:"new_quantity"`
	Operation        constants.LedgerOperation `json:"operation" db:"operation"`
	OrderID          null.Uint64               `json:"order_id" db:"order_id"`
	LineID           null.Uint64               `json:"line_id" db:"line_id"`
	UserID           uint64                    `json:"user_id" db:"user_id"`
	Note             null.String               `json:"note" db:"note"`
	CreatedAt        time.Time                 `json:"created_at" db:"created_at"`
}

func (e *StockLedgerEntry) Delta() decimal.Decimal {
	return e.NewQuantity.Sub(e.PreviousQuantity)
}

// StockMovement - перемещение со склада техника (виртуального склада) к клиенту.
type StockMovement struct {
	ID          uint64          `json:"id" db:"id"`
	WarehouseID uint64          `json:"warehouse_id" db:"warehouse_id"`
	ProductID   uint64          `json:"product_id" db:"product_id"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	OrderID     uint64          `json:"order_id" db:"order_id"`
	Reference   string          `json:"reference" db:"reference"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
