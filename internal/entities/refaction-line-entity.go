package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefactionLine - запчасть/расходник в заказе. Удаляется вместе с заказом.
type RefactionLine struct {
	ID          uint64          `json:"id" db:"id"`
	OrderID     uint64          `json:"order_id" db:"order_id"`
	ProductID   uint64          `json:"product_id" db:"product_id"`
	Description string          `json:"description" db:"description"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal" db:"subtotal"`

	// ReservedQty > 0 означает, что остаток уже списан при резервировании.
	ReservedQty decimal.Decimal `json:"reserved_qty" db:"reserved_qty"`
	Consumed    bool            `json:"consumed" db:"consumed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (l *RefactionLine) ComputeSubtotal() decimal.Decimal {
	l.Subtotal = l.Quantity.Mul(l.UnitPrice)
	return l.Subtotal
}

func (l RefactionLine) IsReserved() bool {
	return l.ReservedQty.IsPositive()
}
