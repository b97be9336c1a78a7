package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product - товар с управляемым остатком. Quantity меняется только через журнал остатков.
type Product struct {
	ID             uint64          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	SKU            string          `json:"sku" db:"sku"`
	ListPrice      decimal.Decimal `json:"list_price" db:"list_price"`
	Quantity       decimal.Decimal `json:"quantity" db:"quantity"`
	AlertThreshold decimal.Decimal `json:"alert_threshold" db:"alert_threshold"`
	Active         bool            `json:"active" db:"active"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

func (p *Product) IsLow() bool {
	return p.Quantity.LessThanOrEqual(p.AlertThreshold)
}
