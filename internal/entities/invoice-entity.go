package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceLine struct {
	ProductID   uint64          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type Invoice struct {
	ID         uint64          `json:"id" db:"id"`
	OrderID    uint64          `json:"order_id" db:"order_id"`
	CustomerID uint64          `json:"customer_id" db:"customer_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Posted     bool            `json:"posted" db:"posted"`
	Lines      []InvoiceLine   `json:"lines" db:"-"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type JournalEntry struct {
	ID            uint64          `json:"id" db:"id"`
	OrderID       uint64          `json:"order_id" db:"order_id"`
	DebitAccount  string          `json:"debit_account" db:"debit_account"`
	CreditAccount string          `json:"credit_account" db:"credit_account"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
