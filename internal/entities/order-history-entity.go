package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

type OrderHistory struct {
	ID        uint64      `json:"id" db:"id"`
	OrderID   uint64      `json:"order_id" db:"order_id"`
	UserID    uint64      `json:"user_id" db:"user_id"`
	EventType string      `json:"event_type" db:"event_type"`
	OldValue  null.String `json:"old_value" db:"old_value"`
	NewValue  null.String `json:"new_value" db:"new_value"`
	Comment   null.String `json:"comment" db:"comment"`
	TxID      uuid.UUID   `json:"tx_id" db:"tx_id"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
