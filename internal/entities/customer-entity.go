package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

type Customer struct {
	ID             uint64      `json:"id" db:"id"`
	Code           string      `json:"code" db:"code"`
	Name           string      `json:"name" db:"name"`
	Email          null.String `json:"email" db:"email"`
	Phone          null.String `json:"phone" db:"phone"`
	TelegramChatID null.Int64  `json:"telegram_chat_id" db:"telegram_chat_id"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}
