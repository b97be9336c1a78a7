package dto

import (
	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type CreateCustomerDTO struct {
	Code           string      `json:"code" validate:"required,max=32"`
	Name           string      `json:"name" validate:"required,max=200"`
	Email          null.String `json:"email" validate:"omitempty,email"`
	Phone          null.String `json:"phone" validate:"omitempty,max=32"`
	TelegramChatID null.Int64  `json:"telegram_chat_id"`
}

type CreateServiceTypeDTO struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Code              string          `json:"code" validate:"required,max=32"`
	BasePrice         decimal.Decimal `json:"base_price" validate:"nonneg_decimal"`
	EstimatedHours    decimal.Decimal `json:"estimated_hours" validate:"nonneg_decimal"`
	RequiresDiagnosis bool            `json:"requires_diagnosis"`
	RequiresApproval  bool            `json:"requires_approval"`
	RequiresParts     bool            `json:"requires_parts"`
	AllowPhotos       bool            `json:"allow_photos"`
}
