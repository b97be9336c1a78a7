package dto

import "github.com/aarondl/null/v8"

type UpsertTechnicianDTO struct {
	UserID         null.Uint64 `json:"user_id"`
	Name           string      `json:"name" validate:"required,max=200"`
	Phone          null.String `json:"phone" validate:"omitempty,max=32"`
	TelegramChatID null.Int64  `json:"telegram_chat_id"`
	IsTechnician   *bool       `json:"is_technician"`
	AvailableHours string      `json:"available_hours" validate:"omitempty,hour_ranges"`
	MaxDailyOrders null.Int    `json:"max_daily_orders"`
	WarehouseID    null.Uint64 `json:"warehouse_id"`
	Specialties    []string    `json:"specialties"`
	Active         *bool       `json:"active"`
}

type TechnicianWorkloadDTO struct {
	TechnicianID uint64         `json:"technician_id"`
	Name         string         `json:"name"`
	ByState      map[string]int `json:"by_state"`
	Active       int            `json:"active"`
	Total        int            `json:"total"`
}
