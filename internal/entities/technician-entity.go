package entities

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
)

var hourRangesPattern = regexp.MustCompile(`^(\d{1,2}-\d{1,2})(,\d{1,2}-\d{1,2})*$`)

// HourRange - полуинтервал [Start, End) в целых часах.
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r HourRange) Contains(hour int) bool {
	return r.Start <= hour && hour < r.End
}

// ParseHourRanges разбирает строку вида "9-13,14-18".
// Пустая строка - ограничений нет, возвращается nil.
func ParseHourRanges(raw string) ([]HourRange, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if raw == "" {
		return nil, nil
	}
	if !hourRangesPattern.MatchString(raw) {
		return nil, fmt.Errorf("неверный формат часов %q, ожидается \"9-13,14-18\"", raw)
	}

	parts := strings.Split(raw, ",")
	ranges := make([]HourRange, 0, len(parts))
	for _, part := range parts {
		bounds := strings.SplitN(part, "-", 2)
		start, _ := strconv.Atoi(bounds[0])
		end, _ := strconv.Atoi(bounds[1])
		if start < 0 || end > 24 || start >= end {
			return nil, fmt.Errorf("неверный интервал %q: требуется 0 <= начало < конец <= 24", part)
		}
		ranges = append(ranges, HourRange{Start: start, End: end})
	}
	return ranges, nil
}

type Technician struct {
	ID             uint64      `json:"id" db:"id"`
	UserID         null.Uint64 `json:"user_id" db:"user_id"`
	Name           string      `json:"name" db:"name"`
	Phone          null.String `json:"phone" db:"phone"`
	TelegramChatID null.Int64  `json:"telegram_chat_id" db:"telegram_chat_id"`
	IsTechnician   bool        `json:"is_technician" db:"is_technician"`
	AvailableHours string      `json:"available_hours" db:"available_hours"`
	// MaxDailyOrders не задан - берётся значение по умолчанию из конфигурации.
	MaxDailyOrders null.Int    `json:"max_daily_orders" db:"max_daily_orders"`
	WarehouseID    null.Uint64 `json:"warehouse_id" db:"warehouse_id"`
	Specialties    []string    `json:"specialties" db:"specialties"`
	Active         bool        `json:"active" db:"active"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// WorksAt проверяет, попадает ли час в рабочие окна техника.
// Без настроенных окон техник доступен в любой час.
func (t *Technician) WorksAt(hour int) (bool, error) {
	ranges, err := ParseHourRanges(t.AvailableHours)
	if err != nil {
		return false, err
	}
	if len(ranges) == 0 {
		return true, nil
	}
	for _, r := range ranges {
		if r.Contains(hour) {
			return true, nil
		}
	}
	return false, nil
}

func (t *Technician) DailyLimit(fallback int) int {
	if t.MaxDailyOrders.Valid {
		return t.MaxDailyOrders.Int
	}
	return fallback
}
