package websocket

import "time"

// Envelope - конверт сообщения: тип подсказывает клиенту, как обработать payload.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderEventPayload - изменение заказа для экрана диспетчера.
type OrderEventPayload struct {
	OrderID      uint64     `json:"order_id"`
	Name         string     `json:"name"`
	Template     string     `json:"template"`
	State        string     `json:"state"`
	PrevState    string     `json:"prev_state,omitempty"`
	TechnicianID *uint64    `json:"technician_id,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	Message      string     `json:"message"`
}
