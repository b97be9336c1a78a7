package constants

// OrderState - статус сервисного заказа. Значения совпадают с кодами в БД.
type OrderState string

const (
	StateDraft           OrderState = "draft"
	StateAssigned        OrderState = "assigned"
	StateInProgress      OrderState = "in_progress"
	StatePendingApproval OrderState = "pending_approval"
	StateAccepted        OrderState = "accepted"
	StateRejected        OrderState = "rejected"
	StateDone            OrderState = "done"
	StateCancelled       OrderState = "cancelled"
)

// AllStates в порядке жизненного цикла.
var AllStates = []OrderState{
	StateDraft,
	StateAssigned,
	StateInProgress,
	StatePendingApproval,
	StateAccepted,
	StateRejected,
	StateDone,
	StateCancelled,
}

// NonTerminalStates - статусы, в которых заказ занимает слот техника.
var NonTerminalStates = []OrderState{
	StateDraft,
	StateAssigned,
	StateInProgress,
	StatePendingApproval,
	StateAccepted,
	StateRejected,
}

func (s OrderState) String() string { return string(s) }

func (s OrderState) IsTerminal() bool {
	return s == StateDone || s == StateCancelled
}

func (s OrderState) IsValid() bool {
	for _, st := range AllStates {
		if st == s {
			return true
		}
	}
	return false
}

// Progress - процент выполнения для экрана статуса.
func (s OrderState) Progress() int {
	switch s {
	case StateDraft:
		return 0
	case StateAssigned:
		return 20
	case StateInProgress:
		return 50
	case StatePendingApproval:
		return 65
	case StateAccepted:
		return 80
	case StateRejected, StateDone:
		return 100
	default:
		return 0
	}
}

// Priority заказа
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
