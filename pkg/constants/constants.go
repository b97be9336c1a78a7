package constants

//============== STOCK LEDGER ==============

// LedgerOperation - вид операции, изменившей управляемый остаток товара.
type LedgerOperation string

const (
	LedgerCreate        LedgerOperation = "CREATE"
	LedgerUpdate        LedgerOperation = "UPDATE"
	LedgerReserve       LedgerOperation = "RESERVE"
	LedgerConsume       LedgerOperation = "CONSUME"
	LedgerCancelReserve LedgerOperation = "CANCEL_RESERVE"
	LedgerRestore       LedgerOperation = "RESTORE"
	LedgerAdjust        LedgerOperation = "ADJUST"
	LedgerEntry         LedgerOperation = "ENTRY"
	LedgerExit          LedgerOperation = "EXIT"
	LedgerCount         LedgerOperation = "COUNT"
)

//============== ORDER HISTORY ==============

const (
	HistoryCreate       = "CREATE"
	HistoryStatusChange = "STATUS_CHANGE"
	HistoryAssign       = "ASSIGN"
	HistoryReschedule   = "RESCHEDULE"
	HistoryLineAdd      = "LINE_ADD"
	HistoryLineUpdate   = "LINE_UPDATE"
	HistoryLineRemove   = "LINE_REMOVE"
	HistoryServiceType  = "SERVICE_TYPE"
	HistoryPhoto        = "PHOTO"
	HistoryInvoice      = "INVOICE"
	HistoryJournal      = "JOURNAL"
	HistoryOverdue      = "OVERDUE"
	HistoryComment      = "COMMENT"
)

//============== NOTIFICATION TEMPLATES ==============

const (
	TemplateOrderAssigned     = "order_assigned"
	TemplateOrderStarted      = "order_started"
	TemplateApprovalRequested = "approval_requested"
	TemplateOrderAccepted     = "order_accepted"
	TemplateOrderRejected     = "order_rejected"
	TemplateOrderCompleted    = "order_completed"
	TemplateOrderCancelled    = "order_cancelled"
	TemplateOrderReset        = "order_reset"
	TemplateOrderRescheduled  = "order_rescheduled"
	TemplateOrderOverdue      = "order_overdue"
	TemplateOrderReminder     = "order_reminder"
	TemplateLowStock          = "low_stock"
)

//============== ROLES ==============

const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
	RoleTechnician = "technician"
	RoleCustomer   = "customer"
	RoleSystem     = "system"
)

//============== UPLOAD CONTEXTS ==============

// PhotoKind - какое фото заказа загружается.
type PhotoKind string

const (
	PhotoBefore PhotoKind = "before"
	PhotoAfter  PhotoKind = "after"
)

func (k PhotoKind) IsValid() bool {
	return k == PhotoBefore || k == PhotoAfter
}
