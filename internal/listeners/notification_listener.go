package listeners

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"field-service/internal/entities"
	"field-service/internal/events"
	"field-service/internal/repositories"
	"field-service/internal/services"
	"field-service/pkg/constants"
	"field-service/pkg/eventbus"
	"field-service/pkg/websocket"
)

// Broadcaster - живая лента для экранов диспетчеров.
type Broadcaster interface {
	Broadcast(messageType string, payload interface{}) error
	SendMessageToUser(userID uint64, payload interface{}, messageType string) error
}

// personalMessage - уведомление в личный websocket-канал пользователя.
type personalMessage struct {
	Template string `json:"template"`
	Text     string `json:"text"`
}

// stateTemplates: новый статус заказа -> шаблон и адресаты.
var stateTemplates = map[constants.OrderState]struct {
	template   string
	recipients []string
}{
	constants.StateAssigned:        {constants.TemplateOrderAssigned, []string{services.RecipientTechnician, services.RecipientCustomer}},
	constants.StateInProgress:      {constants.TemplateOrderStarted, []string{services.RecipientCustomer}},
	constants.StatePendingApproval: {constants.TemplateApprovalRequested, []string{services.RecipientCustomer}},
	constants.StateAccepted:        {constants.TemplateOrderAccepted, []string{services.RecipientTechnician}},
	constants.StateRejected:        {constants.TemplateOrderRejected, []string{services.RecipientTechnician, services.RecipientDispatch}},
	constants.StateDone:            {constants.TemplateOrderCompleted, []string{services.RecipientCustomer, services.RecipientDispatch}},
	constants.StateCancelled:       {constants.TemplateOrderCancelled, []string{services.RecipientTechnician, services.RecipientCustomer}},
	constants.StateDraft:           {constants.TemplateOrderReset, []string{services.RecipientDispatch}},
}

// NotificationListener превращает события после коммита в уведомления.
// Ошибки доставки логируются и не возвращаются в шину.
type NotificationListener struct {
	sender         services.NotificationSender
	broadcaster    Broadcaster
	technicianRepo repositories.TechnicianRepositoryInterface
	customerRepo   repositories.CustomerRepositoryInterface
	logger         *zap.Logger
}

func NewNotificationListener(
	sender services.NotificationSender,
	broadcaster Broadcaster,
	technicianRepo repositories.TechnicianRepositoryInterface,
	customerRepo repositories.CustomerRepositoryInterface,
	logger *zap.Logger,
) *NotificationListener {
	return &NotificationListener{
		sender:         sender,
		broadcaster:    broadcaster,
		technicianRepo: technicianRepo,
		customerRepo:   customerRepo,
		logger:         logger,
	}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.OrderStateChangedEventName, l.handleStateChanged)
	bus.Subscribe(events.OrderRescheduledEventName, l.handleRescheduled)
	bus.Subscribe(events.OrderOverdueEventName, l.handleOverdue)
	bus.Subscribe(events.OrderReminderEventName, l.handleReminder)
	bus.Subscribe(events.LowStockEventName, l.handleLowStock)
	l.logger.Info("NotificationListener подписан на события заказов и склада")
}

func (l *NotificationListener) handleStateChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.OrderStateChangedEvent)
	if !ok {
		return nil
	}
	route, ok := stateTemplates[e.To]
	if !ok {
		return nil
	}
	data := orderData(&e.Order)
	data["comment"] = e.Comment
	data["prev_state"] = e.From.String()

	l.notify(ctx, &e.Order, route.template, route.recipients, data)
	l.broadcast(&e.Order, route.template, e.From.String(), data)
	return nil
}

func (l *NotificationListener) handleRescheduled(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.OrderRescheduledEvent)
	if !ok {
		return nil
	}
	data := orderData(&e.Order)
	data["comment"] = e.Reason

	l.notify(ctx, &e.Order, constants.TemplateOrderRescheduled,
		[]string{services.RecipientTechnician, services.RecipientCustomer}, data)

	// прежний техник тоже должен узнать, что заказ у него забрали
	if e.OldTechnicianID.Valid && e.OldTechnicianID != e.Order.TechnicianID {
		if r, err := l.technicianRecipient(ctx, e.OldTechnicianID.Uint64); err == nil {
			l.send(ctx, constants.TemplateOrderRescheduled, r, data)
		}
	}
	l.broadcast(&e.Order, constants.TemplateOrderRescheduled, "", data)
	return nil
}

func (l *NotificationListener) handleOverdue(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.OrderOverdueEvent)
	if !ok {
		return nil
	}
	data := orderData(&e.Order)
	l.notify(ctx, &e.Order, constants.TemplateOrderOverdue,
		[]string{services.RecipientDispatch, services.RecipientTechnician}, data)
	l.broadcast(&e.Order, constants.TemplateOrderOverdue, "", data)
	return nil
}

func (l *NotificationListener) handleReminder(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.OrderReminderEvent)
	if !ok {
		return nil
	}
	l.notify(ctx, &e.Order, constants.TemplateOrderReminder, []string{services.RecipientTechnician}, orderData(&e.Order))
	return nil
}

func (l *NotificationListener) handleLowStock(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.LowStockEvent)
	if !ok {
		return nil
	}
	data := map[string]string{
		"product":   e.Product.Name,
		"sku":       e.Product.SKU,
		"quantity":  e.Product.Quantity.String(),
		"threshold": e.Product.AlertThreshold.String(),
		"operation": string(e.Operation),
	}
	l.send(ctx, constants.TemplateLowStock, services.Recipient{Kind: services.RecipientDispatch}, data)
	if l.broadcaster != nil {
		if err := l.broadcaster.Broadcast(constants.TemplateLowStock, data); err != nil {
			l.logger.Warn("не удалось отправить событие в websocket", zap.Error(err))
		}
	}
	return nil
}

func orderData(o *entities.ServiceOrder) map[string]string {
	data := map[string]string{
		"order":         o.Name,
		"state":         o.State.String(),
		"total":         o.TotalAmount.StringFixed(2),
		"invoice_total": o.InvoiceTotal().StringFixed(2),
		"diagnosis":     o.Diagnosis.String,
		"technician":    "не назначен",
		"scheduled_at":  "не указана",
	}
	if o.ScheduledAt.Valid {
		data["scheduled_at"] = o.ScheduledAt.Time.Format("02.01.2006 15:04")
	}
	return data
}

// notify определяет адресатов заказа и отправляет каждому.
func (l *NotificationListener) notify(ctx context.Context, order *entities.ServiceOrder, templateID string, kinds []string, data map[string]string) {
	var tech *services.Recipient
	if order.TechnicianID.Valid {
		if r, err := l.technicianRecipient(ctx, order.TechnicianID.Uint64); err == nil {
			tech = &r
			data["technician"] = r.Name
		}
	}

	for _, kind := range kinds {
		switch kind {
		case services.RecipientTechnician:
			if tech != nil {
				l.send(ctx, templateID, *tech, data)
			}
		case services.RecipientCustomer:
			customer, err := l.customerRepo.FindByID(ctx, nil, order.CustomerID)
			if err != nil {
				l.logger.Warn("клиент для уведомления не найден", zap.Uint64("customerID", order.CustomerID), zap.Error(err))
				continue
			}
			l.send(ctx, templateID, services.Recipient{
				Kind:           services.RecipientCustomer,
				ID:             customer.ID,
				Name:           customer.Name,
				TelegramChatID: customer.TelegramChatID,
			}, data)
		case services.RecipientDispatch:
			l.send(ctx, templateID, services.Recipient{Kind: services.RecipientDispatch}, data)
		}
	}
}

func (l *NotificationListener) technicianRecipient(ctx context.Context, id uint64) (services.Recipient, error) {
	tech, err := l.technicianRepo.FindByID(ctx, nil, id)
	if err != nil {
		l.logger.Warn("техник для уведомления не найден", zap.Uint64("technicianID", id), zap.Error(err))
		return services.Recipient{}, err
	}
	return services.Recipient{
		Kind:           services.RecipientTechnician,
		ID:             tech.ID,
		Name:           tech.Name,
		TelegramChatID: tech.TelegramChatID,
		UserID:         tech.UserID,
	}, nil
}

func (l *NotificationListener) send(ctx context.Context, templateID string, r services.Recipient, data map[string]string) {
	if r.UserID.Valid && l.broadcaster != nil {
		if text, err := services.RenderNotification(templateID, data); err == nil {
			if err := l.broadcaster.SendMessageToUser(r.UserID.Uint64, personalMessage{Template: templateID, Text: text}, "notification"); err != nil {
				l.logger.Warn("не удалось отправить личное сообщение", zap.Uint64("userID", r.UserID.Uint64), zap.Error(err))
			}
		}
	}

	err := l.sender.Send(ctx, services.Notification{Template: templateID, Recipient: r, Data: data})
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("template", templateID),
		zap.String("recipientKind", r.Kind),
		zap.Uint64("recipientID", r.ID),
		zap.Error(err),
	}
	if errors.Is(err, context.DeadlineExceeded) {
		l.logger.Warn("уведомление не доставлено: таймаут", fields...)
		return
	}
	l.logger.Error("не удалось отправить уведомление", fields...)
}

func (l *NotificationListener) broadcast(order *entities.ServiceOrder, templateID, prevState string, data map[string]string) {
	if l.broadcaster == nil {
		return
	}
	text, err := services.RenderNotification(templateID, data)
	if err != nil {
		l.logger.Warn("не удалось сформировать текст для websocket", zap.Error(err))
	}
	payload := websocket.OrderEventPayload{
		OrderID:   order.ID,
		Name:      order.Name,
		Template:  templateID,
		State:     order.State.String(),
		PrevState: prevState,
		Message:   text,
	}
	if order.TechnicianID.Valid {
		id := order.TechnicianID.Uint64
		payload.TechnicianID = &id
	}
	if order.ScheduledAt.Valid {
		at := order.ScheduledAt.Time.In(time.UTC)
		payload.ScheduledAt = &at
	}
	if err := l.broadcaster.Broadcast("order_event", payload); err != nil {
		l.logger.Warn("не удалось отправить событие в websocket", zap.Uint64("orderID", order.ID), zap.Error(err))
	}
}
