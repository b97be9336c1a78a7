package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"field-service/pkg/constants"
	"field-service/pkg/telegram"
)

const (
	RecipientTechnician = "technician"
	RecipientCustomer   = "customer"
	RecipientDispatch   = "dispatch"
)

// Recipient - адресат уведомления.
type Recipient struct {
	Kind           string
	ID             uint64
	Name           string
	TelegramChatID null.Int64
	// UserID - учётная запись, если адресат работает в системе (личные websocket-сообщения).
	UserID null.Uint64
}

// Notification - шаблон, адресат и данные для подстановки.
type Notification struct {
	Template  string
	Recipient Recipient
	Data      map[string]string
}

// NotificationSender доставляет уведомления. Ошибки доставки не влияют на бизнес-операцию.
type NotificationSender interface {
	Send(ctx context.Context, n Notification) error
}

var notificationTemplates = template.Must(template.New("notifications").Parse(`
{{define "order_assigned"}}Заказ {{.order}} назначен технику {{.technician}} на {{.scheduled_at}}.{{end}}
{{define "order_started"}}По заказу {{.order}} начаты работы.{{end}}
{{define "approval_requested"}}По заказу {{.order}} требуется согласование. Диагноз: {{.diagnosis}}. Сумма: {{.total}}.{{end}}
{{define "order_accepted"}}Клиент согласовал заказ {{.order}}.{{end}}
{{define "order_rejected"}}Клиент отказался от заказа {{.order}}. Причина: {{.comment}}.{{end}}
{{define "order_completed"}}Заказ {{.order}} выполнен. Сумма к оплате: {{.invoice_total}}.{{end}}
{{define "order_cancelled"}}Заказ {{.order}} отменён. {{.comment}}{{end}}
{{define "order_reset"}}Заказ {{.order}} возвращён в черновик.{{end}}
{{define "order_rescheduled"}}Заказ {{.order}} перенесён на {{.scheduled_at}}, техник {{.technician}}. Причина: {{.comment}}.{{end}}
{{define "order_overdue"}}Заказ {{.order}} просрочен: выезд был назначен на {{.scheduled_at}}.{{end}}
{{define "order_reminder"}}Напоминание: завтра {{.scheduled_at}} выезд по заказу {{.order}}.{{end}}
{{define "low_stock"}}Остаток товара {{.product}} ({{.sku}}) снизился до {{.quantity}}, порог {{.threshold}}.{{end}}
`))

// RenderNotification подставляет данные в шаблон уведомления.
func RenderNotification(templateID string, data map[string]string) (string, error) {
	if notificationTemplates.Lookup(templateID) == nil {
		return "", fmt.Errorf("неизвестный шаблон уведомления %q", templateID)
	}
	var buf bytes.Buffer
	if err := notificationTemplates.ExecuteTemplate(&buf, templateID, data); err != nil {
		return "", fmt.Errorf("ошибка шаблона %q: %w", templateID, err)
	}
	return buf.String(), nil
}

// LogNotificationSender пишет уведомления в лог. Используется, когда внешние каналы не настроены.
type LogNotificationSender struct {
	logger *zap.Logger
}

func NewLogNotificationSender(logger *zap.Logger) *LogNotificationSender {
	return &LogNotificationSender{logger: logger}
}

func (s *LogNotificationSender) Send(_ context.Context, n Notification) error {
	text, err := RenderNotification(n.Template, n.Data)
	if err != nil {
		return err
	}
	s.logger.Info("уведомление",
		zap.String("template", n.Template),
		zap.String("recipientKind", n.Recipient.Kind),
		zap.Uint64("recipientID", n.Recipient.ID),
		zap.String("text", text),
	)
	return nil
}

const maxTelegramRetryWait = 30 * time.Second

// TelegramNotificationSender отправляет в личный чат адресата, диспетчерские - в общий чат.
type TelegramNotificationSender struct {
	client         telegram.ServiceInterface
	dispatchChatID int64
	logger         *zap.Logger
}

func NewTelegramNotificationSender(client telegram.ServiceInterface, dispatchChatID int64, logger *zap.Logger) *TelegramNotificationSender {
	return &TelegramNotificationSender{client: client, dispatchChatID: dispatchChatID, logger: logger}
}

func (s *TelegramNotificationSender) Send(ctx context.Context, n Notification) error {
	chatID := int64(0)
	if n.Recipient.TelegramChatID.Valid {
		chatID = n.Recipient.TelegramChatID.Int64
	} else if n.Recipient.Kind == RecipientDispatch {
		chatID = s.dispatchChatID
	}
	if chatID == 0 {
		return nil
	}

	text, err := RenderNotification(n.Template, n.Data)
	if err != nil {
		return err
	}
	if n.Template == constants.TemplateOrderOverdue || n.Template == constants.TemplateLowStock {
		text = "⚠️ " + text
	}

	err = s.client.SendMessage(ctx, chatID, text)
	var apiErr *telegram.APIError
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 || apiErr.RetryAfter > maxTelegramRetryWait {
		return err
	}
	// Bot API ограничил частоту, одна повторная попытка после паузы
	s.logger.Warn("Telegram: превышен лимит, повтор", zap.Duration("retryAfter", apiErr.RetryAfter), zap.Int64("chatID", chatID))
	timer := time.NewTimer(apiErr.RetryAfter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	return s.client.SendMessage(ctx, chatID, text)
}

// MultiNotificationSender рассылает по всем каналам, ошибки каналов объединяются.
type MultiNotificationSender struct {
	senders []NotificationSender
}

func NewMultiNotificationSender(senders ...NotificationSender) *MultiNotificationSender {
	return &MultiNotificationSender{senders: senders}
}

func (m *MultiNotificationSender) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, sender := range m.senders {
		if err := sender.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
