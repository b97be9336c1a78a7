package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-service/pkg/constants"
	"field-service/pkg/telegram"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeTelegram struct {
	sent     []sentMessage
	err      error
	failOnce error
	attempts int
}

func (f *fakeTelegram) SendMessage(_ context.Context, chatID int64, text string) error {
	f.attempts++
	if f.failOnce != nil {
		err := f.failOnce
		f.failOnce = nil
		return err
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeTelegram) SendMessageEx(ctx context.Context, chatID int64, text string, _ ...telegram.MessageOption) error {
	return f.SendMessage(ctx, chatID, text)
}

func TestRenderNotification(t *testing.T) {
	text, err := RenderNotification(constants.TemplateOrderAssigned, map[string]string{
		"order": "OS00007", "technician": "Иван", "scheduled_at": "10.03.2026 10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Заказ OS00007 назначен технику Иван на 10.03.2026 10:00.", text)

	_, err = RenderNotification("unknown", nil)
	assert.Error(t, err)
}

func TestTelegramNotificationSender(t *testing.T) {
	client := &fakeTelegram{}
	sender := NewTelegramNotificationSender(client, -100500, zap.NewNop())
	ctx := context.Background()

	personal := Notification{
		Template:  constants.TemplateOrderReminder,
		Recipient: Recipient{Kind: RecipientTechnician, TelegramChatID: null.Int64From(42)},
		Data:      map[string]string{"order": "OS00001", "scheduled_at": "10.03.2026 10:00"},
	}
	require.NoError(t, sender.Send(ctx, personal))

	dispatch := Notification{
		Template:  constants.TemplateLowStock,
		Recipient: Recipient{Kind: RecipientDispatch},
		Data:      map[string]string{"product": "Фильтр", "sku": "FLT", "quantity": "2", "threshold": "2"},
	}
	require.NoError(t, sender.Send(ctx, dispatch))

	noChat := Notification{Template: constants.TemplateOrderStarted, Recipient: Recipient{Kind: RecipientCustomer}}
	require.NoError(t, sender.Send(ctx, noChat))

	require.Len(t, client.sent, 2)
	assert.Equal(t, int64(42), client.sent[0].chatID)
	assert.True(t, strings.HasPrefix(client.sent[0].text, "Напоминание"))
	assert.Equal(t, int64(-100500), client.sent[1].chatID)
	assert.True(t, strings.HasPrefix(client.sent[1].text, "⚠️ "), "предупреждения выделяются")
}

func TestMultiNotificationSender(t *testing.T) {
	failing := &fakeTelegram{err: errors.New("bot api недоступен")}
	working := &fakeTelegram{}
	multi := NewMultiNotificationSender(
		NewLogNotificationSender(zap.NewNop()),
		NewTelegramNotificationSender(failing, 1, zap.NewNop()),
		NewTelegramNotificationSender(working, 2, zap.NewNop()),
	)

	err := multi.Send(context.Background(), Notification{
		Template:  constants.TemplateOrderReset,
		Recipient: Recipient{Kind: RecipientDispatch},
		Data:      map[string]string{"order": "OS00003"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot api недоступен")
	require.Len(t, working.sent, 1, "ошибка одного канала не мешает остальным")
	assert.Equal(t, "Заказ OS00003 возвращён в черновик.", working.sent[0].text)
}

func TestTelegramNotificationSender_RetriesAfterRateLimit(t *testing.T) {
	n := Notification{
		Template:  constants.TemplateOrderStarted,
		Recipient: Recipient{Kind: RecipientCustomer, TelegramChatID: null.Int64From(7)},
		Data:      map[string]string{"order": "OS00002"},
	}

	client := &fakeTelegram{failOnce: &telegram.APIError{Method: "sendMessage", Code: 429, RetryAfter: time.Millisecond}}
	require.NoError(t, NewTelegramNotificationSender(client, 0, zap.NewNop()).Send(context.Background(), n))
	assert.Equal(t, 2, client.attempts)
	require.Len(t, client.sent, 1)

	tooLong := &fakeTelegram{failOnce: &telegram.APIError{Method: "sendMessage", Code: 429, RetryAfter: time.Hour}}
	err := NewTelegramNotificationSender(tooLong, 0, zap.NewNop()).Send(context.Background(), n)
	var apiErr *telegram.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, tooLong.attempts, "долгую паузу не ждём")
}
