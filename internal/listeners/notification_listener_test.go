package listeners

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-service/internal/entities"
	"field-service/internal/events"
	"field-service/internal/repositories"
	"field-service/internal/services"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
	"field-service/pkg/eventbus"
	"field-service/pkg/websocket"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []services.Notification
	err  error
}

func (s *recordingSender) Send(_ context.Context, n services.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

func (s *recordingSender) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]string, 0, len(s.sent))
	for _, n := range s.sent {
		kinds = append(kinds, n.Recipient.Kind)
	}
	return kinds
}

type broadcastMessage struct {
	messageType string
	payload     interface{}
}

type recordingBroadcaster struct {
	mu        sync.Mutex
	broadcast []broadcastMessage
	personal  map[uint64][]interface{}
}

func (b *recordingBroadcaster) Broadcast(messageType string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcast = append(b.broadcast, broadcastMessage{messageType: messageType, payload: payload})
	return nil
}

func (b *recordingBroadcaster) SendMessageToUser(userID uint64, payload interface{}, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.personal == nil {
		b.personal = make(map[uint64][]interface{})
	}
	b.personal[userID] = append(b.personal[userID], payload)
	return nil
}

// Встроенные интерфейсы не реализованы: слушателю нужен только FindByID.
type stubTechnicianRepo struct {
	repositories.TechnicianRepositoryInterface
	byID map[uint64]*entities.Technician
}

func (r *stubTechnicianRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Technician, error) {
	if t, ok := r.byID[id]; ok {
		return t, nil
	}
	return nil, apperrors.NewNotFoundError("Техник", id)
}

type stubCustomerRepo struct {
	repositories.CustomerRepositoryInterface
	byID map[uint64]*entities.Customer
}

func (r *stubCustomerRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Customer, error) {
	if c, ok := r.byID[id]; ok {
		return c, nil
	}
	return nil, apperrors.NewNotFoundError("Клиент", id)
}

type listenerEnv struct {
	listener    *NotificationListener
	sender      *recordingSender
	broadcaster *recordingBroadcaster
}

func newListenerEnv() *listenerEnv {
	sender := &recordingSender{}
	broadcaster := &recordingBroadcaster{}
	techs := &stubTechnicianRepo{byID: map[uint64]*entities.Technician{
		30: {ID: 30, Name: "Иван", UserID: null.Uint64From(101), TelegramChatID: null.Int64From(5001)},
		31: {ID: 31, Name: "Сергей", UserID: null.Uint64From(102)},
	}}
	customers := &stubCustomerRepo{byID: map[uint64]*entities.Customer{
		10: {ID: 10, Name: "ООО Акме", TelegramChatID: null.Int64From(7001)},
	}}
	return &listenerEnv{
		listener:    NewNotificationListener(sender, broadcaster, techs, customers, zap.NewNop()),
		sender:      sender,
		broadcaster: broadcaster,
	}
}

func assignedOrder() entities.ServiceOrder {
	return entities.ServiceOrder{
		ID:           1,
		Name:         "OS00001",
		State:        constants.StateAssigned,
		CustomerID:   10,
		TechnicianID: null.Uint64From(30),
		ScheduledAt:  null.TimeFrom(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)),
		TotalAmount:  decimal.NewFromInt(1000),
	}
}

func TestNotificationListener_StateChanged(t *testing.T) {
	env := newListenerEnv()
	order := assignedOrder()

	err := env.listener.handleStateChanged(context.Background(), events.OrderStateChangedEvent{
		Order: order, From: constants.StateDraft, To: constants.StateAssigned,
	})
	require.NoError(t, err)

	require.Equal(t, []string{services.RecipientTechnician, services.RecipientCustomer}, env.sender.kinds())
	first := env.sender.sent[0]
	assert.Equal(t, constants.TemplateOrderAssigned, first.Template)
	assert.Equal(t, int64(5001), first.Recipient.TelegramChatID.Int64)
	assert.Equal(t, "Иван", first.Data["technician"])
	assert.Equal(t, "10.03.2026 10:00", first.Data["scheduled_at"])
	assert.Equal(t, int64(7001), env.sender.sent[1].Recipient.TelegramChatID.Int64)

	personal := env.broadcaster.personal[101]
	require.Len(t, personal, 1, "техник получает личное сообщение")
	assert.Equal(t, "Заказ OS00001 назначен технику Иван на 10.03.2026 10:00.", personal[0].(personalMessage).Text)

	require.Len(t, env.broadcaster.broadcast, 1)
	payload, ok := env.broadcaster.broadcast[0].payload.(websocket.OrderEventPayload)
	require.True(t, ok)
	assert.Equal(t, "order_event", env.broadcaster.broadcast[0].messageType)
	assert.Equal(t, "draft", payload.PrevState)
	require.NotNil(t, payload.TechnicianID)
	assert.Equal(t, uint64(30), *payload.TechnicianID)
}

func TestNotificationListener_RescheduleNotifiesPreviousTechnician(t *testing.T) {
	env := newListenerEnv()
	order := assignedOrder()
	order.TechnicianID = null.Uint64From(31)

	err := env.listener.handleRescheduled(context.Background(), events.OrderRescheduledEvent{
		Order:           order,
		OldTechnicianID: null.Uint64From(30),
		Reason:          "нет запчастей",
		Automatic:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{services.RecipientTechnician, services.RecipientCustomer, services.RecipientTechnician}, env.sender.kinds())
	assert.Equal(t, uint64(31), env.sender.sent[0].Recipient.ID)
	assert.Equal(t, uint64(30), env.sender.sent[2].Recipient.ID)
	assert.Equal(t, "нет запчастей", env.sender.sent[2].Data["comment"])
	assert.Len(t, env.broadcaster.personal[101], 1)
	assert.Len(t, env.broadcaster.personal[102], 1)
}

func TestNotificationListener_DeliveryErrorsAreSwallowed(t *testing.T) {
	env := newListenerEnv()
	env.sender.err = errors.New("telegram недоступен")
	order := assignedOrder()
	order.CustomerID = 999
	order.State = constants.StateCancelled

	err := env.listener.handleStateChanged(context.Background(), events.OrderStateChangedEvent{
		Order: order, From: constants.StateAssigned, To: constants.StateCancelled, Comment: "клиент передумал",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{services.RecipientTechnician}, env.sender.kinds(), "неизвестный клиент пропускается")
}

func TestNotificationListener_ViaBus(t *testing.T) {
	env := newListenerEnv()
	bus := eventbus.New(zap.NewNop())
	env.listener.Register(bus)

	bus.Publish(context.Background(), events.LowStockEvent{
		Product: entities.Product{
			Name: "Фильтр", SKU: "FLT", Quantity: decimal.NewFromInt(2), AlertThreshold: decimal.NewFromInt(2),
		},
		Operation: constants.LedgerExit,
	})
	order := assignedOrder()
	bus.Publish(context.Background(), events.OrderReminderEvent{Order: order})
	bus.Publish(context.Background(), events.OrderOverdueEvent{Order: order})
	bus.Wait()

	assert.ElementsMatch(t, []string{
		services.RecipientDispatch,
		services.RecipientTechnician,
		services.RecipientDispatch,
		services.RecipientTechnician,
	}, env.sender.kinds())

	types := make([]string, 0)
	for _, m := range env.broadcaster.broadcast {
		types = append(types, m.messageType)
	}
	assert.ElementsMatch(t, []string{constants.TemplateLowStock, "order_event"}, types)
}
