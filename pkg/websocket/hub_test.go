package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-service/pkg/constants"
)

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "канал клиента закрыт")
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("сообщение не пришло")
		return Envelope{}
	}
}

func TestHub(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	first := NewClient(hub, nil, 1, constants.RoleDispatcher)
	other := NewClient(hub, nil, 2, constants.RoleTechnician)
	second := NewClient(hub, nil, 1, constants.RoleAdmin)
	for _, c := range []*Client{first, other, second} {
		hub.Register <- c
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.SendMessageToUser(1, map[string]string{"text": "лично"}, "notification"))
	assert.Equal(t, "notification", receive(t, first).Type)
	assert.Equal(t, "notification", receive(t, second).Type)
	assert.Empty(t, other.Send, "чужому пользователю не отправляется")

	require.NoError(t, hub.Broadcast("order_event", OrderEventPayload{OrderID: 5, State: "assigned"}))
	for _, c := range []*Client{first, second} {
		env := receive(t, c)
		assert.Equal(t, "order_event", env.Type)
		payload, ok := env.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(5), payload["order_id"])
	}

	require.NoError(t, hub.SendMessageToUser(2, map[string]string{"text": "техник"}, "notification"))
	assert.Equal(t, "notification", receive(t, other).Type, "лента заказов технику не приходит")

	hub.unregister <- other
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)
	_, open := <-other.Send
	assert.False(t, open)

	cancel()
	<-done
	_, open = <-first.Send
	assert.False(t, open, "при остановке хаба соединения закрываются")
	assert.Zero(t, hub.ClientCount())
}

func TestHub_DropsSlowFeedClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &Client{Hub: hub, Send: make(chan []byte), UserID: 9, Role: constants.RoleDispatcher}
	hub.Register <- slow
	hub.Register <- slow
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast("low_stock", map[string]string{"sku": "FLT"}))
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-slow.Send
	assert.False(t, open)
}
