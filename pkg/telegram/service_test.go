package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botAPIStub struct {
	mu       sync.Mutex
	paths    []string
	requests []sendMessageRequest
	reply    string
}

func (s *botAPIStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, r.URL.Path)
	var req sendMessageRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.requests = append(s.requests, req)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(s.reply))
}

func TestService_SendMessage(t *testing.T) {
	stub := &botAPIStub{reply: `{"ok":true}`}
	server := httptest.NewServer(stub)
	defer server.Close()

	svc := NewService("123:abc").WithAPIBase(server.URL + "/")
	ctx := context.Background()

	require.NoError(t, svc.SendMessage(ctx, 42, "Заказ OS00001 выполнен. Сумма: 1800.00!"))
	require.NoError(t, svc.SendMessageEx(ctx, -100, "<b>склад</b>", WithHTML()))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.requests, 2)
	assert.Equal(t, "/bot123:abc/sendMessage", stub.paths[0])
	assert.Equal(t, int64(42), stub.requests[0].ChatID)
	assert.Equal(t, "MarkdownV2", stub.requests[0].ParseMode)
	assert.Equal(t, `Заказ OS00001 выполнен\. Сумма: 1800\.00\!`, stub.requests[0].Text)
	assert.Equal(t, "HTML", stub.requests[1].ParseMode)
	assert.Equal(t, "<b>склад</b>", stub.requests[1].Text)
}

func TestService_Errors(t *testing.T) {
	stub := &botAPIStub{reply: `{"ok":false,"error_code":400,"description":"chat not found"}`}
	server := httptest.NewServer(stub)
	defer server.Close()

	err := NewService("123:abc").WithAPIBase(server.URL).SendMessage(context.Background(), 1, "текст")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.Equal(t, "chat not found", apiErr.Description)
	assert.Zero(t, apiErr.RetryAfter)

	limited := httptest.NewServer(&botAPIStub{reply: `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":7}}`})
	defer limited.Close()
	err = NewService("123:abc").WithAPIBase(limited.URL).SendMessage(context.Background(), 1, "текст")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter)

	err = NewService("").SendMessage(context.Background(), 1, "текст")
	assert.EqualError(t, err, "токен Telegram-бота не установлен")
	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Len(t, stub.requests, 1, "без токена запрос не уходит")
}
