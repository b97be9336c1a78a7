package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const feedQueueSize = 64

// Hub индексирует соединения по пользователю. Лента заказов (Broadcast)
// уходит только ролям диспетчерской, личные сообщения - всем соединениям адресата.
type Hub struct {
	Register   chan *Client
	unregister chan *Client
	feed       chan []byte

	mu     sync.RWMutex
	byUser map[uint64]map[*Client]struct{}
	total  int

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		unregister: make(chan *Client),
		feed:       make(chan []byte, feedQueueSize),
		byUser:     make(map[uint64]map[*Client]struct{}),
		logger:     logger,
	}
}

// Run владеет регистрацией и рассылкой ленты до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.Register:
			h.add(c)
		case c := <-h.unregister:
			h.drop(c)
		case msg := <-h.feed:
			for _, c := range h.deliver(msg, func(c *Client) bool { return c.receivesFeed() }) {
				h.logger.Warn("websocket: клиент не успевает читать ленту, отключаем", zap.Uint64("userID", c.UserID))
				h.drop(c)
			}
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.byUser[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.byUser[c.UserID] = set
	}
	if _, dup := set[c]; !dup {
		set[c] = struct{}{}
		h.total++
	}
}

// drop закрывает Send ровно один раз: повторный вызов для того же клиента ничего не делает.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.byUser[c.UserID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.byUser, c.UserID)
	}
	h.total--
	close(c.Send)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.byUser {
		for c := range set {
			close(c.Send)
		}
	}
	h.byUser = make(map[uint64]map[*Client]struct{})
	h.total = 0
}

// deliver кладёт msg в буферы подходящих клиентов и возвращает тех, у кого буфер полон.
func (h *Hub) deliver(msg []byte, match func(*Client) bool) (full []*Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.byUser {
		for c := range set {
			if !match(c) {
				continue
			}
			select {
			case c.Send <- msg:
			default:
				full = append(full, c)
			}
		}
	}
	return full
}

func encode(messageType string, payload interface{}) ([]byte, error) {
	return json.Marshal(Envelope{Type: messageType, Payload: payload, Timestamp: time.Now().UTC()})
}

// Broadcast ставит событие в очередь ленты. Если очередь полна, событие теряется.
func (h *Hub) Broadcast(messageType string, payload interface{}) error {
	msg, err := encode(messageType, payload)
	if err != nil {
		return err
	}
	select {
	case h.feed <- msg:
	default:
		h.logger.Warn("websocket: очередь ленты переполнена", zap.String("type", messageType))
	}
	return nil
}

// SendMessageToUser не отключает медленного клиента, только пропускает ему сообщение.
func (h *Hub) SendMessageToUser(userID uint64, payload interface{}, messageType string) error {
	msg, err := encode(messageType, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		select {
		case c.Send <- msg:
		default:
			h.logger.Warn("websocket: буфер клиента заполнен", zap.Uint64("userID", userID), zap.String("type", messageType))
		}
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}
