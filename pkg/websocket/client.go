package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"field-service/pkg/constants"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

// Client - одно соединение пользователя. Входящие сообщения не обрабатываются, только ping/pong.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uint64
	Role   string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uint64, role string) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		UserID: userID,
		Role:   role,
	}
}

// receivesFeed: общую ленту заказов видят только диспетчеры и админы,
// техникам и клиентам приходят лишь личные сообщения.
func (c *Client) receivesFeed() bool {
	return c.Role == constants.RoleAdmin || c.Role == constants.RoleDispatcher
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	extend := func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend("")
	c.Conn.SetPongHandler(extend)

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket: соединение закрыто с ошибкой", zap.Uint64("userID", c.UserID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(messageType, data)
}

// WritePump - единственный писатель в соединение: gorilla не допускает параллельной записи.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				// хаб закрыл канал
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Debug("websocket: ошибка записи", zap.Uint64("userID", c.UserID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
