package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event - любое доменное событие.
type Event interface {
	Name() string
}

// Listener - обработчик события.
type Listener func(ctx context.Context, event Event) error

// Bus - шина событий. Обработчики выполняются асинхронно,
// их ошибки логируются и не возвращаются публикующей стороне.
type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	timeout   time.Duration
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		timeout:   time.Minute,
		logger:    logger,
	}
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish вызывает всех подписчиков события. Вызывать только после коммита транзакции.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Name()]...)
	b.mu.RUnlock()

	for _, listener := range listeners {
		b.wg.Add(1)
		go func(l Listener) {
			defer b.wg.Done()
			defer func() {
				if p := recover(); p != nil {
					b.logger.Error("Паника в обработчике события",
						zap.String("event", event.Name()),
						zap.Any("panic", p),
					)
				}
			}()

			// Контекст запроса к этому моменту может быть уже отменён.
			ctxWithTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
			defer cancel()

			if err := l(ctxWithTimeout, event); err != nil {
				b.logger.Error("Ошибка в обработчике события",
					zap.String("event", event.Name()),
					zap.Error(err),
				)
			}
		}(listener)
	}
}

// Wait блокируется до завершения всех запущенных обработчиков.
func (b *Bus) Wait() {
	b.wg.Wait()
}
