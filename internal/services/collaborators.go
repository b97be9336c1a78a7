package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"field-service/internal/entities"
	"field-service/pkg/eventbus"
)

// InvoicePoster - бухгалтерия: счета и проводки.
type InvoicePoster interface {
	CreateInvoice(ctx context.Context, tx pgx.Tx, invoice *entities.Invoice) (uint64, error)
	IsPosted(ctx context.Context, tx pgx.Tx, invoiceID uint64) (bool, error)
	MarkPosted(ctx context.Context, tx pgx.Tx, invoiceID uint64) error
	PostJournalEntry(ctx context.Context, tx pgx.Tx, entry *entities.JournalEntry) (uint64, error)
}

// StockBridge - складской учёт по местам хранения (виртуальные склады техников).
type StockBridge interface {
	AvailableAt(ctx context.Context, tx pgx.Tx, warehouseID, productID uint64) (decimal.Decimal, error)
	CreateMovement(ctx context.Context, tx pgx.Tx, movement *entities.StockMovement) error
}

// QREncoder превращает текст в изображение QR-кода.
type QREncoder interface {
	Encode(text string) ([]byte, error)
}

// EventPublisher - шина событий, в тестах подменяется.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

// Clock - источник текущего времени.
type Clock func() time.Time

// unitOfWork - контекст одной бизнес-операции: кто, когда и какие события
// нужно опубликовать после коммита.
type unitOfWork struct {
	actor  entities.Actor
	txID   uuid.UUID
	now    time.Time
	events []eventbus.Event
}

func newUnitOfWork(actor entities.Actor, now time.Time) *unitOfWork {
	return &unitOfWork{actor: actor, txID: uuid.New(), now: now}
}

func (u *unitOfWork) emit(e eventbus.Event) {
	u.events = append(u.events, e)
}

// reset отбрасывает события неудачной попытки.
func (u *unitOfWork) reset() {
	u.events = nil
}

func (u *unitOfWork) publish(ctx context.Context, publisher EventPublisher) {
	if publisher == nil {
		return
	}
	for _, e := range u.events {
		publisher.Publish(ctx, e)
	}
	u.events = nil
}
