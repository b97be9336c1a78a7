package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-service/internal/entities"
)

// InvoiceRepository - бухгалтерский адаптер: счета и проводки в собственных таблицах.
type InvoiceRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewInvoiceRepository(storage *pgxpool.Pool, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{storage: storage, logger: logger}
}

func (r *InvoiceRepository) CreateInvoice(ctx context.Context, tx pgx.Tx, inv *entities.Invoice) (uint64, error) {
	query, args, err := psql.Insert("invoices").
		Columns("order_id", "customer_id", "amount", "posted").
		Values(inv.OrderID, inv.CustomerID, inv.Amount, false).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса invoices: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&inv.ID, &inv.CreatedAt); err != nil {
		return 0, translatePgError(err, "счёт для этого заказа уже создан")
	}

	if len(inv.Lines) > 0 {
		builder := psql.Insert("invoice_lines").Columns("invoice_id", "product_id", "description", "quantity", "unit_price")
		for _, l := range inv.Lines {
			var productID interface{}
			if l.ProductID != 0 {
				productID = l.ProductID
			}
			builder = builder.Values(inv.ID, productID, l.Description, l.Quantity, l.UnitPrice)
		}
		linesQuery, linesArgs, err := builder.ToSql()
		if err != nil {
			return 0, fmt.Errorf("ошибка сборки запроса invoice_lines: %w", err)
		}
		if _, err := tx.Exec(ctx, linesQuery, linesArgs...); err != nil {
			return 0, fmt.Errorf("ошибка записи строк счёта: %w", err)
		}
	}
	return inv.ID, nil
}

func (r *InvoiceRepository) IsPosted(ctx context.Context, tx pgx.Tx, invoiceID uint64) (bool, error) {
	query, args, err := psql.Select("posted").From("invoices").Where(sq.Eq{"id": invoiceID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("ошибка сборки запроса invoices: %w", err)
	}
	var posted bool
	if err := tx.QueryRow(ctx, query, args...).Scan(&posted); err != nil {
		return false, notFoundOr(err, "Счёт", invoiceID)
	}
	return posted, nil
}

func (r *InvoiceRepository) MarkPosted(ctx context.Context, tx pgx.Tx, invoiceID uint64) error {
	query, args, err := psql.Update("invoices").Set("posted", true).Where(sq.Eq{"id": invoiceID}).ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса invoices: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка проведения счёта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "Счёт", invoiceID)
	}
	return nil
}

func (r *InvoiceRepository) PostJournalEntry(ctx context.Context, tx pgx.Tx, je *entities.JournalEntry) (uint64, error) {
	query, args, err := psql.Insert("journal_entries").
		Columns("order_id", "debit_account", "credit_account", "amount").
		Values(je.OrderID, je.DebitAccount, je.CreditAccount, je.Amount).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса journal_entries: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&je.ID, &je.CreatedAt); err != nil {
		return 0, translatePgError(err, "проводка для этого заказа уже создана")
	}
	return je.ID, nil
}
