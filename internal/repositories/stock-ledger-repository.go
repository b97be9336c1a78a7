package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-service/internal/entities"
	"field-service/pkg/constants"
)

const (
	ledgerTable  = "stock_ledger"
	ledgerFields = "id, product_id, previous_quantity, new_quantity, operation, order_id, line_id, user_id, note, created_at"
)

// StockLedgerRepositoryInterface - только добавление и чтение, записи журнала не меняются.
type StockLedgerRepositoryInterface interface {
	Append(ctx context.Context, tx pgx.Tx, entry *entities.StockLedgerEntry) error
	ListByProduct(ctx context.Context, productID uint64, limit uint64) ([]*entities.StockLedgerEntry, error)
}

type StockLedgerRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewStockLedgerRepository(storage *pgxpool.Pool, logger *zap.Logger) *StockLedgerRepository {
	return &StockLedgerRepository{storage: storage, logger: logger}
}

func (r *StockLedgerRepository) Append(ctx context.Context, tx pgx.Tx, e *entities.StockLedgerEntry) error {
	query, args, err := psql.Insert(ledgerTable).
		Columns("product_id", "previous_quantity", "new_quantity", "operation", "order_id", "line_id", "user_id", "note").
		Values(e.ProductID, e.PreviousQuantity, e.NewQuantity, string(e.Operation), e.OrderID, e.LineID, e.UserID, e.Note).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Append stock_ledger: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("ошибка записи в журнал остатков: %w", err)
	}
	return nil
}

func (r *StockLedgerRepository) ListByProduct(ctx context.Context, productID uint64, limit uint64) ([]*entities.StockLedgerEntry, error) {
	builder := psql.Select(ledgerFields).From(ledgerTable).
		Where(sq.Eq{"product_id": productID}).
		OrderBy("id DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса stock_ledger: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки stock_ledger: %w", err)
	}
	defer rows.Close()

	entries := make([]*entities.StockLedgerEntry, 0)
	for rows.Next() {
		var e entities.StockLedgerEntry
		var op string
		if err := rows.Scan(&e.ID, &e.ProductID, &e.PreviousQuantity, &e.NewQuantity, &op, &e.OrderID,
			&e.LineID, &e.UserID, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования stock_ledger: %w", err)
		}
		e.Operation = constants.LedgerOperation(op)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
