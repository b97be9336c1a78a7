package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"field-service/internal/entities"
	apperrors "field-service/pkg/errors"
)

// WarehouseRepository - мост к складскому учёту виртуальных складов техников.
type WarehouseRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewWarehouseRepository(storage *pgxpool.Pool, logger *zap.Logger) *WarehouseRepository {
	return &WarehouseRepository{storage: storage, logger: logger}
}

// AvailableAt - остаток товара на складе. Строка блокируется до конца транзакции.
func (r *WarehouseRepository) AvailableAt(ctx context.Context, tx pgx.Tx, warehouseID, productID uint64) (decimal.Decimal, error) {
	query, args, err := psql.Select("quantity").From("warehouse_stock").
		Where(sq.Eq{"warehouse_id": warehouseID, "product_id": productID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка сборки запроса warehouse_stock: %w", err)
	}
	var qty decimal.Decimal
	if err := tx.QueryRow(ctx, query, args...).Scan(&qty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("ошибка чтения остатка склада: %w", err)
	}
	return qty, nil
}

// CreateMovement списывает товар со склада и фиксирует перемещение.
func (r *WarehouseRepository) CreateMovement(ctx context.Context, tx pgx.Tx, m *entities.StockMovement) error {
	updateQuery, updateArgs, err := psql.Update("warehouse_stock").
		Set("quantity", sq.Expr("quantity - ?", m.Quantity)).
		Where(sq.Eq{"warehouse_id": m.WarehouseID, "product_id": m.ProductID}).
		Where(sq.GtOrEq{"quantity": m.Quantity}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса списания со склада: %w", err)
	}
	tag, err := tx.Exec(ctx, updateQuery, updateArgs...)
	if err != nil {
		return translatePgError(err, "конфликт при списании со склада")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewInsufficientStockError(m.ProductID, m.Quantity, decimal.Zero)
	}

	insertQuery, insertArgs, err := psql.Insert("stock_movements").
		Columns("warehouse_id", "product_id", "quantity", "order_id", "reference").
		Values(m.WarehouseID, m.ProductID, m.Quantity, m.OrderID, m.Reference).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса stock_movements: %w", err)
	}
	if err := tx.QueryRow(ctx, insertQuery, insertArgs...).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("ошибка записи перемещения: %w", err)
	}
	return nil
}
