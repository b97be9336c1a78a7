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

const (
	lineTable  = "refaction_lines"
	lineFields = "id, order_id, product_id, description, quantity, unit_price, subtotal, reserved_qty, consumed, created_at"
)

type RefactionLineRepositoryInterface interface {
	ListByOrder(ctx context.Context, tx pgx.Tx, orderID uint64) ([]*entities.RefactionLine, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.RefactionLine, error)
	Create(ctx context.Context, tx pgx.Tx, line *entities.RefactionLine) error
	Update(ctx context.Context, tx pgx.Tx, line *entities.RefactionLine) error
	Delete(ctx context.Context, tx pgx.Tx, id uint64) error
}

type RefactionLineRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewRefactionLineRepository(storage *pgxpool.Pool, logger *zap.Logger) *RefactionLineRepository {
	return &RefactionLineRepository{storage: storage, logger: logger}
}

func (r *RefactionLineRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanLine(row pgx.Row) (*entities.RefactionLine, error) {
	var l entities.RefactionLine
	err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Description, &l.Quantity, &l.UnitPrice,
		&l.Subtotal, &l.ReservedQty, &l.Consumed, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *RefactionLineRepository) ListByOrder(ctx context.Context, tx pgx.Tx, orderID uint64) ([]*entities.RefactionLine, error) {
	query, args, err := psql.Select(lineFields).From(lineTable).
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса строк заказа: %w", err)
	}
	rows, err := r.getQuerier(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки строк заказа: %w", err)
	}
	defer rows.Close()

	lines := make([]*entities.RefactionLine, 0)
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования refaction_lines: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *RefactionLineRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.RefactionLine, error) {
	query, args, err := psql.Select(lineFields).From(lineTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса строки заказа: %w", err)
	}
	l, err := scanLine(r.getQuerier(tx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, "Строка заказа", id)
	}
	return l, nil
}

func (r *RefactionLineRepository) Create(ctx context.Context, tx pgx.Tx, l *entities.RefactionLine) error {
	query, args, err := psql.Insert(lineTable).
		Columns("order_id", "product_id", "description", "quantity", "unit_price", "subtotal", "reserved_qty", "consumed").
		Values(l.OrderID, l.ProductID, l.Description, l.Quantity, l.UnitPrice, l.Subtotal, l.ReservedQty, l.Consumed).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Create refaction_lines: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&l.ID, &l.CreatedAt); err != nil {
		return translatePgError(err, "строка заказа уже существует")
	}
	return nil
}

func (r *RefactionLineRepository) Update(ctx context.Context, tx pgx.Tx, l *entities.RefactionLine) error {
	query, args, err := psql.Update(lineTable).
		Set("product_id", l.ProductID).
		Set("description", l.Description).
		Set("quantity", l.Quantity).
		Set("unit_price", l.UnitPrice).
		Set("subtotal", l.Subtotal).
		Set("reserved_qty", l.ReservedQty).
		Set("consumed", l.Consumed).
		Where(sq.Eq{"id": l.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Update refaction_lines: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return translatePgError(err, "конфликт при обновлении строки заказа")
	}
	if tag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "Строка заказа", l.ID)
	}
	return nil
}

func (r *RefactionLineRepository) Delete(ctx context.Context, tx pgx.Tx, id uint64) error {
	query, args, err := psql.Delete(lineTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Delete refaction_lines: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка удаления строки заказа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "Строка заказа", id)
	}
	return nil
}
