package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"field-service/internal/entities"
)

type OrderHistoryRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, history *entities.OrderHistory) error
	FindByOrderID(ctx context.Context, orderID uint64) ([]*entities.OrderHistory, error)
}

type OrderHistoryRepository struct {
	storage *pgxpool.Pool
}

func NewOrderHistoryRepository(storage *pgxpool.Pool) *OrderHistoryRepository {
	return &OrderHistoryRepository{storage: storage}
}

func (r *OrderHistoryRepository) CreateInTx(ctx context.Context, tx pgx.Tx, h *entities.OrderHistory) error {
	query := `
		INSERT INTO order_history (order_id, user_id, event_type, old_value, new_value, comment, tx_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := tx.QueryRow(ctx, query,
		h.OrderID, h.UserID, h.EventType, h.OldValue, h.NewValue, h.Comment, h.TxID,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи истории заказа: %w", err)
	}
	return nil
}

func (r *OrderHistoryRepository) FindByOrderID(ctx context.Context, orderID uint64) ([]*entities.OrderHistory, error) {
	query, args, err := psql.Select("id, order_id, user_id, event_type, old_value, new_value, comment, tx_id, created_at").
		From("order_history").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса order_history: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]*entities.OrderHistory, 0)
	for rows.Next() {
		var h entities.OrderHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.UserID, &h.EventType, &h.OldValue, &h.NewValue,
			&h.Comment, &h.TxID, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}
