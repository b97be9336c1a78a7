package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// TxManager открывает транзакции READ COMMITTED: гонки за заказ и остаток
// разводятся блокировками строк (FOR UPDATE), а не уровнем изоляции.
type TxManager struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// RunInTransaction фиксирует изменения fn только если fn вернула nil.
// При ошибке или панике выполняется откат.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var fnErr error
	err := pgx.BeginTxFunc(ctx, m.pool, m.opts, func(tx pgx.Tx) error {
		fnErr = fn(tx)
		return fnErr
	})
	switch {
	case err == nil:
		return nil
	case fnErr != nil:
		// доменные ошибки отдаём как есть
		return fnErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("транзакция: %w", translatePgError(err, "конфликт при фиксации транзакции"))
	}
}
