package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "field-service/pkg/errors"
)

// Querier - общий интерфейс pgxpool.Pool и pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// querierFor: без транзакции запрос выполняется на пуле.
func querierFor(pool *pgxpool.Pool, tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return pool
}

// translatePgError переводит коды ошибок PostgreSQL в ошибки приложения.
func translatePgError(err error, conflictMessage string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return apperrors.NewConflictError(conflictMessage, err)
	case "23503":
		return apperrors.NewValidationError(pgErr.ColumnName, "ссылка на несуществующую запись (%s)", pgErr.ConstraintName)
	case "23514":
		return apperrors.NewValidationError(pgErr.ColumnName, "нарушено ограничение %s", pgErr.ConstraintName)
	case "40001", "40P01", "55P03":
		return apperrors.NewConflictError("параллельное изменение данных, повторите запрос", err)
	}
	return fmt.Errorf("ошибка БД [%s]: %w", pgErr.Code, err)
}

func notFoundOr(err error, entity string, id uint64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError(entity, id)
	}
	return err
}
