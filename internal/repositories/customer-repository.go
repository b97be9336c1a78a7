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
	customerTable  = "customers"
	customerFields = "id, code, name, email, phone, telegram_chat_id, created_at"
)

type CustomerRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Customer, error)
	Create(ctx context.Context, tx pgx.Tx, c *entities.Customer) error
}

type CustomerRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewCustomerRepository(storage *pgxpool.Pool, logger *zap.Logger) *CustomerRepository {
	return &CustomerRepository{storage: storage, logger: logger}
}

func (r *CustomerRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Customer, error) {
	var q Querier = r.storage
	if tx != nil {
		q = tx
	}
	query, args, err := psql.Select(customerFields).From(customerTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса customers: %w", err)
	}
	var c entities.Customer
	err = q.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.TelegramChatID, &c.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "Клиент", id)
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, tx pgx.Tx, c *entities.Customer) error {
	query, args, err := psql.Insert(customerTable).
		Columns("code", "name", "email", "phone", "telegram_chat_id").
		Values(c.Code, c.Name, c.Email, c.Phone, c.TelegramChatID).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Create customers: %w", err)
	}
	if err := querierFor(r.storage, tx).QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt); err != nil {
		return translatePgError(err, "клиент с таким кодом уже существует")
	}
	return nil
}
