package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"field-service/internal/entities"
)

const (
	productTable  = "products"
	productFields = "id, name, sku, list_price, quantity, alert_threshold, active, created_at, updated_at"
)

type ProductRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Product, error)
	// FindByIDForUpdate блокирует строку товара: параллельные резервы одного товара
	// выполняются строго последовательно.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Product, error)
	GetAll(ctx context.Context) ([]*entities.Product, error)
	Create(ctx context.Context, tx pgx.Tx, p *entities.Product) error
	UpdateQuantity(ctx context.Context, tx pgx.Tx, id uint64, quantity decimal.Decimal) error
}

type ProductRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewProductRepository(storage *pgxpool.Pool, logger *zap.Logger) *ProductRepository {
	return &ProductRepository{storage: storage, logger: logger}
}

func scanProduct(row pgx.Row) (*entities.Product, error) {
	var p entities.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.ListPrice, &p.Quantity, &p.AlertThreshold, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) findOne(ctx context.Context, q Querier, id uint64, forUpdate bool) (*entities.Product, error) {
	builder := psql.Select(productFields).From(productTable).Where(sq.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса products: %w", err)
	}
	p, err := scanProduct(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, "Товар", id)
	}
	return p, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Product, error) {
	if tx != nil {
		return r.findOne(ctx, tx, id, false)
	}
	return r.findOne(ctx, r.storage, id, false)
}

func (r *ProductRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Product, error) {
	return r.findOne(ctx, tx, id, true)
}

func (r *ProductRepository) GetAll(ctx context.Context) ([]*entities.Product, error) {
	query, args, err := psql.Select(productFields).From(productTable).OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса products: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки products: %w", err)
	}
	defer rows.Close()

	products := make([]*entities.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования products: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) Create(ctx context.Context, tx pgx.Tx, p *entities.Product) error {
	query, args, err := psql.Insert(productTable).
		Columns("name", "sku", "list_price", "quantity", "alert_threshold", "active").
		Values(p.Name, p.SKU, p.ListPrice, p.Quantity, p.AlertThreshold, p.Active).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Create products: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return translatePgError(err, "товар с таким артикулом уже существует")
	}
	return nil
}

func (r *ProductRepository) UpdateQuantity(ctx context.Context, tx pgx.Tx, id uint64, quantity decimal.Decimal) error {
	query, args, err := psql.Update(productTable).
		Set("quantity", quantity).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса UpdateQuantity: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return translatePgError(err, "конфликт при изменении остатка")
	}
	if tag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "Товар", id)
	}
	return nil
}
