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
	serviceTypeTable  = "service_types"
	serviceTypeFields = `id, name, code, base_price, estimated_hours, requires_diagnosis, requires_approval,
		requires_parts, allow_photos, created_at`
)

type ServiceTypeRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ServiceType, error)
	GetAll(ctx context.Context) ([]*entities.ServiceType, error)
	Create(ctx context.Context, tx pgx.Tx, st *entities.ServiceType) error
}

type ServiceTypeRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewServiceTypeRepository(storage *pgxpool.Pool, logger *zap.Logger) *ServiceTypeRepository {
	return &ServiceTypeRepository{storage: storage, logger: logger}
}

func scanServiceType(row pgx.Row) (*entities.ServiceType, error) {
	var st entities.ServiceType
	err := row.Scan(&st.ID, &st.Name, &st.Code, &st.BasePrice, &st.EstimatedHours, &st.RequiresDiagnosis,
		&st.RequiresApproval, &st.RequiresParts, &st.AllowPhotos, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *ServiceTypeRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ServiceType, error) {
	var q Querier = r.storage
	if tx != nil {
		q = tx
	}
	query, args, err := psql.Select(serviceTypeFields).From(serviceTypeTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса service_types: %w", err)
	}
	st, err := scanServiceType(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, "Вид услуги", id)
	}
	return st, nil
}

func (r *ServiceTypeRepository) GetAll(ctx context.Context) ([]*entities.ServiceType, error) {
	query, args, err := psql.Select(serviceTypeFields).From(serviceTypeTable).OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса service_types: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки service_types: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.ServiceType, 0)
	for rows.Next() {
		st, err := scanServiceType(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования service_types: %w", err)
		}
		list = append(list, st)
	}
	return list, rows.Err()
}

func (r *ServiceTypeRepository) Create(ctx context.Context, tx pgx.Tx, st *entities.ServiceType) error {
	query, args, err := psql.Insert(serviceTypeTable).
		Columns("name", "code", "base_price", "estimated_hours", "requires_diagnosis", "requires_approval",
			"requires_parts", "allow_photos").
		Values(st.Name, st.Code, st.BasePrice, st.EstimatedHours, st.RequiresDiagnosis, st.RequiresApproval,
			st.RequiresParts, st.AllowPhotos).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Create service_types: %w", err)
	}
	if err := querierFor(r.storage, tx).QueryRow(ctx, query, args...).Scan(&st.ID, &st.CreatedAt); err != nil {
		return translatePgError(err, "вид услуги с таким кодом уже существует")
	}
	return nil
}
