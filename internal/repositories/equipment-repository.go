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
	equipmentTable  = "equipment"
	equipmentFields = "id, customer_id, name, equipment_type, brand, model, serial_number, warranty_expiry, location, created_at"
)

type EquipmentRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]*entities.Equipment, error)
	// Create возвращает ConflictError, если серийный номер уже занят в паре бренд+модель.
	Create(ctx context.Context, tx pgx.Tx, eq *entities.Equipment) error
}

type EquipmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEquipmentRepository(storage *pgxpool.Pool, logger *zap.Logger) *EquipmentRepository {
	return &EquipmentRepository{storage: storage, logger: logger}
}

func scanEquipment(row pgx.Row) (*entities.Equipment, error) {
	var e entities.Equipment
	err := row.Scan(&e.ID, &e.CustomerID, &e.Name, &e.EquipmentType, &e.Brand, &e.Model, &e.SerialNumber,
		&e.WarrantyExpiry, &e.Location, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EquipmentRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	var q Querier = r.storage
	if tx != nil {
		q = tx
	}
	query, args, err := psql.Select(equipmentFields).From(equipmentTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса equipment: %w", err)
	}
	e, err := scanEquipment(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, "Оборудование", id)
	}
	return e, nil
}

func (r *EquipmentRepository) ListByCustomer(ctx context.Context, customerID uint64) ([]*entities.Equipment, error) {
	query, args, err := psql.Select(equipmentFields).From(equipmentTable).
		Where(sq.Eq{"customer_id": customerID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса equipment: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки equipment: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.Equipment, 0)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования equipment: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *EquipmentRepository) Create(ctx context.Context, tx pgx.Tx, e *entities.Equipment) error {
	query, args, err := psql.Insert(equipmentTable).
		Columns("customer_id", "name", "equipment_type", "brand", "model", "serial_number", "warranty_expiry", "location").
		Values(e.CustomerID, e.Name, e.EquipmentType, e.Brand, e.Model, e.SerialNumber, e.WarrantyExpiry, e.Location).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Create equipment: %w", err)
	}
	if err := querierFor(r.storage, tx).QueryRow(ctx, query, args...).Scan(&e.ID, &e.CreatedAt); err != nil {
		return translatePgError(err, fmt.Sprintf("серийный номер %s уже зарегистрирован для %s %s", e.SerialNumber, e.Brand, e.Model))
	}
	return nil
}
