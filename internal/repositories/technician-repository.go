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
	technicianTable  = "technicians"
	technicianFields = `id, user_id, name, phone, telegram_chat_id, is_technician, available_hours,
		max_daily_orders, warehouse_id, specialties, active, created_at, updated_at`
)

type TechnicianRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Technician, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Technician, error)
	// ListActive - активные техники с флагом is_technician в порядке ID.
	ListActive(ctx context.Context, tx pgx.Tx) ([]*entities.Technician, error)
	GetAll(ctx context.Context) ([]*entities.Technician, error)
	Create(ctx context.Context, tx pgx.Tx, t *entities.Technician) error
	Update(ctx context.Context, tx pgx.Tx, t *entities.Technician) error
}

type TechnicianRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTechnicianRepository(storage *pgxpool.Pool, logger *zap.Logger) *TechnicianRepository {
	return &TechnicianRepository{storage: storage, logger: logger}
}

func (r *TechnicianRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanTechnician(row pgx.Row) (*entities.Technician, error) {
	var t entities.Technician
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Phone, &t.TelegramChatID, &t.IsTechnician, &t.AvailableHours,
		&t.MaxDailyOrders, &t.WarehouseID, &t.Specialties, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TechnicianRepository) list(ctx context.Context, q Querier, builder sq.SelectBuilder) ([]*entities.Technician, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса technicians: %w", err)
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки technicians: %w", err)
	}
	defer rows.Close()

	techs := make([]*entities.Technician, 0)
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования technicians: %w", err)
		}
		techs = append(techs, t)
	}
	return techs, rows.Err()
}

func (r *TechnicianRepository) findOne(ctx context.Context, q Querier, id uint64, forUpdate bool) (*entities.Technician, error) {
	builder := psql.Select(technicianFields).From(technicianTable).Where(sq.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindByID technicians: %w", err)
	}
	t, err := scanTechnician(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, "Техник", id)
	}
	return t, nil
}

func (r *TechnicianRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Technician, error) {
	return r.findOne(ctx, r.getQuerier(tx), id, false)
}

// FindByIDForUpdate блокирует строку техника: назначения одному технику
// проверяют дневной лимит по очереди.
func (r *TechnicianRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Technician, error) {
	return r.findOne(ctx, tx, id, true)
}

func (r *TechnicianRepository) ListActive(ctx context.Context, tx pgx.Tx) ([]*entities.Technician, error) {
	return r.list(ctx, r.getQuerier(tx), psql.Select(technicianFields).From(technicianTable).
		Where(sq.Eq{"is_technician": true, "active": true}).
		OrderBy("id"))
}

func (r *TechnicianRepository) GetAll(ctx context.Context) ([]*entities.Technician, error) {
	return r.list(ctx, r.storage, psql.Select(technicianFields).From(technicianTable).OrderBy("id"))
}

func (r *TechnicianRepository) Create(ctx context.Context, tx pgx.Tx, t *entities.Technician) error {
	query, args, err := psql.Insert(technicianTable).
		Columns("user_id", "name", "phone", "telegram_chat_id", "is_technician", "available_hours",
			"max_daily_orders", "warehouse_id", "specialties", "active").
		Values(t.UserID, t.Name, t.Phone, t.TelegramChatID, t.IsTechnician, t.AvailableHours,
			t.MaxDailyOrders, t.WarehouseID, t.Specialties, t.Active).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Create technicians: %w", err)
	}
	if err := querierFor(r.storage, tx).QueryRow(ctx, query, args...).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return translatePgError(err, "техник с таким пользователем уже существует")
	}
	return nil
}

func (r *TechnicianRepository) Update(ctx context.Context, tx pgx.Tx, t *entities.Technician) error {
	query, args, err := psql.Update(technicianTable).
		Set("user_id", t.UserID).
		Set("name", t.Name).
		Set("phone", t.Phone).
		Set("telegram_chat_id", t.TelegramChatID).
		Set("is_technician", t.IsTechnician).
		Set("available_hours", t.AvailableHours).
		Set("max_daily_orders", t.MaxDailyOrders).
		Set("warehouse_id", t.WarehouseID).
		Set("specialties", t.Specialties).
		Set("active", t.Active).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": t.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Update technicians: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&t.UpdatedAt); err != nil {
		return notFoundOr(translatePgError(err, "техник с таким пользователем уже существует"), "Техник", t.ID)
	}
	return nil
}
