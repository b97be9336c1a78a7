package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-service/internal/entities"
	"field-service/pkg/constants"
	"field-service/pkg/types"
)

const (
	orderTable  = "service_orders"
	orderFields = `id, name, customer_id, equipment_id, service_type_id, technician_id, state, priority,
		scheduled_at, started_at, ended_at, reported_fault, diagnosis, work_performed, rejection_reason,
		photo_before, photo_after, labor_hours, labor_price, total_amount, invoice_id, journal_entry_id,
		overdue_notified, created_at, updated_at`
)

// allowedOrderFilters - БЕЛЫЙ СПИСОК для фильтрации (защита от SQL Injection)
var allowedOrderFilters = map[string]string{
	"id":              "id",
	"state":           "state",
	"priority":        "priority",
	"customer_id":     "customer_id",
	"equipment_id":    "equipment_id",
	"service_type_id": "service_type_id",
	"technician_id":   "technician_id",
}

var allowedOrderSortFields = map[string]bool{
	"id":           true,
	"name":         true,
	"scheduled_at": true,
	"created_at":   true,
	"total_amount": true,
	"priority":     true,
	"state":        true,
}

type ServiceOrderRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, order *entities.ServiceOrder) error
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ServiceOrder, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ServiceOrder, error)
	Update(ctx context.Context, tx pgx.Tx, order *entities.ServiceOrder) error
	GetAll(ctx context.Context, filter types.Filter) ([]*entities.ServiceOrder, uint64, error)

	// CountActiveForTechnicianOnDate - число незавершённых заказов техника в календарный день.
	CountActiveForTechnicianOnDate(ctx context.Context, tx pgx.Tx, technicianID uint64, day time.Time, excludeOrderID uint64) (int, error)
	ListNonTerminal(ctx context.Context, tx pgx.Tx) ([]*entities.ServiceOrder, error)
	ListScheduledBetween(ctx context.Context, tx pgx.Tx, from, to time.Time, states []constants.OrderState) ([]*entities.ServiceOrder, error)
	ListByTechnicianBetween(ctx context.Context, technicianID uint64, from, to time.Time) ([]*entities.ServiceOrder, error)
	ListByEquipment(ctx context.Context, equipmentID uint64) ([]*entities.ServiceOrder, error)
	CountByStateForTechnician(ctx context.Context, technicianID uint64) (map[constants.OrderState]int, error)
}

type ServiceOrderRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewServiceOrderRepository(storage *pgxpool.Pool, logger *zap.Logger) *ServiceOrderRepository {
	return &ServiceOrderRepository{storage: storage, logger: logger}
}

func (r *ServiceOrderRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func (r *ServiceOrderRepository) scanRow(row pgx.Row) (*entities.ServiceOrder, error) {
	var o entities.ServiceOrder
	var state, priority string
	err := row.Scan(
		&o.ID, &o.Name, &o.CustomerID, &o.EquipmentID, &o.ServiceTypeID, &o.TechnicianID, &state, &priority,
		&o.ScheduledAt, &o.StartedAt, &o.EndedAt, &o.ReportedFault, &o.Diagnosis, &o.WorkPerformed, &o.RejectionReason,
		&o.PhotoBefore, &o.PhotoAfter, &o.LaborHours, &o.LaborPrice, &o.TotalAmount, &o.InvoiceID, &o.JournalEntryID,
		&o.OverdueNotified, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.State = constants.OrderState(state)
	o.Priority = constants.Priority(priority)
	return &o, nil
}

func (r *ServiceOrderRepository) scanRows(rows pgx.Rows) ([]*entities.ServiceOrder, error) {
	defer rows.Close()
	orders := make([]*entities.ServiceOrder, 0)
	for rows.Next() {
		o, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования service_orders: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *ServiceOrderRepository) Create(ctx context.Context, tx pgx.Tx, o *entities.ServiceOrder) error {
	query, args, err := psql.Insert(orderTable).
		Columns("name", "customer_id", "equipment_id", "service_type_id", "technician_id", "state", "priority",
			"scheduled_at", "reported_fault", "labor_hours", "labor_price", "total_amount", "created_at", "updated_at").
		Values(sq.Expr("'OS' || LPAD(nextval('service_order_seq')::text, 5, '0')"),
			o.CustomerID, o.EquipmentID, o.ServiceTypeID, o.TechnicianID, string(o.State), string(o.Priority),
			o.ScheduledAt, o.ReportedFault, o.LaborHours, o.LaborPrice, o.TotalAmount, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id, name, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Create service_orders: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return translatePgError(err, "заказ с таким номером уже существует")
	}
	return nil
}

func (r *ServiceOrderRepository) findOne(ctx context.Context, q Querier, id uint64, forUpdate bool) (*entities.ServiceOrder, error) {
	builder := psql.Select(orderFields).From(orderTable).Where(sq.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для service_orders: %w", err)
	}
	o, err := r.scanRow(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, "Заказ", id)
	}
	return o, nil
}

func (r *ServiceOrderRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ServiceOrder, error) {
	return r.findOne(ctx, r.getQuerier(tx), id, false)
}

// FindByIDForUpdate блокирует строку заказа до конца транзакции,
// чтобы параллельные переходы одного заказа выполнялись последовательно.
func (r *ServiceOrderRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ServiceOrder, error) {
	return r.findOne(ctx, tx, id, true)
}

func (r *ServiceOrderRepository) Update(ctx context.Context, tx pgx.Tx, o *entities.ServiceOrder) error {
	query, args, err := psql.Update(orderTable).
		Set("service_type_id", o.ServiceTypeID).
		Set("technician_id", o.TechnicianID).
		Set("state", string(o.State)).
		Set("priority", string(o.Priority)).
		Set("scheduled_at", o.ScheduledAt).
		Set("started_at", o.StartedAt).
		Set("ended_at", o.EndedAt).
		Set("reported_fault", o.ReportedFault).
		Set("diagnosis", o.Diagnosis).
		Set("work_performed", o.WorkPerformed).
		Set("rejection_reason", o.RejectionReason).
		Set("photo_before", o.PhotoBefore).
		Set("photo_after", o.PhotoAfter).
		Set("labor_hours", o.LaborHours).
		Set("labor_price", o.LaborPrice).
		Set("total_amount", o.TotalAmount).
		Set("invoice_id", o.InvoiceID).
		Set("journal_entry_id", o.JournalEntryID).
		Set("overdue_notified", o.OverdueNotified).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": o.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Update service_orders: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&o.UpdatedAt); err != nil {
		return notFoundOr(translatePgError(err, "конфликт при обновлении заказа"), "Заказ", o.ID)
	}
	return nil
}

func (r *ServiceOrderRepository) GetAll(ctx context.Context, filter types.Filter) ([]*entities.ServiceOrder, uint64, error) {
	base := psql.Select().From(orderTable)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		base = base.Where(sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"reported_fault": pattern},
		})
	}
	for key, value := range filter.Filter {
		column, ok := allowedOrderFilters[key]
		if !ok {
			continue
		}
		if s, isString := value.(string); isString && strings.Contains(s, ",") {
			base = base.Where(sq.Eq{column: strings.Split(s, ",")})
			continue
		}
		base = base.Where(sq.Eq{column: value})
	}

	countQuery, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки COUNT для service_orders: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта service_orders: %w", err)
	}
	if total == 0 {
		return []*entities.ServiceOrder{}, 0, nil
	}

	selectBuilder := base.Columns(orderFields)
	sorted := false
	for field, direction := range filter.Sort {
		if !allowedOrderSortFields[field] {
			continue
		}
		dir := "ASC"
		if strings.EqualFold(direction, "desc") {
			dir = "DESC"
		}
		selectBuilder = selectBuilder.OrderBy(field + " " + dir)
		sorted = true
	}
	if !sorted {
		selectBuilder = selectBuilder.OrderBy("id DESC")
	}
	if filter.WithPagination && filter.Limit > 0 {
		selectBuilder = selectBuilder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки SELECT для service_orders: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выборки service_orders: %w", err)
	}
	orders, err := r.scanRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *ServiceOrderRepository) CountActiveForTechnicianOnDate(ctx context.Context, tx pgx.Tx, technicianID uint64, day time.Time, excludeOrderID uint64) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	builder := psql.Select("COUNT(*)").From(orderTable).
		Where(sq.Eq{"technician_id": technicianID}).
		Where(sq.GtOrEq{"scheduled_at": start}).
		Where(sq.Lt{"scheduled_at": end}).
		Where(sq.NotEq{"state": []string{string(constants.StateDone), string(constants.StateCancelled)}})
	if excludeOrderID != 0 {
		builder = builder.Where(sq.NotEq{"id": excludeOrderID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса подсчёта заказов техника: %w", err)
	}

	var count int
	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта заказов техника: %w", err)
	}
	return count, nil
}

func (r *ServiceOrderRepository) ListNonTerminal(ctx context.Context, tx pgx.Tx) ([]*entities.ServiceOrder, error) {
	query, args, err := psql.Select(orderFields).From(orderTable).
		Where(sq.Eq{"state": statesToStrings(constants.NonTerminalStates)}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса ListNonTerminal: %w", err)
	}
	rows, err := r.getQuerier(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки незавершённых заказов: %w", err)
	}
	return r.scanRows(rows)
}

func (r *ServiceOrderRepository) ListScheduledBetween(ctx context.Context, tx pgx.Tx, from, to time.Time, states []constants.OrderState) ([]*entities.ServiceOrder, error) {
	builder := psql.Select(orderFields).From(orderTable).
		Where(sq.GtOrEq{"scheduled_at": from}).
		Where(sq.Lt{"scheduled_at": to}).
		OrderBy("scheduled_at", "id")
	if len(states) > 0 {
		builder = builder.Where(sq.Eq{"state": statesToStrings(states)})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса ListScheduledBetween: %w", err)
	}
	rows, err := r.getQuerier(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки заказов по дате: %w", err)
	}
	return r.scanRows(rows)
}

func (r *ServiceOrderRepository) ListByTechnicianBetween(ctx context.Context, technicianID uint64, from, to time.Time) ([]*entities.ServiceOrder, error) {
	query, args, err := psql.Select(orderFields).From(orderTable).
		Where(sq.Eq{"technician_id": technicianID}).
		Where(sq.GtOrEq{"scheduled_at": from}).
		Where(sq.Lt{"scheduled_at": to}).
		OrderBy("scheduled_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса расписания техника: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки расписания техника: %w", err)
	}
	return r.scanRows(rows)
}

func (r *ServiceOrderRepository) ListByEquipment(ctx context.Context, equipmentID uint64) ([]*entities.ServiceOrder, error) {
	query, args, err := psql.Select(orderFields).From(orderTable).
		Where(sq.Eq{"equipment_id": equipmentID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса истории оборудования: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки истории оборудования: %w", err)
	}
	return r.scanRows(rows)
}

func (r *ServiceOrderRepository) CountByStateForTechnician(ctx context.Context, technicianID uint64) (map[constants.OrderState]int, error) {
	query, args, err := psql.Select("state", "COUNT(*)").From(orderTable).
		Where(sq.Eq{"technician_id": technicianID}).
		GroupBy("state").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса загрузки техника: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки загрузки техника: %w", err)
	}
	defer rows.Close()

	result := make(map[constants.OrderState]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования загрузки техника: %w", err)
		}
		result[constants.OrderState(state)] = count
	}
	return result, rows.Err()
}

func statesToStrings(states []constants.OrderState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
