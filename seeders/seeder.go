package seeders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"field-service/pkg/constants"
)

// SeedCoreDictionaries наполняет справочники без зависимостей: виды услуг и склады.
func SeedCoreDictionaries(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("▶️  Запуск наполнения базовых справочников...")
	if err := inTx(ctx, db, seedServiceTypes); err != nil {
		return fmt.Errorf("виды услуг: %w", err)
	}
	if err := inTx(ctx, db, seedWarehouses); err != nil {
		return fmt.Errorf("склады: %w", err)
	}
	log.Println("✅ Наполнение базовых справочников завершено!")
	return nil
}

// SeedDemo - техники, товары с начальным остатком, клиенты и их оборудование.
func SeedDemo(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("▶️  Запуск наполнения демо-данных...")
	if err := inTx(ctx, db, seedTechnicians); err != nil {
		return fmt.Errorf("техники: %w", err)
	}
	if err := inTx(ctx, db, seedProducts); err != nil {
		return fmt.Errorf("товары: %w", err)
	}
	if err := inTx(ctx, db, seedCustomers); err != nil {
		return fmt.Errorf("клиенты: %w", err)
	}
	log.Println("✅ Демо-данные загружены!")
	return nil
}

func inTx(ctx context.Context, db *pgxpool.Pool, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func seedServiceTypes(ctx context.Context, tx pgx.Tx) error {
	log.Println("  - Наполнение таблицы 'service_types'...")
	query := `INSERT INTO service_types (code, name, base_price, estimated_hours, requires_diagnosis, requires_approval, requires_parts, allow_photos)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, $8)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, base_price = EXCLUDED.base_price`
	for _, s := range serviceTypesData {
		if _, err := tx.Exec(ctx, query, s.Code, s.Name, s.BasePrice, s.EstimatedHours,
			s.RequiresDiagnosis, s.RequiresApproval, s.RequiresParts, s.AllowPhotos); err != nil {
			return err
		}
	}
	return nil
}

func seedWarehouses(ctx context.Context, tx pgx.Tx) error {
	log.Println("  - Наполнение таблицы 'warehouses'...")
	for _, w := range warehousesData {
		if _, err := tx.Exec(ctx, `INSERT INTO warehouses (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`, w.Code, w.Name); err != nil {
			return err
		}
	}
	return nil
}

func seedTechnicians(ctx context.Context, tx pgx.Tx) error {
	log.Println("  - Наполнение таблицы 'technicians'...")
	query := `INSERT INTO technicians (user_id, name, phone, available_hours, max_daily_orders, warehouse_id, specialties)
		VALUES ($1, $2, $3, $4, $5, (SELECT id FROM warehouses WHERE code = NULLIF($6, '')), $7)
		ON CONFLICT (user_id) DO NOTHING`
	for _, t := range techniciansData {
		if _, err := tx.Exec(ctx, query, t.UserID, t.Name, t.Phone, t.AvailableHours, t.MaxDailyOrders, t.WarehouseCode, t.Specialties); err != nil {
			return err
		}
	}
	return nil
}

// seedProducts: начальный остаток проходит через журнал (операция CREATE),
// иначе журнал не сойдётся с остатком. Машины техников получают по половине.
func seedProducts(ctx context.Context, tx pgx.Tx) error {
	log.Println("  - Наполнение таблицы 'products' и журнала остатков...")
	for _, p := range productsData {
		var id uint64
		err := tx.QueryRow(ctx, `INSERT INTO products (sku, name, list_price, quantity, alert_threshold)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric)
			ON CONFLICT (sku) DO NOTHING RETURNING id`,
			p.SKU, p.Name, p.ListPrice, p.Quantity, p.AlertThreshold).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // уже есть
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO stock_ledger (product_id, previous_quantity, new_quantity, operation, note)
			VALUES ($1, 0, $2::numeric, $3, 'начальный остаток')`, id, p.Quantity, string(constants.LedgerCreate)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO warehouse_stock (warehouse_id, product_id, quantity)
			SELECT w.id, $1, $2::numeric / 2 FROM warehouses w WHERE w.code LIKE 'VAN-%'
			ON CONFLICT DO NOTHING`, id, p.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func seedCustomers(ctx context.Context, tx pgx.Tx) error {
	log.Println("  - Наполнение таблиц 'customers' и 'equipment'...")
	now := time.Now()
	for _, c := range customersData {
		var customerID uint64
		err := tx.QueryRow(ctx, `INSERT INTO customers (code, name, email, phone) VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name RETURNING id`,
			c.Code, c.Name, c.Email, c.Phone).Scan(&customerID)
		if err != nil {
			return err
		}
		for _, e := range c.Equipment {
			var warranty *time.Time
			if e.WarrantyYears != 0 {
				w := now.AddDate(e.WarrantyYears, 0, 0)
				warranty = &w
			}
			if _, err := tx.Exec(ctx, `INSERT INTO equipment (customer_id, name, equipment_type, brand, model, serial_number, warranty_expiry, location)
				VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
				ON CONFLICT (brand, model, serial_number) DO NOTHING`,
				customerID, e.Name, e.EquipmentType, e.Brand, e.Model, e.SerialNumber, warranty, e.Location); err != nil {
				return err
			}
		}
	}
	return nil
}
