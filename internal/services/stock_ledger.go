package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/events"
	"field-service/internal/repositories"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
)

type StockServiceInterface interface {
	CreateProduct(ctx context.Context, actor entities.Actor, d dto.CreateProductDTO) (*entities.Product, error)
	Entry(ctx context.Context, actor entities.Actor, productID uint64, d dto.StockQuantityDTO) (*entities.Product, error)
	Exit(ctx context.Context, actor entities.Actor, productID uint64, d dto.StockQuantityDTO) (*entities.Product, error)
	Adjust(ctx context.Context, actor entities.Actor, productID uint64, d dto.StockQuantityDTO) (*entities.Product, error)
	Count(ctx context.Context, actor entities.Actor, productID uint64, d dto.StockQuantityDTO) (*entities.Product, error)
	GetProduct(ctx context.Context, id uint64) (*entities.Product, error)
	ListProducts(ctx context.Context) ([]*entities.Product, error)
	Ledger(ctx context.Context, productID uint64, limit uint64) ([]*entities.StockLedgerEntry, error)
}

// StockLedgerService - единственный способ изменить управляемый остаток товара.
// Каждое изменение сопровождается ровно одной записью журнала.
type StockLedgerService struct {
	txManager        repositories.TxManagerInterface
	productRepo      repositories.ProductRepositoryInterface
	ledgerRepo       repositories.StockLedgerRepositoryInterface
	lineRepo         repositories.RefactionLineRepositoryInterface
	bridge           StockBridge
	publisher        EventPublisher
	defaultThreshold decimal.Decimal
	clock            Clock
	logger           *zap.Logger
}

func NewStockLedgerService(
	txManager repositories.TxManagerInterface,
	productRepo repositories.ProductRepositoryInterface,
	ledgerRepo repositories.StockLedgerRepositoryInterface,
	lineRepo repositories.RefactionLineRepositoryInterface,
	bridge StockBridge,
	publisher EventPublisher,
	defaultThreshold decimal.Decimal,
	clock Clock,
	logger *zap.Logger,
) *StockLedgerService {
	return &StockLedgerService{
		txManager:        txManager,
		productRepo:      productRepo,
		ledgerRepo:       ledgerRepo,
		lineRepo:         lineRepo,
		bridge:           bridge,
		publisher:        publisher,
		defaultThreshold: defaultThreshold,
		clock:            clock,
		logger:           logger,
	}
}

type ledgerRef struct {
	orderID null.Uint64
	lineID  null.Uint64
	note    string
}

func lineRef(line *entities.RefactionLine) ledgerRef {
	return ledgerRef{orderID: null.Uint64From(line.OrderID), lineID: null.Uint64From(line.ID)}
}

// mutate блокирует строку товара, вычисляет новый остаток, сохраняет его и пишет журнал.
// Ошибка записи журнала откатывает всю операцию.
func (s *StockLedgerService) mutate(
	ctx context.Context, tx pgx.Tx, u *unitOfWork,
	productID uint64, op constants.LedgerOperation, ref ledgerRef,
	next func(current decimal.Decimal) (decimal.Decimal, error),
) (*entities.Product, error) {
	product, err := s.productRepo.FindByIDForUpdate(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	previous := product.Quantity
	newQty, err := next(previous)
	if err != nil {
		return nil, err
	}
	if newQty.IsNegative() {
		return nil, apperrors.NewInsufficientStockError(productID, previous.Sub(newQty), previous)
	}

	if err := s.productRepo.UpdateQuantity(ctx, tx, productID, newQty); err != nil {
		return nil, err
	}

	entry := &entities.StockLedgerEntry{
		ProductID:        productID,
		PreviousQuantity: previous,
		NewQuantity:      newQty,
		Operation:        op,
		OrderID:          ref.orderID,
		LineID:           ref.lineID,
		UserID:           u.actor.UserID,
		CreatedAt:        u.now,
	}
	if ref.note != "" {
		entry.Note = null.StringFrom(ref.note)
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("не удалось записать журнал остатков, операция %s отменена: %w", op, err)
	}

	product.Quantity = newQty
	// приход и возврат резерва не тревожат, даже если остаток всё ещё ниже порога
	if newQty.LessThan(previous) && product.IsLow() {
		u.emit(events.LowStockEvent{Product: *product, Operation: op})
	}
	return product, nil
}

func takeFrom(productID uint64, qty decimal.Decimal) func(decimal.Decimal) (decimal.Decimal, error) {
	return func(current decimal.Decimal) (decimal.Decimal, error) {
		if current.LessThan(qty) {
			return decimal.Zero, apperrors.NewInsufficientStockError(productID, qty, current)
		}
		return current.Sub(qty), nil
	}
}

func putBack(qty decimal.Decimal) func(decimal.Decimal) (decimal.Decimal, error) {
	return func(current decimal.Decimal) (decimal.Decimal, error) {
		return current.Add(qty), nil
	}
}

// reserve списывает количество строки из свободного остатка. Повторный вызов ничего не делает.
func (s *StockLedgerService) reserve(ctx context.Context, tx pgx.Tx, u *unitOfWork, line *entities.RefactionLine) error {
	if line.IsReserved() || line.Consumed {
		return nil
	}
	if _, err := s.mutate(ctx, tx, u, line.ProductID, constants.LedgerReserve, lineRef(line), takeFrom(line.ProductID, line.Quantity)); err != nil {
		return err
	}
	line.ReservedQty = line.Quantity
	return s.lineRepo.Update(ctx, tx, line)
}

// consume - расход при завершении работ. Зарезервированная строка уже списана,
// остаток повторно не меняется.
func (s *StockLedgerService) consume(ctx context.Context, tx pgx.Tx, u *unitOfWork, line *entities.RefactionLine, tech *entities.Technician) error {
	if line.Consumed {
		return nil
	}
	if !line.IsReserved() {
		if _, err := s.mutate(ctx, tx, u, line.ProductID, constants.LedgerConsume, lineRef(line), takeFrom(line.ProductID, line.Quantity)); err != nil {
			return err
		}
	}

	if s.bridge != nil && tech != nil && tech.WarehouseID.Valid {
		movement := &entities.StockMovement{
			WarehouseID: tech.WarehouseID.Uint64,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			OrderID:     line.OrderID,
			Reference:   fmt.Sprintf("line:%d", line.ID),
		}
		if err := s.bridge.CreateMovement(ctx, tx, movement); err != nil {
			return err
		}
	}

	line.Consumed = true
	return s.lineRepo.Update(ctx, tx, line)
}

// cancelReservation возвращает зарезервированное количество в свободный остаток.
func (s *StockLedgerService) cancelReservation(ctx context.Context, tx pgx.Tx, u *unitOfWork, line *entities.RefactionLine) error {
	if !line.IsReserved() || line.Consumed {
		return nil
	}
	if _, err := s.mutate(ctx, tx, u, line.ProductID, constants.LedgerCancelReserve, lineRef(line), putBack(line.ReservedQty)); err != nil {
		return err
	}
	line.ReservedQty = decimal.Zero
	return s.lineRepo.Update(ctx, tx, line)
}

// checkAvailability проверяет все строки разом, ничего не меняя.
// Строки товаров блокируются в порядке ID, чтобы параллельные операции не ловили взаимоблокировку.
// forConsume: учитывать склад техника, если он задан.
func (s *StockLedgerService) checkAvailability(ctx context.Context, tx pgx.Tx, lines []*entities.RefactionLine, tech *entities.Technician, forConsume bool) error {
	needed := make(map[uint64]decimal.Decimal)
	onHand := make(map[uint64]decimal.Decimal)
	for _, line := range lines {
		if line.Consumed {
			continue
		}
		onHand[line.ProductID] = onHand[line.ProductID].Add(line.Quantity)
		if line.IsReserved() {
			continue
		}
		needed[line.ProductID] = needed[line.ProductID].Add(line.Quantity)
	}

	productIDs := make([]uint64, 0, len(onHand))
	for id := range onHand {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	useBridge := forConsume && s.bridge != nil && tech != nil && tech.WarehouseID.Valid
	for _, id := range productIDs {
		if qty, ok := needed[id]; ok && qty.IsPositive() {
			product, err := s.productRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if product.Quantity.LessThan(qty) {
				return apperrors.NewInsufficientStockError(id, qty, product.Quantity)
			}
		}
		if useBridge {
			available, err := s.bridge.AvailableAt(ctx, tx, tech.WarehouseID.Uint64, id)
			if err != nil {
				return err
			}
			if available.LessThan(onHand[id]) {
				return apperrors.NewInsufficientStockError(id, onHand[id], available)
			}
		}
	}
	return nil
}

// ============================================================
// ОПЕРАЦИИ СКЛАДА (мастер изменения остатков)
// ============================================================

func (s *StockLedgerService) run(ctx context.Context, actor entities.Actor, fn func(tx pgx.Tx, u *unitOfWork) error) error {
	u := newUnitOfWork(actor, s.clock())
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		u.reset()
		return fn(tx, u)
	})
	if err != nil {
		return err
	}
	u.publish(ctx, s.publisher)
	return nil
}

func (s *StockLedgerService) CreateProduct(ctx context.Context, actor entities.Actor, d dto.CreateProductDTO) (*entities.Product, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, apperrors.NewValidationError("name", "название товара обязательно")
	}
	if d.InitialQuantity.IsNegative() {
		return nil, apperrors.NewValidationError("initial_quantity", "начальный остаток не может быть отрицательным")
	}
	if d.ListPrice.IsNegative() {
		return nil, apperrors.NewValidationError("list_price", "цена не может быть отрицательной")
	}
	threshold := s.defaultThreshold
	if d.AlertThreshold.Valid {
		threshold = d.AlertThreshold.Decimal
	}

	product := &entities.Product{
		Name:           strings.TrimSpace(d.Name),
		SKU:            strings.TrimSpace(d.SKU),
		ListPrice:      d.ListPrice,
		Quantity:       d.InitialQuantity,
		AlertThreshold: threshold,
		Active:         true,
	}

	err := s.run(ctx, actor, func(tx pgx.Tx, u *unitOfWork) error {
		if err := s.productRepo.Create(ctx, tx, product); err != nil {
			return err
		}
		entry := &entities.StockLedgerEntry{
			ProductID:        product.ID,
			PreviousQuantity: decimal.Zero,
			NewQuantity:      product.Quantity,
			Operation:        constants.LedgerCreate,
			UserID:           u.actor.UserID,
			CreatedAt:        u.now,
		}
		if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
			return fmt.Errorf("не удалось записать журнал остатков, создание товара отменено: %w", err)
		}
		if product.IsLow() {
			u.emit(events.LowStockEvent{Product: *product, Operation: constants.LedgerCreate})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("ошибка создания товара", zap.String("sku", product.SKU), zap.Error(err))
		return nil, err
	}
	s.logger.Info("товар создан", zap.Uint64("productID", product.ID), zap.String("sku", product.SKU))
	return product, nil
}

func (s *StockLedgerService) productOperation(ctx context.Context, actor entities.Actor, productID uint64, op constants.LedgerOperation, note string, next func(decimal.Decimal) (decimal.Decimal, error)) (*entities.Product, error) {
	var result *entities.Product
	err := s.run(ctx, actor, func(tx pgx.Tx, u *unitOfWork) error {
		p, err := s.mutate(ctx, tx, u, productID, op, ledgerRef{note: note}, next)
		if err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		s.logger.Warn("складская операция отклонена",
			zap.Uint64("productID", productID),
			zap.String("operation", string(op)),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

// Entry - приход товара.
func (s *StockLedgerService) Entry(ctx context.Context, actor entities.Actor, productID uint64, d dto.StockQuantityDTO) (*entities.Product, error) {
	if !d.Quantity.IsPositive() {
		return nil, apperrors.NewValidationError("quantity", "количество прихода должно быть больше нуля")
	}
	return s.productOperation(ctx, actor, productID, constants.LedgerEntry, d.Note, putBack(d.Quantity))
}

// Exit - расход товара вне заказов.
func (s *StockLedgerService) Exit(ctx context.Context, actor entities.Actor, productID uint64, d dto.StockQuantityDTO) (*entities.Product, error) {
	if !d.Quantity.IsPositive() {
		return nil, apperrors.NewValidationError("quantity", "количество расхода должно быть больше нуля")
	}
	return s.productOperation(ctx, actor, productID, constants.LedgerExit, d.Note, takeFrom(productID, d.Quantity))
}

// Adjust устанавливает остаток в заданное значение.
func (s *StockLedgerService) Adjust(ctx context.Context, actor entities.Actor, productID uint64, d dto.StockQuantityDTO) (*entities.Product, error) {
	if d.Quantity.IsNegative() {
		return nil, apperrors.NewValidationError("quantity", "остаток не может быть отрицательным")
	}
	return s.productOperation(ctx, actor, productID, constants.LedgerAdjust, d.Note, func(decimal.Decimal) (decimal.Decimal, error) {
		return d.Quantity, nil
	})
}

// Count фиксирует результат инвентаризации.
func (s *StockLedgerService) Count(ctx context.Context, actor entities.Actor, productID uint64, d dto.StockQuantityDTO) (*entities.Product, error) {
	if d.Quantity.IsNegative() {
		return nil, apperrors.NewValidationError("quantity", "подсчитанное количество не может быть отрицательным")
	}
	return s.productOperation(ctx, actor, productID, constants.LedgerCount, d.Note, func(decimal.Decimal) (decimal.Decimal, error) {
		return d.Quantity, nil
	})
}

func (s *StockLedgerService) GetProduct(ctx context.Context, id uint64) (*entities.Product, error) {
	return s.productRepo.FindByID(ctx, nil, id)
}

func (s *StockLedgerService) ListProducts(ctx context.Context) ([]*entities.Product, error) {
	return s.productRepo.GetAll(ctx)
}

func (s *StockLedgerService) Ledger(ctx context.Context, productID uint64, limit uint64) ([]*entities.StockLedgerEntry, error) {
	if _, err := s.productRepo.FindByID(ctx, nil, productID); err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListByProduct(ctx, productID, limit)
}
