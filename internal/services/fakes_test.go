package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"field-service/internal/entities"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
	"field-service/pkg/eventbus"
	"field-service/pkg/types"
)

// memStore - хранилище в памяти для тестов сервисов. Репозитории отдают копии,
// поэтому изменения попадают в хранилище только через Create/Update.
type memStore struct {
	orders       map[uint64]entities.ServiceOrder
	lines        map[uint64]entities.RefactionLine
	technicians  map[uint64]entities.Technician
	serviceTypes map[uint64]entities.ServiceType
	customers    map[uint64]entities.Customer
	equipment    map[uint64]entities.Equipment
	products     map[uint64]entities.Product
	ledger       []entities.StockLedgerEntry
	history      []entities.OrderHistory
	invoices     map[uint64]entities.Invoice
	posted       map[uint64]bool
	journal      []entities.JournalEntry
	warehouse    map[[2]uint64]decimal.Decimal
	movements    []entities.StockMovement
	nextID       uint64
	orderSeq     int

	failLedger bool
}

func newMemStore() *memStore {
	return &memStore{
		orders:       map[uint64]entities.ServiceOrder{},
		lines:        map[uint64]entities.RefactionLine{},
		technicians:  map[uint64]entities.Technician{},
		serviceTypes: map[uint64]entities.ServiceType{},
		customers:    map[uint64]entities.Customer{},
		equipment:    map[uint64]entities.Equipment{},
		products:     map[uint64]entities.Product{},
		invoices:     map[uint64]entities.Invoice{},
		posted:       map[uint64]bool{},
		warehouse:    map[[2]uint64]decimal.Decimal{},
		nextID:       1000,
	}
}

func (s *memStore) id() uint64 {
	s.nextID++
	return s.nextID
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() *memStore {
	c := *s
	c.orders = cloneMap(s.orders)
	c.lines = cloneMap(s.lines)
	c.technicians = cloneMap(s.technicians)
	c.serviceTypes = cloneMap(s.serviceTypes)
	c.customers = cloneMap(s.customers)
	c.equipment = cloneMap(s.equipment)
	c.products = cloneMap(s.products)
	c.invoices = cloneMap(s.invoices)
	c.posted = cloneMap(s.posted)
	c.warehouse = cloneMap(s.warehouse)
	c.ledger = append([]entities.StockLedgerEntry(nil), s.ledger...)
	c.history = append([]entities.OrderHistory(nil), s.history...)
	c.journal = append([]entities.JournalEntry(nil), s.journal...)
	c.movements = append([]entities.StockMovement(nil), s.movements...)
	return &c
}

func (s *memStore) restore(from *memStore) {
	*s = *from
}

func (s *memStore) ledgerFor(productID uint64) []entities.StockLedgerEntry {
	var out []entities.StockLedgerEntry
	for _, e := range s.ledger {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) historyFor(orderID uint64, eventType string) []entities.OrderHistory {
	var out []entities.OrderHistory
	for _, h := range s.history {
		if h.OrderID == orderID && (eventType == "" || h.EventType == eventType) {
			out = append(out, h)
		}
	}
	return out
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ---------- транзакции ----------

// fakeTxManager: fn получает nil вместо транзакции, при ошибке хранилище откатывается.
type fakeTxManager struct {
	store *memStore
	runs  int
}

func (m *fakeTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	m.runs++
	snap := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// ---------- заказы ----------

type fakeOrderRepo struct{ s *memStore }

func (r *fakeOrderRepo) Create(_ context.Context, _ pgx.Tx, o *entities.ServiceOrder) error {
	r.s.orderSeq++
	o.ID = r.s.id()
	o.Name = fmt.Sprintf("OS%05d", r.s.orderSeq)
	r.s.orders[o.ID] = *o
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.ServiceOrder, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Заказ", id)
	}
	return &o, nil
}

func (r *fakeOrderRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ServiceOrder, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *fakeOrderRepo) Update(_ context.Context, _ pgx.Tx, o *entities.ServiceOrder) error {
	if _, ok := r.s.orders[o.ID]; !ok {
		return apperrors.NewNotFoundError("Заказ", o.ID)
	}
	r.s.orders[o.ID] = *o
	return nil
}

func (r *fakeOrderRepo) all(match func(o entities.ServiceOrder) bool) []*entities.ServiceOrder {
	var out []*entities.ServiceOrder
	for _, id := range sortedKeys(r.s.orders) {
		o := r.s.orders[id]
		if match(o) {
			out = append(out, &o)
		}
	}
	return out
}

func (r *fakeOrderRepo) GetAll(_ context.Context, filter types.Filter) ([]*entities.ServiceOrder, uint64, error) {
	list := r.all(func(o entities.ServiceOrder) bool {
		return filter.Search == "" || strings.Contains(o.Name, filter.Search)
	})
	total := uint64(len(list))
	if filter.WithPagination && filter.Limit > 0 && filter.Offset < len(list) {
		end := filter.Offset + filter.Limit
		if end > len(list) {
			end = len(list)
		}
		list = list[filter.Offset:end]
	}
	return list, total, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

func (r *fakeOrderRepo) CountActiveForTechnicianOnDate(_ context.Context, _ pgx.Tx, technicianID uint64, day time.Time, excludeOrderID uint64) (int, error) {
	return len(r.all(func(o entities.ServiceOrder) bool {
		return o.ID != excludeOrderID &&
			o.TechnicianID.Valid && o.TechnicianID.Uint64 == technicianID &&
			o.ScheduledAt.Valid && sameDay(day, o.ScheduledAt.Time) &&
			!o.State.IsTerminal()
	})), nil
}

func (r *fakeOrderRepo) ListNonTerminal(_ context.Context, _ pgx.Tx) ([]*entities.ServiceOrder, error) {
	return r.all(func(o entities.ServiceOrder) bool { return !o.State.IsTerminal() }), nil
}

func (r *fakeOrderRepo) ListScheduledBetween(_ context.Context, _ pgx.Tx, from, to time.Time, states []constants.OrderState) ([]*entities.ServiceOrder, error) {
	return r.all(func(o entities.ServiceOrder) bool {
		if !o.ScheduledAt.Valid || o.ScheduledAt.Time.Before(from) || !o.ScheduledAt.Time.Before(to) {
			return false
		}
		for _, st := range states {
			if o.State == st {
				return true
			}
		}
		return len(states) == 0
	}), nil
}

func (r *fakeOrderRepo) ListByTechnicianBetween(_ context.Context, technicianID uint64, from, to time.Time) ([]*entities.ServiceOrder, error) {
	return r.all(func(o entities.ServiceOrder) bool {
		return o.TechnicianID.Valid && o.TechnicianID.Uint64 == technicianID &&
			o.ScheduledAt.Valid && !o.ScheduledAt.Time.Before(from) && o.ScheduledAt.Time.Before(to)
	}), nil
}

func (r *fakeOrderRepo) ListByEquipment(_ context.Context, equipmentID uint64) ([]*entities.ServiceOrder, error) {
	return r.all(func(o entities.ServiceOrder) bool { return o.EquipmentID == equipmentID }), nil
}

func (r *fakeOrderRepo) CountByStateForTechnician(_ context.Context, technicianID uint64) (map[constants.OrderState]int, error) {
	counts := map[constants.OrderState]int{}
	for _, o := range r.all(func(o entities.ServiceOrder) bool {
		return o.TechnicianID.Valid && o.TechnicianID.Uint64 == technicianID
	}) {
		counts[o.State]++
	}
	return counts, nil
}

// ---------- строки заказа ----------

type fakeLineRepo struct{ s *memStore }

func (r *fakeLineRepo) ListByOrder(_ context.Context, _ pgx.Tx, orderID uint64) ([]*entities.RefactionLine, error) {
	var out []*entities.RefactionLine
	for _, id := range sortedKeys(r.s.lines) {
		l := r.s.lines[id]
		if l.OrderID == orderID {
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r *fakeLineRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.RefactionLine, error) {
	l, ok := r.s.lines[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("строка заказа", id)
	}
	return &l, nil
}

func (r *fakeLineRepo) Create(_ context.Context, _ pgx.Tx, l *entities.RefactionLine) error {
	l.ID = r.s.id()
	r.s.lines[l.ID] = *l
	return nil
}

func (r *fakeLineRepo) Update(_ context.Context, _ pgx.Tx, l *entities.RefactionLine) error {
	if _, ok := r.s.lines[l.ID]; !ok {
		return apperrors.NewNotFoundError("строка заказа", l.ID)
	}
	r.s.lines[l.ID] = *l
	return nil
}

func (r *fakeLineRepo) Delete(_ context.Context, _ pgx.Tx, id uint64) error {
	if _, ok := r.s.lines[id]; !ok {
		return apperrors.NewNotFoundError("строка заказа", id)
	}
	delete(r.s.lines, id)
	return nil
}

// ---------- справочники ----------

type fakeTechnicianRepo struct {
	s      *memStore
	locked []uint64
}

func (r *fakeTechnicianRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Technician, error) {
	t, ok := r.s.technicians[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Техник", id)
	}
	return &t, nil
}

func (r *fakeTechnicianRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Technician, error) {
	t, err := r.FindByID(ctx, tx, id)
	if err == nil {
		r.locked = append(r.locked, id)
	}
	return t, err
}

func (r *fakeTechnicianRepo) ListActive(_ context.Context, _ pgx.Tx) ([]*entities.Technician, error) {
	var out []*entities.Technician
	for _, id := range sortedKeys(r.s.technicians) {
		t := r.s.technicians[id]
		if t.Active && t.IsTechnician {
			out = append(out, &t)
		}
	}
	return out, nil
}

func (r *fakeTechnicianRepo) GetAll(_ context.Context) ([]*entities.Technician, error) {
	var out []*entities.Technician
	for _, id := range sortedKeys(r.s.technicians) {
		t := r.s.technicians[id]
		out = append(out, &t)
	}
	return out, nil
}

func (r *fakeTechnicianRepo) Create(_ context.Context, _ pgx.Tx, t *entities.Technician) error {
	t.ID = r.s.id()
	r.s.technicians[t.ID] = *t
	return nil
}

func (r *fakeTechnicianRepo) Update(_ context.Context, _ pgx.Tx, t *entities.Technician) error {
	if _, ok := r.s.technicians[t.ID]; !ok {
		return apperrors.NewNotFoundError("Техник", t.ID)
	}
	r.s.technicians[t.ID] = *t
	return nil
}

type fakeServiceTypeRepo struct{ s *memStore }

func (r *fakeServiceTypeRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.ServiceType, error) {
	st, ok := r.s.serviceTypes[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Вид услуги", id)
	}
	return &st, nil
}

func (r *fakeServiceTypeRepo) GetAll(_ context.Context) ([]*entities.ServiceType, error) {
	var out []*entities.ServiceType
	for _, id := range sortedKeys(r.s.serviceTypes) {
		st := r.s.serviceTypes[id]
		out = append(out, &st)
	}
	return out, nil
}

func (r *fakeServiceTypeRepo) Create(_ context.Context, _ pgx.Tx, st *entities.ServiceType) error {
	for _, existing := range r.s.serviceTypes {
		if existing.Code == st.Code {
			return apperrors.NewConflictError("вид услуги с таким кодом уже существует", nil)
		}
	}
	st.ID = r.s.id()
	r.s.serviceTypes[st.ID] = *st
	return nil
}

type fakeCustomerRepo struct{ s *memStore }

func (r *fakeCustomerRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Клиент", id)
	}
	return &c, nil
}

func (r *fakeCustomerRepo) Create(_ context.Context, _ pgx.Tx, c *entities.Customer) error {
	for _, existing := range r.s.customers {
		if existing.Code == c.Code {
			return apperrors.NewConflictError("клиент с таким кодом уже существует", nil)
		}
	}
	c.ID = r.s.id()
	r.s.customers[c.ID] = *c
	return nil
}

type fakeEquipmentRepo struct{ s *memStore }

func (r *fakeEquipmentRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Equipment, error) {
	e, ok := r.s.equipment[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Оборудование", id)
	}
	return &e, nil
}

func (r *fakeEquipmentRepo) ListByCustomer(_ context.Context, customerID uint64) ([]*entities.Equipment, error) {
	var out []*entities.Equipment
	for _, id := range sortedKeys(r.s.equipment) {
		e := r.s.equipment[id]
		if e.CustomerID == customerID {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *fakeEquipmentRepo) Create(_ context.Context, _ pgx.Tx, e *entities.Equipment) error {
	for _, existing := range r.s.equipment {
		if existing.Brand == e.Brand && existing.Model == e.Model && existing.SerialNumber == e.SerialNumber {
			return apperrors.NewConflictError("серийный номер уже зарегистрирован", nil)
		}
	}
	e.ID = r.s.id()
	r.s.equipment[e.ID] = *e
	return nil
}

// ---------- склад ----------

type fakeProductRepo struct{ s *memStore }

func (r *fakeProductRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Товар", id)
	}
	return &p, nil
}

func (r *fakeProductRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Product, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *fakeProductRepo) GetAll(_ context.Context) ([]*entities.Product, error) {
	var out []*entities.Product
	for _, id := range sortedKeys(r.s.products) {
		p := r.s.products[id]
		out = append(out, &p)
	}
	return out, nil
}

func (r *fakeProductRepo) Create(_ context.Context, _ pgx.Tx, p *entities.Product) error {
	for _, existing := range r.s.products {
		if existing.SKU == p.SKU {
			return apperrors.NewConflictError("товар с таким артикулом уже существует", nil)
		}
	}
	p.ID = r.s.id()
	r.s.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) UpdateQuantity(_ context.Context, _ pgx.Tx, id uint64, quantity decimal.Decimal) error {
	p, ok := r.s.products[id]
	if !ok {
		return apperrors.NewNotFoundError("Товар", id)
	}
	p.Quantity = quantity
	r.s.products[id] = p
	return nil
}

var errLedgerUnavailable = errors.New("журнал недоступен")

type fakeLedgerRepo struct{ s *memStore }

func (r *fakeLedgerRepo) Append(_ context.Context, _ pgx.Tx, e *entities.StockLedgerEntry) error {
	if r.s.failLedger {
		return errLedgerUnavailable
	}
	e.ID = r.s.id()
	r.s.ledger = append(r.s.ledger, *e)
	return nil
}

func (r *fakeLedgerRepo) ListByProduct(_ context.Context, productID uint64, limit uint64) ([]*entities.StockLedgerEntry, error) {
	entries := r.s.ledgerFor(productID)
	var out []*entities.StockLedgerEntry
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		out = append(out, &e)
		if limit > 0 && uint64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

type fakeHistoryRepo struct{ s *memStore }

func (r *fakeHistoryRepo) CreateInTx(_ context.Context, _ pgx.Tx, h *entities.OrderHistory) error {
	h.ID = r.s.id()
	r.s.history = append(r.s.history, *h)
	return nil
}

func (r *fakeHistoryRepo) FindByOrderID(_ context.Context, orderID uint64) ([]*entities.OrderHistory, error) {
	var out []*entities.OrderHistory
	for _, h := range r.s.historyFor(orderID, "") {
		h := h
		out = append(out, &h)
	}
	return out, nil
}

// fakeInvoices - бухгалтерия в памяти.
type fakeInvoices struct{ s *memStore }

func (f *fakeInvoices) CreateInvoice(_ context.Context, _ pgx.Tx, inv *entities.Invoice) (uint64, error) {
	for _, existing := range f.s.invoices {
		if existing.OrderID == inv.OrderID {
			return 0, apperrors.NewConflictError("счёт по заказу уже создан", nil)
		}
	}
	inv.ID = f.s.id()
	f.s.invoices[inv.ID] = *inv
	return inv.ID, nil
}

func (f *fakeInvoices) IsPosted(_ context.Context, _ pgx.Tx, invoiceID uint64) (bool, error) {
	if _, ok := f.s.invoices[invoiceID]; !ok {
		return false, apperrors.NewNotFoundError("Счёт", invoiceID)
	}
	return f.s.posted[invoiceID], nil
}

func (f *fakeInvoices) MarkPosted(_ context.Context, _ pgx.Tx, invoiceID uint64) error {
	f.s.posted[invoiceID] = true
	return nil
}

func (f *fakeInvoices) PostJournalEntry(_ context.Context, _ pgx.Tx, je *entities.JournalEntry) (uint64, error) {
	je.ID = f.s.id()
	f.s.journal = append(f.s.journal, *je)
	return je.ID, nil
}

// fakeBridge - остатки на складах техников.
type fakeBridge struct{ s *memStore }

func (b *fakeBridge) AvailableAt(_ context.Context, _ pgx.Tx, warehouseID, productID uint64) (decimal.Decimal, error) {
	return b.s.warehouse[[2]uint64{warehouseID, productID}], nil
}

func (b *fakeBridge) CreateMovement(_ context.Context, _ pgx.Tx, m *entities.StockMovement) error {
	key := [2]uint64{m.WarehouseID, m.ProductID}
	if b.s.warehouse[key].LessThan(m.Quantity) {
		return apperrors.NewInsufficientStockError(m.ProductID, m.Quantity, b.s.warehouse[key])
	}
	b.s.warehouse[key] = b.s.warehouse[key].Sub(m.Quantity)
	m.ID = b.s.id()
	b.s.movements = append(b.s.movements, *m)
	return nil
}

// ---------- окружение ----------

type fakeCache struct {
	mu      sync.Mutex
	data    map[string]string
	deleted []string
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string]string{}} }

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	default:
		c.data[key] = fmt.Sprint(v)
	}
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name()
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// ---------- фикстуры ----------

var (
	testNow       = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	testScheduled = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	dispatcher = entities.Actor{UserID: 1, Role: constants.RoleDispatcher}
	customer   = entities.Actor{UserID: 50, Role: constants.RoleCustomer}
)

const (
	customerID        uint64 = 1
	otherCustomerID   uint64 = 2
	equipmentID       uint64 = 10
	otherEquipmentID  uint64 = 11
	repairTypeID      uint64 = 20
	diagnosisTypeID   uint64 = 21
	partsTypeID       uint64 = 22
	techIvanID        uint64 = 30
	techSergeyID      uint64 = 31
	productFilterID   uint64 = 40
	productCompressor uint64 = 41
	vanWarehouseID    uint64 = 60

	ivanUserID   uint64 = 101
	sergeyUserID uint64 = 102
)

func ivan() entities.Actor   { return entities.Actor{UserID: ivanUserID, Role: constants.RoleTechnician} }
func sergey() entities.Actor { return entities.Actor{UserID: sergeyUserID, Role: constants.RoleTechnician} }

// seedCatalog: два клиента, два техника (9-18, лимиты 2 и 1), три вида услуг, два товара.
func seedCatalog(s *memStore) {
	s.customers[customerID] = entities.Customer{ID: customerID, Code: "ACME", Name: "ООО Акме"}
	s.customers[otherCustomerID] = entities.Customer{ID: otherCustomerID, Code: "BETA", Name: "ИП Бета"}
	s.equipment[equipmentID] = entities.Equipment{ID: equipmentID, CustomerID: customerID, Name: "Витрина", Brand: "Polair", Model: "DM105", SerialNumber: "PL-1"}
	s.equipment[otherEquipmentID] = entities.Equipment{ID: otherEquipmentID, CustomerID: otherCustomerID, Name: "Кондиционер", Brand: "Daikin", Model: "FTXB", SerialNumber: "DK-1"}

	s.serviceTypes[repairTypeID] = entities.ServiceType{
		ID: repairTypeID, Name: "Ремонт", Code: "REPAIR", BasePrice: decimal.NewFromInt(1000),
		ServiceTypePolicy: entities.ServiceTypePolicy{RequiresDiagnosis: true, RequiresApproval: true},
	}
	s.serviceTypes[diagnosisTypeID] = entities.ServiceType{
		ID: diagnosisTypeID, Name: "Диагностика", Code: "DIAG", BasePrice: decimal.NewFromInt(500),
	}
	s.serviceTypes[partsTypeID] = entities.ServiceType{
		ID: partsTypeID, Name: "Замена запчастей", Code: "PARTS", BasePrice: decimal.NewFromInt(800),
		ServiceTypePolicy: entities.ServiceTypePolicy{RequiresDiagnosis: true, RequiresParts: true},
	}

	s.technicians[techIvanID] = entities.Technician{
		ID: techIvanID, UserID: null.Uint64From(ivanUserID), Name: "Иван", IsTechnician: true, Active: true,
		AvailableHours: "9-13,14-18", MaxDailyOrders: null.IntFrom(2),
	}
	s.technicians[techSergeyID] = entities.Technician{
		ID: techSergeyID, UserID: null.Uint64From(sergeyUserID), Name: "Сергей", IsTechnician: true, Active: true,
		AvailableHours: "9-18", MaxDailyOrders: null.IntFrom(1),
	}

	s.products[productFilterID] = entities.Product{
		ID: productFilterID, Name: "Фильтр", SKU: "FLT", ListPrice: decimal.NewFromInt(100),
		Quantity: decimal.NewFromInt(10), AlertThreshold: decimal.NewFromInt(2), Active: true,
	}
	s.products[productCompressor] = entities.Product{
		ID: productCompressor, Name: "Компрессор", SKU: "CMP", ListPrice: decimal.NewFromInt(4500),
		Quantity: decimal.NewFromInt(1), AlertThreshold: decimal.Zero, Active: true,
	}
}

// testEnv собирает сервисы поверх хранилища в памяти.
type testEnv struct {
	store     *memStore
	tx        *fakeTxManager
	cache     *fakeCache
	publisher *recordingPublisher
	clock     *fakeClock

	orders       *fakeOrderRepo
	technicians  *fakeTechnicianRepo
	availability *AvailabilityService
	ledger       *StockLedgerService
	service      *ServiceOrderService
}

func newTestEnv(policy OrderPolicy) *testEnv {
	store := newMemStore()
	seedCatalog(store)

	env := &testEnv{
		store:     store,
		tx:        &fakeTxManager{store: store},
		cache:     newFakeCache(),
		publisher: &recordingPublisher{},
		clock:     &fakeClock{now: testNow},
		orders:    &fakeOrderRepo{s: store},
	}
	env.technicians = &fakeTechnicianRepo{s: store}
	logger := zap.NewNop()

	env.availability = NewAvailabilityService(env.orders, env.technicians, 3, logger)
	lines := &fakeLineRepo{s: store}
	products := &fakeProductRepo{s: store}
	env.ledger = NewStockLedgerService(env.tx, products, &fakeLedgerRepo{s: store}, lines,
		&fakeBridge{s: store}, env.publisher, decimal.NewFromInt(1), env.clock.Now, logger)

	env.service = NewServiceOrderService(env.tx, OrderRepositories{
		Orders:       env.orders,
		Lines:        lines,
		Technicians:  env.technicians,
		ServiceTypes: &fakeServiceTypeRepo{s: store},
		Customers:    &fakeCustomerRepo{s: store},
		Equipment:    &fakeEquipmentRepo{s: store},
		Products:     products,
		History:      &fakeHistoryRepo{s: store},
	}, env.availability, env.ledger, &fakeInvoices{s: store}, env.cache, env.publisher, policy, env.clock.Now, logger)
	return env
}

// putOrder кладёт заказ в хранилище напрямую, минуя автомат состояний.
func (e *testEnv) putOrder(o entities.ServiceOrder) uint64 {
	e.store.orderSeq++
	o.ID = e.store.id()
	if o.Name == "" {
		o.Name = fmt.Sprintf("OS%05d", e.store.orderSeq)
	}
	if o.CustomerID == 0 {
		o.CustomerID = customerID
	}
	if o.EquipmentID == 0 {
		o.EquipmentID = equipmentID
	}
	if o.ServiceTypeID == 0 {
		o.ServiceTypeID = repairTypeID
	}
	if o.Priority == "" {
		o.Priority = constants.PriorityNormal
	}
	e.store.orders[o.ID] = o
	return o.ID
}

func (e *testEnv) putLine(orderID, productID uint64, qty int64, reserved bool) uint64 {
	p := e.store.products[productID]
	l := entities.RefactionLine{
		OrderID:     orderID,
		ProductID:   productID,
		Description: p.Name,
		Quantity:    decimal.NewFromInt(qty),
		UnitPrice:   p.ListPrice,
	}
	l.ComputeSubtotal()
	if reserved {
		l.ReservedQty = l.Quantity
	}
	l.ID = e.store.id()
	e.store.lines[l.ID] = l
	return l.ID
}

func (e *testEnv) order(id uint64) entities.ServiceOrder { return e.store.orders[id] }

func (e *testEnv) quantity(productID uint64) decimal.Decimal {
	return e.store.products[productID].Quantity
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }
