package routes

import (
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"field-service/internal/repositories"
	"field-service/internal/services"
	"field-service/pkg/config"
	"field-service/pkg/eventbus"
	"field-service/pkg/qrcode"
)

const qrCodeSize = 256

// Dependencies - всё, что собирается один раз на процесс: хранилища и сервисы.
// Нужны и роутеру, и фоновым задачам в main.
type Dependencies struct {
	TxManager   *repositories.TxManager
	Orders      *repositories.ServiceOrderRepository
	Technicians *repositories.TechnicianRepository
	Customers   *repositories.CustomerRepository
	History     *repositories.OrderHistoryRepository

	OrderService      *services.ServiceOrderService
	StockService      *services.StockLedgerService
	TechnicianService *services.TechnicianService
	EquipmentService  *services.EquipmentService
	CatalogService    *services.CatalogService
	ReportService     *services.ReportService
	OverdueSweeper    *services.OverdueSweeper
	ReminderJob       *services.ReminderJob
}

// NewDependencies собирает граф зависимостей. redisClient может быть nil,
// тогда статус заказа не кешируется.
func NewDependencies(
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	bus *eventbus.Bus,
	cfg *config.Config,
	logger *zap.Logger,
) (*Dependencies, error) {
	threshold, err := decimal.NewFromString(cfg.Stock.DefaultAlertThreshold)
	if err != nil {
		return nil, err
	}
	clock := services.Clock(time.Now)

	// --- 1. РЕПОЗИТОРИИ ---
	txManager := repositories.NewTxManager(dbConn)
	orderRepo := repositories.NewServiceOrderRepository(dbConn, logger)
	lineRepo := repositories.NewRefactionLineRepository(dbConn, logger)
	technicianRepo := repositories.NewTechnicianRepository(dbConn, logger)
	serviceTypeRepo := repositories.NewServiceTypeRepository(dbConn, logger)
	customerRepo := repositories.NewCustomerRepository(dbConn, logger)
	equipmentRepo := repositories.NewEquipmentRepository(dbConn, logger)
	productRepo := repositories.NewProductRepository(dbConn, logger)
	ledgerRepo := repositories.NewStockLedgerRepository(dbConn, logger)
	historyRepo := repositories.NewOrderHistoryRepository(dbConn)
	invoiceRepo := repositories.NewInvoiceRepository(dbConn, logger)
	warehouseRepo := repositories.NewWarehouseRepository(dbConn, logger)

	var cacheRepo repositories.CacheRepositoryInterface
	if redisClient != nil {
		cacheRepo = repositories.NewRedisCacheRepository(redisClient)
	}

	// --- 2. СЕРВИСЫ ---
	availability := services.NewAvailabilityService(orderRepo, technicianRepo, cfg.Scheduling.DefaultMaxDailyOrders, logger)
	ledger := services.NewStockLedgerService(txManager, productRepo, ledgerRepo, lineRepo, warehouseRepo, bus, threshold, clock, logger)

	orderService := services.NewServiceOrderService(
		txManager,
		services.OrderRepositories{
			Orders:       orderRepo,
			Lines:        lineRepo,
			Technicians:  technicianRepo,
			ServiceTypes: serviceTypeRepo,
			Customers:    customerRepo,
			Equipment:    equipmentRepo,
			Products:     productRepo,
			History:      historyRepo,
		},
		availability,
		ledger,
		invoiceRepo,
		cacheRepo,
		bus,
		services.OrderPolicy{
			AutoRescheduleEnabled: cfg.Scheduling.AutoRescheduleEnabled,
			AutoRescheduleDays:    cfg.Scheduling.AutoRescheduleDays,
			StatusCacheTTL:        cfg.Redis.StatusCacheTTL,
			ReceivableAccount:     cfg.Accounting.ReceivableAccount,
			IncomeAccount:         cfg.Accounting.IncomeAccount,
		},
		clock,
		logger,
	)

	return &Dependencies{
		TxManager:   txManager,
		Orders:      orderRepo,
		Technicians: technicianRepo,
		Customers:   customerRepo,
		History:     historyRepo,

		OrderService:      orderService,
		StockService:      ledger,
		TechnicianService: services.NewTechnicianService(txManager, technicianRepo, orderRepo, availability, logger),
		EquipmentService:  services.NewEquipmentService(equipmentRepo, customerRepo, orderRepo, qrcode.NewEncoder(qrCodeSize), clock, logger),
		CatalogService:    services.NewCatalogService(customerRepo, serviceTypeRepo, logger),
		ReportService:     services.NewReportService(orderRepo, technicianRepo, clock, logger),
		OverdueSweeper:    services.NewOverdueSweeper(txManager, orderRepo, historyRepo, bus, clock, logger),
		ReminderJob:       services.NewReminderJob(orderRepo, bus, clock, logger),
	}, nil
}
