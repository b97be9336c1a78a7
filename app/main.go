// Файл: main.go

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"field-service/internal/listeners"
	"field-service/internal/routes"
	"field-service/internal/services"
	"field-service/migrations"
	"field-service/pkg/config"
	"field-service/pkg/database/postgresql"
	apperrors "field-service/pkg/errors"
	"field-service/pkg/eventbus"
	"field-service/pkg/filestorage"
	applogger "field-service/pkg/logger"
	"field-service/pkg/middleware"
	"field-service/pkg/service"
	"field-service/pkg/telegram"
	"field-service/pkg/utils"
	"field-service/pkg/validation"
	"field-service/pkg/websocket"
)

func main() {
	// 1. Конфиг и логгер
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Echo и middleware
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				_ = utils.ErrorResponse(c, apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil))
			}
			return err
		},
	}))
	e.Use(echomw.RequestID())
	e.Use(middleware.InjectLogger(logger))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))

	absPath, err := filepath.Abs(cfg.Storage.UploadDir)
	if err != nil {
		logger.Fatal("не удалось получить абсолютный путь к uploads", zap.Error(err))
	}
	e.Static("/uploads", absPath)

	// 3. Postgres, миграции, Redis
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("не удалось подключиться к PostgreSQL", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Postgres.AutoMigrate {
		if err := migrations.Up(ctx, dbConn); err != nil {
			logger.Fatal("ошибка миграций", zap.Error(err))
		}
		logger.Info("миграции применены")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		// без Redis работаем, просто без кеша статусов
		logger.Warn("Redis недоступен, кеш статусов отключён", zap.Error(err), zap.String("address", cfg.Redis.Address))
		redisClient = nil
	}

	// 4. Шина событий, websocket и уведомления
	bus := eventbus.New(logger)
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	senders := []services.NotificationSender{services.NewLogNotificationSender(logger)}
	if cfg.Notifications.TelegramBotToken != "" {
		tg := telegram.NewService(cfg.Notifications.TelegramBotToken)
		senders = append(senders, services.NewTelegramNotificationSender(tg, cfg.Notifications.TelegramChatID, logger))
		logger.Info("уведомления в Telegram включены")
	}
	sender := services.NewMultiNotificationSender(senders...)

	// 5. Сервисы и роуты
	deps, err := routes.NewDependencies(dbConn, redisClient, bus, cfg, logger)
	if err != nil {
		logger.Fatal("ошибка инициализации сервисов", zap.Error(err))
	}
	listeners.NewNotificationListener(sender, hub, deps.Technicians, deps.Customers, logger).Register(bus)

	fileStorage, err := filestorage.NewLocalFileStorage(absPath)
	if err != nil {
		logger.Fatal("не удалось создать файловое хранилище", zap.Error(err))
	}
	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL)
	routes.InitRouter(e, deps, hub, fileStorage, jwtSvc, logger)

	// 6. Фоновые задачи
	go runOverdueSweeper(ctx, deps.OverdueSweeper, cfg.Scheduling.OverdueSweepInterval, logger)
	go runDailyReminders(ctx, deps.ReminderJob, cfg.Scheduling.ReminderHour, logger)

	// 7. Сервер
	go func() {
		logger.Info("сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ошибка запуска сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("остановка сервера")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("ошибка остановки сервера", zap.Error(err))
	}
	bus.Wait()
}

func runOverdueSweeper(ctx context.Context, sweeper *services.OverdueSweeper, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		logger.Warn("проверка просроченных заказов отключена")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := sweeper.Sweep(ctx); err != nil {
			logger.Error("ошибка проверки просроченных заказов", zap.Error(err))
		} else if n > 0 {
			logger.Info("найдены просроченные заказы", zap.Int("count", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runDailyReminders запускает напоминания раз в сутки в hour:00 по местному времени.
func runDailyReminders(ctx context.Context, job *services.ReminderJob, hour int, logger *zap.Logger) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if n, err := job.Run(ctx); err != nil {
			logger.Error("ошибка рассылки напоминаний", zap.Error(err))
		} else {
			logger.Info("напоминания отправлены", zap.Int("count", n))
		}
	}
}
