package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"field-service/migrations"
	"field-service/pkg/config"
	"field-service/pkg/constants"
	"field-service/pkg/database/postgresql"
	"field-service/pkg/service"
	"field-service/seeders"
)

func main() {
	log.Println("======================================================")
	log.Println("       🌱 СИСТЕМА СИДЕРОВ (Наполнение БД)           ")
	log.Println("======================================================")

	runCore := flag.Bool("core", false, "Наполнить справочники: виды услуг, склады")
	runDemo := flag.Bool("demo", false, "Загрузить демо-данные: техники, товары, клиенты, оборудование")
	runAll := flag.Bool("all", false, "Запустить все сидеры (эквивалентно -core -demo)")
	tokenRole := flag.String("token", "", "Выпустить JWT для роли (admin, dispatcher, technician, customer)")
	tokenUser := flag.Uint64("user", 1, "ID пользователя для -token")
	flag.Parse()

	if !*runCore && !*runDemo && !*runAll && *tokenRole == "" {
		log.Println("❌ Не выбран ни один сидер для запуска.")
		flag.PrintDefaults()
		log.Println("Примеры использования:")
		log.Println("  go run ./seeders/cmd/seed -all")
		log.Println("  go run ./seeders/cmd/seed -token dispatcher -user 7")
		return
	}

	cfg := config.New()

	if *tokenRole != "" {
		switch *tokenRole {
		case constants.RoleAdmin, constants.RoleDispatcher, constants.RoleTechnician, constants.RoleCustomer:
		default:
			log.Fatalf("❌ Неизвестная роль %q", *tokenRole)
		}
		token, err := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL).GenerateToken(*tokenUser, *tokenRole)
		if err != nil {
			log.Fatalf("❌ Не удалось выпустить токен: %v", err)
		}
		log.Printf("🔑 Токен (%s, user %d):\n%s", *tokenRole, *tokenUser, token)
		if !*runCore && !*runDemo && !*runAll {
			return
		}
	}

	ctx := context.Background()
	dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, zap.NewNop())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer dbPool.Close()

	if err := migrations.Up(ctx, dbPool); err != nil {
		log.Fatalf("❌ %v", err)
	}

	if *runAll || *runCore {
		if err := seeders.SeedCoreDictionaries(ctx, dbPool); err != nil {
			log.Fatalf("❌ Ошибка наполнения справочников: %v", err)
		}
	}
	if *runAll || *runDemo {
		if err := seeders.SeedDemo(ctx, dbPool); err != nil {
			log.Fatalf("❌ Ошибка загрузки демо-данных: %v", err)
		}
	}

	log.Println("✅ Все указанные операции сидирования успешно завершены.")
	log.Println("======================================================")
}
