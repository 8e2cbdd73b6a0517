// Точка входа People Module — справочник операторов Fenix.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// определяет набор необязательных столбцов таблицы people, создаёт сервисный
// слой и API handlers, запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/fenix/people-module/internal/api/handlers"
	"github.com/bigkaa/fenix/people-module/internal/api/openapi"
	"github.com/bigkaa/fenix/people-module/internal/config"
	"github.com/bigkaa/fenix/people-module/internal/database"
	"github.com/bigkaa/fenix/people-module/internal/domain/credentials"
	"github.com/bigkaa/fenix/people-module/internal/repository"
	"github.com/bigkaa/fenix/people-module/internal/server"
	"github.com/bigkaa/fenix/people-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("People Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("login_domain", cfg.LoginDomain),
	)

	if os.Getenv("PM_LOGIN_DOMAIN") == "" {
		logger.Warn("PM_LOGIN_DOMAIN не задана, используется значение по умолчанию",
			slog.String("default", cfg.LoginDomain),
		)
	}

	// 3. Проверка встроенного OpenAPI контракта
	ctx := context.Background()
	if _, err := openapi.Load(ctx); err != nil {
		logger.Error("Ошибка OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 6. Каталог необязательных столбцов people
	catalog, err := repository.ProbeColumns(ctx, pool, repository.PeopleTable, service.OptionalColumns()...)
	if err != nil {
		logger.Error("Ошибка чтения схемы таблицы people", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if missing := catalog.Missing(); len(missing) > 0 {
		logger.Warn("В схеме отсутствуют необязательные столбцы, запись идёт без них",
			slog.String("columns", strings.Join(missing, ",")),
		)
	}

	// 7. Repositories
	accountRepo := repository.NewAccountRepository(pool)
	siteRepo := repository.NewSiteRepository(pool)

	// 8. Services
	generator := credentials.NewGenerator(cfg.LoginDomain)
	accountSvc := service.NewAccountService(accountRepo, catalog, generator, logger)
	siteCache := service.NewSiteNameCache(cfg.SiteCacheSize, cfg.SiteCacheTTL)
	directorySvc := service.NewDirectoryService(accountRepo, siteRepo, siteCache, logger)

	// 9. topologymetrics — мониторинг зависимостей (PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     handlers.ServiceName,
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		DatabaseURL:   cfg.DatabaseURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. Handlers
	healthHandler := handlers.NewHealthHandler(
		handlers.Check{Name: service.PostgresDependency, Checker: database.NewReadinessChecker(pool)},
		handlers.Check{Name: "schema", Checker: catalog},
	)
	apiHandler := handlers.NewAPIHandler(healthHandler, accountSvc, directorySvc, logger)

	// 11. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler)
	runErr := srv.Run()

	// 12. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}

	logger.Info("People Module остановлен")
}
