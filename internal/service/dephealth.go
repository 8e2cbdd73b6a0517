// dephealth.go — метрики доступности PostgreSQL через topologymetrics
// (app_dependency_health, app_dependency_latency_seconds и др. на /metrics).
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// PostgresDependency — имя зависимости PostgreSQL в метриках.
const PostgresDependency = "postgresql"

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — вершина графа зависимостей ("people-module")
	ServiceID string
	// Group — PM_DEPHEALTH_GROUP
	Group string
	// DB — пул people, обёрнутый в *sql.DB через stdlib.OpenDBFromPool
	DB *sql.DB
	// DatabaseURL попадает только в лейблы
	DatabaseURL string
	// CheckInterval — PM_DEPHEALTH_CHECK_INTERVAL
	CheckInterval time.Duration
	// Registerer — по умолчанию глобальный registry
	Registerer prometheus.Registerer
}

func (c DephealthConfig) validate() error {
	if c.DB == nil {
		return errors.New("dephealth: не передан *sql.DB")
	}
	if c.CheckInterval <= 0 {
		return errors.New("dephealth: интервал проверки должен быть положительным")
	}
	return nil
}

// DephealthService периодически проверяет PostgreSQL. Зависимость критическая.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency(PostgresDependency, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dephealth.FromURL(cfg.DatabaseURL),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		),
	}
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает проверки в фоне.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг PostgreSQL запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает проверки.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг PostgreSQL остановлен")
}

// Health — последнее известное состояние по имени зависимости.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
