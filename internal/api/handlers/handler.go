// handler.go — основной обработчик API People Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/fenix/people-module/internal/domain/model"
	"github.com/bigkaa/fenix/people-module/internal/service"
)

// AccountService — создание и изменение учётных записей.
// Реализуется *service.AccountService.
type AccountService interface {
	Create(ctx context.Context, in service.CreateInput) (*model.Account, error)
	UpdateLogin(ctx context.Context, id string, in service.UpdateLoginInput) (*model.Account, error)
	Delete(ctx context.Context, id string) error
}

// DirectoryService — справочник операторов.
// Реализуется *service.DirectoryService.
type DirectoryService interface {
	List(ctx context.Context, in service.ListInput) (*service.ListResult, error)
}

// APIHandler — основной обработчик API People Module.
type APIHandler struct {
	health    *HealthHandler
	accounts  AccountService
	directory DirectoryService
	logger    *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	accounts AccountService,
	directory DirectoryService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		accounts:  accounts,
		directory: directory,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
