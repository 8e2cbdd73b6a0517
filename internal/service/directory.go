// directory.go — справочник операторов: фильтрация, пагинация и
// пакетное обогащение именами точек.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fenix/people-module/internal/domain/branch"
	"github.com/bigkaa/fenix/people-module/internal/domain/model"
	"github.com/bigkaa/fenix/people-module/internal/repository"
)

// Параметры пагинации.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	directoryQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_directory_queries_total",
			Help: "Запросы к справочнику операторов по результату.",
		},
		[]string{"status"},
	)
	directoryQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pm_directory_query_duration_seconds",
			Help:    "Длительность запроса к справочнику операторов.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// ListInput — параметры выборки справочника.
// nil Page/PageSize — значения по умолчанию.
type ListInput struct {
	Query    string
	Role     string
	Branch   string
	Active   *bool
	Page     *int
	PageSize *int
}

// ListResult — страница справочника.
type ListResult struct {
	Data     []*model.Account
	Page     int
	PageSize int
	Total    int
}

// DirectoryService — чтение справочника операторов.
type DirectoryService struct {
	accounts repository.AccountRepository
	sites    repository.SiteRepository
	cache    *SiteNameCache
	logger   *slog.Logger
}

// NewDirectoryService создаёт сервис справочника.
// cache может быть nil — тогда имена точек читаются из БД на каждый запрос.
func NewDirectoryService(
	accounts repository.AccountRepository,
	sites repository.SiteRepository,
	cache *SiteNameCache,
	logger *slog.Logger,
) *DirectoryService {
	return &DirectoryService{
		accounts: accounts,
		sites:    sites,
		cache:    cache,
		logger:   logger.With(slog.String("component", "directory_service")),
	}
}

// List выполняет одну отфильтрованную выборку страницы и один запрос
// имён точек для всех site_id страницы.
func (s *DirectoryService) List(ctx context.Context, in ListInput) (*ListResult, error) {
	start := time.Now()
	page := clamp(in.Page, DefaultPage)
	pageSize := clamp(in.PageSize, DefaultPageSize)

	filter := repository.AccountFilter{
		Search: strings.TrimSpace(in.Query),
		Role:   strings.TrimSpace(in.Role),
		Active: in.Active,
		Branch: branch.ParseFilter(in.Branch),
	}

	accounts, err := s.accounts.List(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		directoryQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("выборка справочника: %w", err)
	}
	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		directoryQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("подсчёт справочника: %w", err)
	}

	s.enrichSiteNames(ctx, accounts)

	directoryQueriesTotal.WithLabelValues("ok").Inc()
	directoryQueryDuration.Observe(time.Since(start).Seconds())

	return &ListResult{
		Data:     accounts,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// enrichSiteNames заполняет SiteName. Ошибка справочника точек не
// прерывает выдачу: записи возвращаются без имён.
func (s *DirectoryService) enrichSiteNames(ctx context.Context, accounts []*model.Account) {
	names := make(map[string]string)
	var missing []string
	seen := make(map[string]bool)

	for _, a := range accounts {
		if a.SiteID == nil || seen[*a.SiteID] {
			continue
		}
		id := *a.SiteID
		seen[id] = true
		if s.cache != nil {
			if name, ok := s.cache.Get(id); ok {
				names[id] = name
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		fetched, err := s.sites.Names(ctx, missing)
		if err != nil {
			s.logger.Warn("Не удалось получить имена точек",
				slog.Int("sites", len(missing)),
				slog.String("error", err.Error()),
			)
		}
		for id, name := range fetched {
			names[id] = name
			if s.cache != nil {
				s.cache.Set(id, name)
			}
		}
	}

	for _, a := range accounts {
		if a.SiteID == nil {
			continue
		}
		if name, ok := names[*a.SiteID]; ok {
			a.SiteName = &name
		}
	}
}

// clamp ограничивает значение диапазоном [1, MaxPageSize].
func clamp(v *int, def int) int {
	if v == nil {
		return def
	}
	switch {
	case *v < 1:
		return 1
	case *v > MaxPageSize:
		return MaxPageSize
	}
	return *v
}
