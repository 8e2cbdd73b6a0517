package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/bigkaa/fenix/people-module/internal/domain/branch"
	"github.com/bigkaa/fenix/people-module/internal/domain/model"
	"github.com/bigkaa/fenix/people-module/internal/repository"
)

// mockSiteRepo — мок SiteRepository.
type mockSiteRepo struct {
	namesFn func(ctx context.Context, ids []string) (map[string]string, error)
	calls   [][]string
}

func (m *mockSiteRepo) Names(ctx context.Context, ids []string) (map[string]string, error) {
	m.calls = append(m.calls, ids)
	if m.namesFn != nil {
		return m.namesFn(ctx, ids)
	}
	return map[string]string{}, nil
}

func (m *mockSiteRepo) Create(_ context.Context, name string) (*model.Site, error) {
	return &model.Site{ID: "site-new", Name: name}, nil
}

func newTestDirectory(accounts *mockAccountRepo, sites *mockSiteRepo, cache *SiteNameCache) *DirectoryService {
	return NewDirectoryService(accounts, sites, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func intPtr(v int) *int { return &v }

// TestDirectoryList_Pagination проверяет значения по умолчанию и ограничение page/pageSize.
func TestDirectoryList_Pagination(t *testing.T) {
	tests := []struct {
		name         string
		page         *int
		pageSize     *int
		wantPage     int
		wantPageSize int
		wantOffset   int
	}{
		{name: "по умолчанию", wantPage: 1, wantPageSize: 20, wantOffset: 0},
		{name: "третья страница", page: intPtr(3), pageSize: intPtr(10), wantPage: 3, wantPageSize: 10, wantOffset: 20},
		{name: "ноль и отрицательное", page: intPtr(0), pageSize: intPtr(-5), wantPage: 1, wantPageSize: 1, wantOffset: 0},
		{name: "больше максимума", page: intPtr(500), pageSize: intPtr(1000), wantPage: 100, wantPageSize: 100, wantOffset: 9900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit, gotOffset int
			accounts := &mockAccountRepo{
				listFn: func(_ context.Context, _ repository.AccountFilter, limit, offset int) ([]*model.Account, error) {
					gotLimit, gotOffset = limit, offset
					return nil, nil
				},
				countFn: func(_ context.Context, _ repository.AccountFilter) (int, error) {
					return 42, nil
				},
			}
			svc := newTestDirectory(accounts, &mockSiteRepo{}, nil)

			result, err := svc.List(context.Background(), ListInput{Page: tt.page, PageSize: tt.pageSize})
			if err != nil {
				t.Fatalf("List ошибка: %v", err)
			}
			if result.Page != tt.wantPage || result.PageSize != tt.wantPageSize {
				t.Errorf("page/pageSize = %d/%d, ожидалось %d/%d",
					result.Page, result.PageSize, tt.wantPage, tt.wantPageSize)
			}
			if gotLimit != tt.wantPageSize || gotOffset != tt.wantOffset {
				t.Errorf("limit/offset = %d/%d, ожидалось %d/%d", gotLimit, gotOffset, tt.wantPageSize, tt.wantOffset)
			}
			if result.Total != 42 {
				t.Errorf("Total = %d, ожидалось 42", result.Total)
			}
		})
	}
}

// TestDirectoryList_Filter проверяет передачу фильтров в репозиторий.
func TestDirectoryList_Filter(t *testing.T) {
	active := true
	var got repository.AccountFilter
	accounts := &mockAccountRepo{
		listFn: func(_ context.Context, f repository.AccountFilter, _, _ int) ([]*model.Account, error) {
			got = f
			return nil, nil
		},
	}
	svc := newTestDirectory(accounts, &mockSiteRepo{}, nil)

	_, err := svc.List(context.Background(), ListInput{
		Query:  "  maria ",
		Role:   "GERENTE",
		Branch: "__none__",
		Active: &active,
	})
	if err != nil {
		t.Fatalf("List ошибка: %v", err)
	}
	if got.Search != "maria" || got.Role != "GERENTE" {
		t.Errorf("Search/Role = %q/%q", got.Search, got.Role)
	}
	if got.Active == nil || !*got.Active {
		t.Error("Active не передан в фильтр")
	}
	if got.Branch.Kind != branch.FilterUnassigned {
		t.Errorf("Branch.Kind = %v, ожидался FilterUnassigned", got.Branch.Kind)
	}
}

// TestDirectoryList_SiteNames — имена точек читаются одним запросом
// по уникальным site_id страницы, повторный запрос берёт их из кэша.
func TestDirectoryList_SiteNames(t *testing.T) {
	siteA, siteB := "site-a", "site-b"
	accounts := &mockAccountRepo{
		listFn: func(_ context.Context, _ repository.AccountFilter, _, _ int) ([]*model.Account, error) {
			return []*model.Account{
				{ID: "1", SiteID: &siteA},
				{ID: "2", SiteID: &siteB},
				{ID: "3", SiteID: &siteA},
				{ID: "4"},
			}, nil
		},
	}
	sites := &mockSiteRepo{
		namesFn: func(_ context.Context, ids []string) (map[string]string, error) {
			return map[string]string{siteA: "Centro", siteB: "Norte"}, nil
		},
	}
	svc := newTestDirectory(accounts, sites, NewSiteNameCache(16, time.Minute))

	result, err := svc.List(context.Background(), ListInput{})
	if err != nil {
		t.Fatalf("List ошибка: %v", err)
	}

	if len(sites.calls) != 1 {
		t.Fatalf("Names вызван %d раз, ожидался 1", len(sites.calls))
	}
	ids := append([]string(nil), sites.calls[0]...)
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != siteA || ids[1] != siteB {
		t.Errorf("Names(%v), ожидались уникальные [site-a site-b]", ids)
	}

	want := map[string]string{"1": "Centro", "2": "Norte", "3": "Centro"}
	for _, a := range result.Data {
		name, ok := want[a.ID]
		if !ok {
			if a.SiteName != nil {
				t.Errorf("запись %s без точки получила имя %q", a.ID, *a.SiteName)
			}
			continue
		}
		if a.SiteName == nil || *a.SiteName != name {
			t.Errorf("запись %s: SiteName = %v, ожидалось %q", a.ID, a.SiteName, name)
		}
	}

	if _, err := svc.List(context.Background(), ListInput{}); err != nil {
		t.Fatalf("List ошибка: %v", err)
	}
	if len(sites.calls) != 1 {
		t.Errorf("Names вызван %d раз, имена должны браться из кэша", len(sites.calls))
	}
}

// TestDirectoryList_SiteNamesFailure — ошибка справочника точек не ломает выдачу.
func TestDirectoryList_SiteNamesFailure(t *testing.T) {
	site := "site-a"
	accounts := &mockAccountRepo{
		listFn: func(_ context.Context, _ repository.AccountFilter, _, _ int) ([]*model.Account, error) {
			return []*model.Account{{ID: "1", SiteID: &site}}, nil
		},
		countFn: func(_ context.Context, _ repository.AccountFilter) (int, error) { return 1, nil },
	}
	sites := &mockSiteRepo{
		namesFn: func(_ context.Context, _ []string) (map[string]string, error) {
			return nil, errors.New("sites недоступна")
		},
	}
	svc := newTestDirectory(accounts, sites, nil)

	result, err := svc.List(context.Background(), ListInput{})
	if err != nil {
		t.Fatalf("List ошибка: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].SiteName != nil {
		t.Errorf("ожидалась запись без имени точки, получено %+v", result.Data)
	}
}

// TestDirectoryList_RepoError — ошибка выборки возвращается вызывающему.
func TestDirectoryList_RepoError(t *testing.T) {
	boom := errors.New("timeout")
	accounts := &mockAccountRepo{
		countFn: func(_ context.Context, _ repository.AccountFilter) (int, error) { return 0, boom },
	}
	svc := newTestDirectory(accounts, &mockSiteRepo{}, nil)

	if _, err := svc.List(context.Background(), ListInput{}); !errors.Is(err, boom) {
		t.Errorf("ожидалась исходная ошибка, получено: %v", err)
	}
}
