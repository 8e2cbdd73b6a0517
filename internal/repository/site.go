package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/fenix/people-module/internal/domain/model"
)

// SiteRepository — чтение справочника точек продаж.
type SiteRepository interface {
	// Names возвращает имена точек по списку ID одним запросом.
	// Отсутствующие ID в результат не попадают.
	Names(ctx context.Context, ids []string) (map[string]string, error)
	// Create добавляет точку в справочник.
	Create(ctx context.Context, name string) (*model.Site, error)
}

type siteRepo struct {
	db DBTX
}

// NewSiteRepository создаёт репозиторий справочника точек.
func NewSiteRepository(db DBTX) SiteRepository {
	return &siteRepo{db: db}
}

func (r *siteRepo) Names(ctx context.Context, ids []string) (map[string]string, error) {
	result := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	// Сравнение по тексту: некорректный UUID просто не находится.
	rows, err := r.db.Query(ctx,
		`SELECT id::text, name FROM sites WHERE id::text = ANY($1::text[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения имён точек: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования точки: %w", err)
		}
		result[id] = name
	}
	return result, rows.Err()
}

func (r *siteRepo) Create(ctx context.Context, name string) (*model.Site, error) {
	s := &model.Site{Name: name}
	err := r.db.QueryRow(ctx,
		`INSERT INTO sites (name) VALUES ($1) RETURNING id::text`, name).Scan(&s.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания точки: %w", classifyError(err))
	}
	return s, nil
}
