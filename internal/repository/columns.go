package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ColumnCatalog — сведения о том, какие необязательные столбцы таблицы
// реально существуют в схеме. Заполняется из information_schema при старте
// и перечитывается по Refresh после ошибки undefined_column.
// Обязательные (не перечисленные как optional) столбцы считаются существующими.
type ColumnCatalog struct {
	db       DBTX
	table    string
	optional []string

	mu      sync.RWMutex
	present map[string]bool
}

// ProbeColumns читает information_schema.columns для таблицы table
// и возвращает каталог для перечисленных необязательных столбцов.
func ProbeColumns(ctx context.Context, db DBTX, table string, optional ...string) (*ColumnCatalog, error) {
	c := &ColumnCatalog{
		db:       db,
		table:    table,
		optional: optional,
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh перечитывает наличие необязательных столбцов.
func (c *ColumnCatalog) Refresh(ctx context.Context) error {
	rows, err := c.db.Query(ctx, `
		SELECT column_name::text
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name::text = $1
		  AND column_name::text = ANY($2::text[])`, c.table, c.optional)
	if err != nil {
		return fmt.Errorf("ошибка чтения столбцов таблицы %s: %w", c.table, err)
	}
	defer rows.Close()

	present := make(map[string]bool, len(c.optional))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("ошибка сканирования столбца: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ошибка чтения столбцов таблицы %s: %w", c.table, err)
	}

	c.mu.Lock()
	c.present = present
	c.mu.Unlock()
	return nil
}

// Has сообщает, можно ли писать в столбец.
func (c *ColumnCatalog) Has(column string) bool {
	if !c.isOptional(column) {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.present[column]
}

// Missing возвращает отсутствующие необязательные столбцы (отсортированы).
func (c *ColumnCatalog) Missing() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	for _, col := range c.optional {
		if !c.present[col] {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

// CheckReady — проверка готовности для /health/ready: degraded,
// пока в схеме нет части необязательных столбцов.
func (c *ColumnCatalog) CheckReady() (status string, message string) {
	if missing := c.Missing(); len(missing) > 0 {
		return "degraded", "нет столбцов: " + strings.Join(missing, ", ")
	}
	return "ok", "все необязательные столбцы на месте"
}

func (c *ColumnCatalog) isOptional(column string) bool {
	for _, col := range c.optional {
		if col == column {
			return true
		}
	}
	return false
}
