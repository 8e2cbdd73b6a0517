// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrCheckViolation — нарушено CHECK-ограничение.
	ErrCheckViolation = errors.New("нарушено ограничение таблицы")
	// ErrUndefinedColumn — запрос ссылается на отсутствующий столбец.
	ErrUndefinedColumn = errors.New("столбец не существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConstraintError — нарушение ограничения PostgreSQL (unique или check).
// Unwrap возвращает ErrConflict или ErrCheckViolation.
type ConstraintError struct {
	// Constraint — имя ограничения (people_username_key, people_branch_required_check, ...)
	Constraint string
	// Message — исходное сообщение PostgreSQL
	Message string
	kind    error
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Constraint)
}

func (e *ConstraintError) Unwrap() error {
	return e.kind
}

// NewUniqueViolation создаёт ошибку нарушения уникальности.
// Используется в тестах сервисного слоя.
func NewUniqueViolation(constraint, message string) *ConstraintError {
	return &ConstraintError{Constraint: constraint, Message: message, kind: ErrConflict}
}

// NewCheckViolation создаёт ошибку нарушения CHECK-ограничения.
func NewCheckViolation(constraint, message string) *ConstraintError {
	return &ConstraintError{Constraint: constraint, Message: message, kind: ErrCheckViolation}
}

// classifyError переводит ошибку PostgreSQL в ошибку слоя репозиториев
// по SQLSTATE. Остальные ошибки возвращаются без изменений.
func classifyError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UndefinedColumn:
		return fmt.Errorf("%w: %w", ErrUndefinedColumn, err)
	case pgerrcode.UniqueViolation:
		return NewUniqueViolation(pgErr.ConstraintName, pgErr.Message)
	case pgerrcode.CheckViolation:
		return NewCheckViolation(pgErr.ConstraintName, pgErr.Message)
	default:
		return err
	}
}

// --- Набор столбцов для INSERT/UPDATE ---

// Field — значение одного столбца.
type Field struct {
	Column string
	Value  any
}

// Fields — упорядоченный набор столбцов запроса.
type Fields []Field

// Has сообщает, присутствует ли столбец в наборе.
func (f Fields) Has(column string) bool {
	for _, fld := range f {
		if fld.Column == column {
			return true
		}
	}
	return false
}

// Without возвращает копию набора без указанных столбцов.
func (f Fields) Without(columns ...string) Fields {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		drop[c] = true
	}
	out := make(Fields, 0, len(f))
	for _, fld := range f {
		if !drop[fld.Column] {
			out = append(out, fld)
		}
	}
	return out
}

// Columns возвращает имена столбцов в порядке набора.
func (f Fields) Columns() []string {
	cols := make([]string, len(f))
	for i, fld := range f {
		cols[i] = fld.Column
	}
	return cols
}

// escapeLike экранирует метасимволы LIKE (\, %, _).
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
