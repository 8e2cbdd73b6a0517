// Пакет loginindex — производные поля для поиска по логину и email
// без учёта регистра, диакритики и пунктуации.
package loginindex

import (
	"strings"

	"github.com/bigkaa/fenix/people-module/internal/domain/textfold"
)

// Имена столбцов индекса в таблице people.
const (
	ColumnUsernameNorm = "username_norm"
	ColumnUsernameFlat = "username_flat"
	ColumnEmailNorm    = "email_norm"
	ColumnEmailFlat    = "email_flat"
)

// Columns возвращает все столбцы индекса.
func Columns() []string {
	return []string{ColumnUsernameNorm, ColumnUsernameFlat, ColumnEmailNorm, ColumnEmailFlat}
}

// Index — норм- и flat-представления логина и email.
type Index struct {
	UsernameNorm string
	UsernameFlat string
	EmailNorm    string
	EmailFlat    string
}

// Build вычисляет индекс. Чистая функция от username и email.
func Build(username, email string) Index {
	un, uf := Keys(username)
	en, ef := Keys(email)
	return Index{
		UsernameNorm: un,
		UsernameFlat: uf,
		EmailNorm:    en,
		EmailFlat:    ef,
	}
}

// Keys возвращает norm и flat для одной строки.
// norm — нижний регистр без диакритики, flat — norm только из [a-z0-9].
func Keys(s string) (normalized, flat string) {
	normalized = textfold.Fold(strings.TrimSpace(s))
	return normalized, textfold.KeepAlnum(normalized)
}

// Values возвращает пары столбец → значение в порядке Columns().
func (i Index) Values() map[string]string {
	return map[string]string{
		ColumnUsernameNorm: i.UsernameNorm,
		ColumnUsernameFlat: i.UsernameFlat,
		ColumnEmailNorm:    i.EmailNorm,
		ColumnEmailFlat:    i.EmailFlat,
	}
}
