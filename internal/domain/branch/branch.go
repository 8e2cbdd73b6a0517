// Пакет branch — приведение привязки оператора к точке продаж к единому виду
// {site_id, local} при записи и разбор фильтра по точке при чтении.
//
// Три формы входа (по приоритету):
//  1. site_id — ссылка на справочник sites;
//  2. branch_id, являющийся UUID, — тоже ссылка на sites;
//  3. branch_label, либо не-UUID branch_id, либо устаревший local — свободный текст.
package branch

import (
	"strings"

	"github.com/google/uuid"
)

// Input — поля запроса, описывающие точку.
type Input struct {
	SiteID      string
	BranchID    string
	BranchLabel string
	Local       string
}

// Ref — нормализованная привязка. Оба поля могут быть nil.
type Ref struct {
	SiteID *string
	Local  *string
}

// Assigned сообщает, задана ли хоть какая-то привязка.
func (r Ref) Assigned() bool {
	return r.SiteID != nil || r.Local != nil
}

// Resolve нормализует входные поля. Идемпотентна: одинаковый вход даёт одинаковый Ref.
func Resolve(in Input) Ref {
	siteID := strings.TrimSpace(in.SiteID)
	branchID := strings.TrimSpace(in.BranchID)
	label := strings.TrimSpace(in.BranchLabel)
	local := strings.TrimSpace(in.Local)

	if siteID == "" && IsUUID(branchID) {
		siteID = branchID
		branchID = ""
	}
	siteID = Canonical(siteID)

	if siteID != "" {
		// Подпись точки сохраняется в local для отображения.
		return Ref{SiteID: &siteID, Local: nonEmpty(label)}
	}

	return Ref{Local: nonEmpty(firstNonEmpty(label, branchID, local))}
}

// IsUUID — строка разбирается как UUID.
func IsUUID(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Canonical приводит UUID к виду, в котором его выводит PostgreSQL:
// нижний регистр, без urn:uuid: и фигурных скобок. Не-UUID возвращается как есть.
func Canonical(s string) string {
	id, err := uuid.Parse(s)
	if err != nil {
		return s
	}
	return id.String()
}

// --- Фильтр ---

// FilterKind — вид фильтра по точке.
type FilterKind int

const (
	// FilterNone — фильтр не задан.
	FilterNone FilterKind = iota
	// FilterSite — точное совпадение site_id, промоутеры исключаются.
	FilterSite
	// FilterLocal — подстрока в local без учёта регистра.
	FilterLocal
	// FilterUnassigned — site_id и local оба NULL.
	FilterUnassigned
)

// UnassignedToken — значение фильтра для операторов без точки.
const UnassignedToken = "__none__"

// SitePrefix — префикс явного фильтра по site_id.
const SitePrefix = "site:"

// PromoterRolePrefix — роли с этим префиксом (без учёта регистра)
// исключаются из выборки по site_id.
const PromoterRolePrefix = "promotor"

// Filter — разобранный фильтр по точке.
type Filter struct {
	Kind  FilterKind
	Value string
}

// ParseFilter разбирает значение параметра branch.
func ParseFilter(token string) Filter {
	token = strings.TrimSpace(token)

	switch {
	case token == "":
		return Filter{Kind: FilterNone}
	case token == UnassignedToken:
		return Filter{Kind: FilterUnassigned}
	case strings.HasPrefix(strings.ToLower(token), SitePrefix):
		id := strings.TrimSpace(token[len(SitePrefix):])
		if id == "" {
			return Filter{Kind: FilterNone}
		}
		return Filter{Kind: FilterSite, Value: Canonical(id)}
	case IsUUID(token):
		return Filter{Kind: FilterSite, Value: Canonical(token)}
	default:
		return Filter{Kind: FilterLocal, Value: token}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
