// Пакет model — доменные модели People Module.
package model

import (
	"strings"
	"time"
)

// Account — учётная запись оператора (справочник people).
// Хранится в таблице people.
type Account struct {
	// ID — UUID записи
	ID string `json:"id"`
	// FullName — отображаемое имя
	FullName string `json:"full_name"`
	// Role — роль (ADMINISTRATIVO, GERENTE, ..., PROMOTOR, LOGISTICA)
	Role string `json:"fenix_role"`
	// PrivilegeLevel — числовой уровень привилегий
	PrivilegeLevel int `json:"privilege_level"`
	// Username — уникальный логин
	Username string `json:"username"`
	// Email — уникальный email
	Email string `json:"email"`
	// PasswordHash — bcrypt-хэш пароля, наружу не отдаётся
	PasswordHash string `json:"-"`
	// InitialPassword — пароль в открытом виде, только в ответе на создание
	InitialPassword string `json:"initial_password_plain_text,omitempty"`
	// Active — учётная запись активна
	Active bool `json:"active"`
	// SiteID — ссылка на точку из справочника sites
	SiteID *string `json:"site_id"`
	// SiteName — имя точки, заполняется при выдаче списка
	SiteName *string `json:"site_name,omitempty"`
	// Local — устаревшее текстовое название точки
	Local *string `json:"local"`
	// Phone — контактный телефон
	Phone *string `json:"phone"`
	// VehicleType — транспорт оператора (для LOGISTICA)
	VehicleType *string `json:"vehicle_type"`
	// CreatedAt — время создания записи
	CreatedAt time.Time `json:"created_at"`
}

// Site — точка продаж из справочника sites.
type Site struct {
	ID   string
	Name string
}

// Роли операторов.
const (
	RoleAdministrative = "ADMINISTRATIVO"
	RoleManager        = "GERENTE"
	RoleCoordinator    = "COORDINADOR"
	RoleTeamLead       = "LIDER"
	RoleAdvisor        = "ASESOR"
	RolePromoter       = "PROMOTOR"
	RoleLogistics      = "LOGISTICA"
)

// DefaultRole назначается, если роль в запросе не указана.
const DefaultRole = RoleAdvisor

// defaultPrivileges — уровень привилегий по умолчанию для каждой роли.
var defaultPrivileges = map[string]int{
	RoleAdministrative: 5,
	RoleManager:        4,
	RoleCoordinator:    3,
	RoleTeamLead:       2,
	RoleAdvisor:        1,
	RolePromoter:       1,
	RoleLogistics:      1,
}

// Roles возвращает все допустимые роли в порядке убывания привилегий.
func Roles() []string {
	return []string{
		RoleAdministrative, RoleManager, RoleCoordinator, RoleTeamLead,
		RoleAdvisor, RolePromoter, RoleLogistics,
	}
}

// NormalizeRole приводит токен роли к каноническому виду (trim + upper).
// Пустое значение заменяется на DefaultRole.
func NormalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		return DefaultRole
	}
	return role
}

// DefaultPrivilegeLevel возвращает уровень привилегий по умолчанию.
// Для неизвестной роли — 1.
func DefaultPrivilegeLevel(role string) int {
	if lvl, ok := defaultPrivileges[role]; ok {
		return lvl
	}
	return 1
}

// IsPromoter — роль промоутера освобождает от обязательной привязки к точке.
func IsPromoter(role string) bool {
	return NormalizeRole(role) == RolePromoter
}
