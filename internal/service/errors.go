// errors.go — ошибки бизнес-логики сервисного слоя.
// Тексты ValidationError, ConflictError и ConstraintError отдаются клиенту как есть.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrConflict — логин или email уже заняты.
	ErrConflict = errors.New("конфликт — учётная запись уже существует")
	// ErrConstraint — нарушено ограничение таблицы people.
	ErrConstraint = errors.New("нарушено ограничение таблицы")
	// ErrAttemptsExhausted — не удалось подобрать уникальный логин за отведённые попытки.
	ErrAttemptsExhausted = errors.New("исчерпаны попытки подбора уникального логина")
)

// ValidationError — некорректный запрос, обнаруженный до обращения к БД.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is позволяет проверять errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError — явно переданный логин или email принадлежит другой записи.
type ConflictError struct {
	// Field — "username" или "email"
	Field string
	Value string
	// Found — конфликтующая запись найдена (иначе её успели удалить)
	Found bool
	// Active — состояние найденной записи
	Active bool
	Err    error
}

func (e *ConflictError) Error() string {
	label := "El usuario"
	if e.Field == "email" {
		label = "El correo"
	}
	if !e.Found {
		return fmt.Sprintf("%s %q ya está registrado", label, e.Value)
	}
	state := "activa"
	if !e.Active {
		state = "inactiva"
	}
	return fmt.Sprintf("%s %q ya pertenece a una cuenta %s", label, e.Value, state)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// Is позволяет проверять errors.Is(err, ErrConflict).
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ConstraintError — нарушение CHECK-ограничения с понятным сообщением,
// если ограничение известно, иначе — с исходным текстом PostgreSQL.
type ConstraintError struct {
	Constraint string
	Message    string
	Err        error
}

func (e *ConstraintError) Error() string { return e.Message }

func (e *ConstraintError) Unwrap() error { return e.Err }

// Is позволяет проверять errors.Is(err, ErrConstraint).
func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }
