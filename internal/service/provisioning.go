// provisioning.go — создание и изменение учётных записей операторов.
//
// Создание — один INSERT с оптимистичной проверкой уникальности:
// при конфликте сгенерированного логина выбирается новый суффикс
// (не более maxUniquenessAttempts попыток), при отсутствии необязательного
// столбца он исключается из запроса без расхода попытки.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fenix/people-module/internal/domain/branch"
	"github.com/bigkaa/fenix/people-module/internal/domain/credentials"
	"github.com/bigkaa/fenix/people-module/internal/domain/loginindex"
	"github.com/bigkaa/fenix/people-module/internal/domain/model"
	"github.com/bigkaa/fenix/people-module/internal/repository"
)

// maxUniquenessAttempts — бюджет попыток подбора уникального логина.
const maxUniquenessAttempts = 3

// Необязательные столбцы учётных данных.
const (
	ColumnPasswordHash    = "password_hash"
	ColumnPasswordLegacy  = "password"
	ColumnInitialPassword = "initial_password_plain_text"
)

// Известные CHECK-ограничения таблицы people.
const (
	constraintBranchRequired = "people_branch_required_check"
	constraintRoleAllowed    = "people_fenix_role_check"
)

// OptionalColumns — столбцы people, которых может не быть в схеме.
func OptionalColumns() []string {
	return append([]string{ColumnPasswordHash, ColumnPasswordLegacy, ColumnInitialPassword},
		loginindex.Columns()...)
}

// Результаты попыток INSERT для метрики.
const (
	outcomeCreated     = "created"
	outcomeRegenerated = "regenerated"
	outcomeConflict    = "conflict"
	outcomeConstraint  = "constraint"
	outcomeSchemaDrift = "schema_drift"
	outcomeExhausted   = "exhausted"
	outcomeError       = "error"
)

var (
	insertAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_account_insert_attempts_total",
			Help: "Попытки INSERT учётной записи по результату.",
		},
		[]string{"outcome"},
	)
	columnsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_schema_columns_dropped_total",
			Help: "Столбцы, исключённые из запроса после ошибки undefined_column.",
		},
		[]string{"column"},
	)
)

// SchemaCatalog — сведения о необязательных столбцах таблицы people.
// Реализуется *repository.ColumnCatalog.
type SchemaCatalog interface {
	Has(column string) bool
	Refresh(ctx context.Context) error
}

// CreateInput — данные для создания учётной записи.
type CreateInput struct {
	FullName       string
	Role           string
	PrivilegeLevel *int
	Username       string
	Email          string
	Password       string

	SiteID      string
	BranchID    string
	BranchLabel string
	Local       string

	Phone       *string
	VehicleType *string
}

// UpdateLoginInput — изменение логина, email или активности.
// nil — поле не меняется.
type UpdateLoginInput struct {
	Username *string
	Email    *string
	Active   *bool
}

// AccountService — создание, изменение и удаление учётных записей.
type AccountService struct {
	accounts  repository.AccountRepository
	catalog   SchemaCatalog
	generator *credentials.Generator
	warner    *columnWarner
	logger    *slog.Logger
}

// NewAccountService создаёт сервис учётных записей.
func NewAccountService(
	accounts repository.AccountRepository,
	catalog SchemaCatalog,
	generator *credentials.Generator,
	logger *slog.Logger,
) *AccountService {
	logger = logger.With(slog.String("component", "account_service"))
	return &AccountService{
		accounts:  accounts,
		catalog:   catalog,
		generator: generator,
		warner:    newColumnWarner(logger),
		logger:    logger,
	}
}

// Create проверяет запрос, нормализует точку, генерирует недостающие
// учётные данные и сохраняет запись.
func (s *AccountService) Create(ctx context.Context, in CreateInput) (*model.Account, error) {
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, &ValidationError{Field: "full_name", Message: "full_name es obligatorio"}
	}

	role := model.NormalizeRole(in.Role)
	ref := branch.Resolve(branch.Input{
		SiteID:      in.SiteID,
		BranchID:    in.BranchID,
		BranchLabel: in.BranchLabel,
		Local:       in.Local,
	})
	if !ref.Assigned() && !model.IsPromoter(role) {
		return nil, &ValidationError{
			Field:   "branch_id",
			Message: fmt.Sprintf("Debe indicar una sucursal (site_id, branch_id o branch_label) para el rol %s", role),
		}
	}

	privilege := model.DefaultPrivilegeLevel(role)
	if in.PrivilegeLevel != nil {
		privilege = *in.PrivilegeLevel
	}

	creds, err := s.generator.Generate(credentials.Input{
		FullName: fullName,
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("генерация учётных данных: %w", err)
	}

	base := repository.Fields{
		{Column: "full_name", Value: fullName},
		{Column: "fenix_role", Value: role},
		{Column: "privilege_level", Value: privilege},
		{Column: "active", Value: true},
		{Column: "site_id", Value: ref.SiteID},
		{Column: "local", Value: ref.Local},
		{Column: "phone", Value: trimmedOrNil(in.Phone)},
		{Column: "vehicle_type", Value: trimmedOrNil(in.VehicleType)},
	}

	attempt := 1
	payload := s.insertPayload(base, creds)
	for {
		account, err := s.accounts.Insert(ctx, payload)
		if err == nil {
			insertAttemptsTotal.WithLabelValues(outcomeCreated).Inc()
			account.PasswordHash = creds.PasswordHash
			if payload.Has(ColumnInitialPassword) {
				account.InitialPassword = creds.Password
			}
			s.logger.Info("Учётная запись создана",
				slog.String("account_id", account.ID),
				slog.String("username", account.Username),
				slog.String("role", role),
				slog.Int("attempt", attempt),
			)
			return account, nil
		}

		switch {
		case errors.Is(err, repository.ErrUndefinedColumn):
			// Попытка не расходуется.
			next, recoverErr := s.dropVanishedColumns(ctx, payload, err)
			if recoverErr != nil {
				insertAttemptsTotal.WithLabelValues(outcomeError).Inc()
				return nil, recoverErr
			}
			insertAttemptsTotal.WithLabelValues(outcomeSchemaDrift).Inc()
			payload = next

		case errors.Is(err, repository.ErrConflict):
			if creds.Explicit() {
				insertAttemptsTotal.WithLabelValues(outcomeConflict).Inc()
				return nil, s.conflictError(ctx, creds.Username, creds.Email, err)
			}
			if attempt >= maxUniquenessAttempts {
				insertAttemptsTotal.WithLabelValues(outcomeExhausted).Inc()
				s.logger.Warn("Не удалось подобрать уникальный логин",
					slog.String("slug", creds.Slug),
					slog.Int("attempts", attempt),
				)
				return nil, fmt.Errorf("%w: %w", ErrAttemptsExhausted, err)
			}
			insertAttemptsTotal.WithLabelValues(outcomeRegenerated).Inc()
			s.logger.Debug("Логин занят, генерируем новый суффикс",
				slog.String("username", creds.Username),
				slog.Int("attempt", attempt),
			)
			creds, err = s.generator.Regenerate(creds)
			if err != nil {
				return nil, fmt.Errorf("генерация учётных данных: %w", err)
			}
			attempt++
			payload = s.insertPayload(base, creds)

		case errors.Is(err, repository.ErrCheckViolation):
			insertAttemptsTotal.WithLabelValues(outcomeConstraint).Inc()
			return nil, constraintError(err, role)

		default:
			insertAttemptsTotal.WithLabelValues(outcomeError).Inc()
			return nil, err
		}
	}
}

// UpdateLogin меняет логин, email и/или активность.
// Индекс логина пересчитывается при каждом изменении логина или email.
func (s *AccountService) UpdateLogin(ctx context.Context, id string, in UpdateLoginInput) (*model.Account, error) {
	current, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение учётной записи: %w", err)
	}

	username, email := current.Username, current.Email
	var fields repository.Fields
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, &ValidationError{Field: "username", Message: "username no puede estar vacío"}
		}
		fields = append(fields, repository.Field{Column: "username", Value: username})
	}
	if in.Email != nil {
		email = strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, &ValidationError{Field: "email", Message: "email no puede estar vacío"}
		}
		fields = append(fields, repository.Field{Column: "email", Value: email})
	}
	if in.Username != nil || in.Email != nil {
		fields = s.attachLoginIndex(fields, loginindex.Build(username, email))
	}
	if in.Active != nil {
		fields = append(fields, repository.Field{Column: "active", Value: *in.Active})
	}

	for {
		account, err := s.accounts.Update(ctx, id, fields)
		if err == nil {
			s.logger.Info("Учётная запись обновлена",
				slog.String("account_id", id),
				slog.String("username", account.Username),
			)
			return account, nil
		}

		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrUndefinedColumn):
			next, recoverErr := s.dropVanishedColumns(ctx, fields, err)
			if recoverErr != nil {
				return nil, recoverErr
			}
			fields = next
		case errors.Is(err, repository.ErrConflict):
			return nil, s.conflictError(ctx, username, email, err)
		case errors.Is(err, repository.ErrCheckViolation):
			return nil, constraintError(err, current.Role)
		default:
			return nil, err
		}
	}
}

// Delete удаляет учётную запись.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление учётной записи: %w", err)
	}
	s.logger.Info("Учётная запись удалена", slog.String("account_id", id))
	return nil
}

// insertPayload собирает столбцы INSERT: базовые, логин и email,
// учётные данные и индекс логина — только существующие в схеме.
func (s *AccountService) insertPayload(base repository.Fields, creds *credentials.Credentials) repository.Fields {
	fields := make(repository.Fields, 0, len(base)+9)
	fields = append(fields, base...)
	fields = append(fields,
		repository.Field{Column: "username", Value: creds.Username},
		repository.Field{Column: "email", Value: creds.Email},
	)

	optional := repository.Fields{
		{Column: ColumnPasswordHash, Value: creds.PasswordHash},
		// Устаревший столбец password получает тот же хэш, не пароль.
		{Column: ColumnPasswordLegacy, Value: creds.PasswordHash},
		{Column: ColumnInitialPassword, Value: creds.Password},
	}
	for _, f := range optional {
		if s.catalog.Has(f.Column) {
			fields = append(fields, f)
		} else {
			s.warner.warn(f.Column, "Столбец учётных данных отсутствует в схеме, значение не сохраняется")
		}
	}

	return s.attachLoginIndex(fields, loginindex.Build(creds.Username, creds.Email))
}

// attachLoginIndex добавляет столбцы индекса логина, существующие в схеме.
func (s *AccountService) attachLoginIndex(fields repository.Fields, idx loginindex.Index) repository.Fields {
	values := idx.Values()
	for _, col := range loginindex.Columns() {
		if s.catalog.Has(col) {
			fields = append(fields, repository.Field{Column: col, Value: values[col]})
		} else {
			s.warner.warn(col, "Столбец индекса логина отсутствует в схеме, индекс не сохраняется")
		}
	}
	return fields
}

// dropVanishedColumns перечитывает каталог после ошибки undefined_column
// и убирает из набора столбцы, которых больше нет. Если убирать нечего,
// возвращается исходная ошибка.
func (s *AccountService) dropVanishedColumns(ctx context.Context, fields repository.Fields, cause error) (repository.Fields, error) {
	if err := s.catalog.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("обновление каталога столбцов: %w", err)
	}

	var vanished []string
	for _, col := range fields.Columns() {
		if !s.catalog.Has(col) {
			vanished = append(vanished, col)
		}
	}
	if len(vanished) == 0 {
		return nil, cause
	}

	for _, col := range vanished {
		columnsDroppedTotal.WithLabelValues(col).Inc()
		s.warner.warn(col, "Столбец исчез из схемы, запрос повторяется без него")
	}
	return fields.Without(vanished...), nil
}

// conflictError ищет запись, занявшую логин или email, и сообщает её состояние.
func (s *AccountService) conflictError(ctx context.Context, username, email string, cause error) error {
	field, value := "username", username
	var ce *repository.ConstraintError
	if errors.As(cause, &ce) && strings.Contains(ce.Constraint, "email") {
		field, value = "email", email
	}

	lookupUsername, lookupEmail := username, email
	if ce != nil && ce.Constraint != "" {
		// Ищем только по полю, на котором сработало ограничение.
		if field == "email" {
			lookupUsername = ""
		} else {
			lookupEmail = ""
		}
	}

	result := &ConflictError{Field: field, Value: value, Err: cause}
	existing, err := s.accounts.FindByLogin(ctx, lookupUsername, lookupEmail)
	switch {
	case err == nil:
		result.Found = true
		result.Active = existing.Active
		if ce == nil || ce.Constraint == "" {
			if existing.Username != username && existing.Email == email {
				result.Field, result.Value = "email", email
			}
		}
	case errors.Is(err, repository.ErrNotFound):
		// Запись успели удалить — сообщаем о конфликте без состояния.
	default:
		return fmt.Errorf("поиск конфликтующей учётной записи: %w", err)
	}

	s.logger.Info("Конфликт логина при сохранении учётной записи",
		slog.String("field", result.Field),
		slog.String("value", result.Value),
		slog.Bool("existing_active", result.Active),
	)
	return result
}

// constraintError переводит нарушение CHECK-ограничения в понятное сообщение.
func constraintError(err error, role string) error {
	var ce *repository.ConstraintError
	if !errors.As(err, &ce) {
		return &ConstraintError{Message: err.Error(), Err: err}
	}

	result := &ConstraintError{Constraint: ce.Constraint, Err: err}
	switch ce.Constraint {
	case constraintBranchRequired:
		result.Message = fmt.Sprintf("El rol %s requiere una sucursal; solo %s puede registrarse sin sucursal",
			role, model.RolePromoter)
	case constraintRoleAllowed:
		result.Message = fmt.Sprintf("Rol no permitido: %s. Roles válidos: %s",
			role, strings.Join(model.Roles(), ", "))
	default:
		result.Message = ce.Message
	}
	return result
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// --- Однократные предупреждения ---

// columnWarner пишет предупреждение об отсутствующем столбце один раз на процесс.
type columnWarner struct {
	mu     sync.Mutex
	seen   map[string]bool
	logger *slog.Logger
}

func newColumnWarner(logger *slog.Logger) *columnWarner {
	return &columnWarner{seen: make(map[string]bool), logger: logger}
}

// warn возвращает true, если предупреждение было записано.
func (w *columnWarner) warn(column, message string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen[column] {
		return false
	}
	w.seen[column] = true
	w.logger.Warn(message, slog.String("column", column))
	return true
}
