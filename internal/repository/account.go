package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/fenix/people-module/internal/domain/branch"
	"github.com/bigkaa/fenix/people-module/internal/domain/model"
)

// PeopleTable — таблица учётных записей операторов.
const PeopleTable = "people"

// AccountFilter — фильтры выборки справочника операторов.
type AccountFilter struct {
	// Search — подстрока в full_name, username, email, local, phone (без учёта регистра)
	Search string
	// Role — точное совпадение fenix_role
	Role string
	// Active — фильтр по активности
	Active *bool
	// Branch — фильтр по точке
	Branch branch.Filter
}

// AccountRepository — доступ к таблице people.
type AccountRepository interface {
	// Insert выполняет один INSERT с указанными столбцами.
	Insert(ctx context.Context, fields Fields) (*model.Account, error)
	// FindByLogin возвращает запись, у которой совпадает username или email.
	FindByLogin(ctx context.Context, username, email string) (*model.Account, error)
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, id string) (*model.Account, error)
	// Update обновляет указанные столбцы одной записи.
	Update(ctx context.Context, id string, fields Fields) (*model.Account, error)
	// Delete удаляет запись.
	Delete(ctx context.Context, id string) error
	// List возвращает страницу записей, новые первыми.
	List(ctx context.Context, filter AccountFilter, limit, offset int) ([]*model.Account, error)
	// Count возвращает количество записей под фильтром.
	Count(ctx context.Context, filter AccountFilter) (int, error)
}

type accountRepo struct {
	db DBTX
}

// NewAccountRepository создаёт репозиторий учётных записей.
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepo{db: db}
}

// id и site_id читаются как text, чтобы сканироваться в string.
const accountColumns = `id::text, full_name, fenix_role, privilege_level, username, email,
	active, site_id::text, local, phone, vehicle_type, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	a := &model.Account{}
	var role *string
	err := row.Scan(
		&a.ID, &a.FullName, &role, &a.PrivilegeLevel, &a.Username, &a.Email,
		&a.Active, &a.SiteID, &a.Local, &a.Phone, &a.VehicleType, &a.CreatedAt,
	)
	if role != nil {
		a.Role = *role
	}
	return a, err
}

func (r *accountRepo) Insert(ctx context.Context, fields Fields) (*model.Account, error) {
	if len(fields) == 0 {
		return nil, errors.New("ошибка создания учётной записи: пустой набор столбцов")
	}

	cols := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = pgx.Identifier{f.Column}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = f.Value
	}

	query := fmt.Sprintf(`
		INSERT INTO people (%s)
		VALUES (%s)
		RETURNING %s`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), accountColumns)

	a, err := scanAccount(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания учётной записи: %w", classifyError(err))
	}
	return a, nil
}

func (r *accountRepo) FindByLogin(ctx context.Context, username, email string) (*model.Account, error) {
	// Совпадение по username важнее совпадения по email.
	query := fmt.Sprintf(`
		SELECT %s FROM people
		WHERE username = $1 OR email = $2
		ORDER BY (username = $1) DESC
		LIMIT 1`, accountColumns)

	a, err := scanAccount(r.db.QueryRow(ctx, query, username, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска учётной записи по логину: %w", err)
	}
	return a, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM people WHERE id::text = $1`, accountColumns)
	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения учётной записи: %w", err)
	}
	return a, nil
}

func (r *accountRepo) Update(ctx context.Context, id string, fields Fields) (*model.Account, error) {
	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}

	sets := make([]string, len(fields))
	args := make([]any, 0, len(fields)+1)
	args = append(args, id)
	for i, f := range fields {
		sets[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{f.Column}.Sanitize(), i+2)
		args = append(args, f.Value)
	}

	query := fmt.Sprintf(`
		UPDATE people
		SET %s
		WHERE id::text = $1
		RETURNING %s`, strings.Join(sets, ", "), accountColumns)

	a, err := scanAccount(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления учётной записи: %w", classifyError(err))
	}
	return a, nil
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM people WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления учётной записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepo) List(ctx context.Context, filter AccountFilter, limit, offset int) ([]*model.Account, error) {
	where, args := buildAccountWhere(filter, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM people
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, accountColumns, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка учётных записей: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Account, 0, limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования учётной записи: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *accountRepo) Count(ctx context.Context, filter AccountFilter) (int, error) {
	where, args := buildAccountWhere(filter, 1)

	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM people "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта учётных записей: %w", err)
	}
	return count, nil
}

// buildAccountWhere строит WHERE для List и Count.
// startArg — номер первого плейсхолдера.
func buildAccountWhere(filter AccountFilter, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if q := strings.TrimSpace(filter.Search); q != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(full_name ILIKE $%[1]d OR username ILIKE $%[1]d OR email ILIKE $%[1]d OR local ILIKE $%[1]d OR phone ILIKE $%[1]d)",
			argNum))
		args = append(args, "%"+escapeLike(q)+"%")
		argNum++
	}

	if role := strings.TrimSpace(filter.Role); role != "" {
		conditions = append(conditions, fmt.Sprintf("fenix_role = $%d", argNum))
		args = append(args, role)
		argNum++
	}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argNum))
		args = append(args, *filter.Active)
		argNum++
	}

	switch filter.Branch.Kind {
	case branch.FilterSite:
		conditions = append(conditions, fmt.Sprintf(
			"site_id::text = $%d AND (fenix_role IS NULL OR fenix_role NOT ILIKE $%d)",
			argNum, argNum+1))
		args = append(args, branch.Canonical(filter.Branch.Value), escapeLike(branch.PromoterRolePrefix)+"%")
		argNum += 2
	case branch.FilterLocal:
		conditions = append(conditions, fmt.Sprintf("local ILIKE $%d", argNum))
		args = append(args, "%"+escapeLike(filter.Branch.Value)+"%")
		argNum++
	case branch.FilterUnassigned:
		conditions = append(conditions, "site_id IS NULL AND local IS NULL")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
