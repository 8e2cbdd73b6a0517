// users.go — обработчики /endpoints/users.
// Справочник операторов: список, создание, изменение логина и активности, удаление.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/fenix/people-module/internal/api/errors"
	"github.com/bigkaa/fenix/people-module/internal/domain/model"
	"github.com/bigkaa/fenix/people-module/internal/repository"
	"github.com/bigkaa/fenix/people-module/internal/service"
)

// createUserRequest — тело POST /endpoints/users.
type createUserRequest struct {
	FullName       string  `json:"full_name"`
	Role           string  `json:"fenix_role"`
	Email          string  `json:"email"`
	Username       string  `json:"username"`
	Password       string  `json:"password"`
	PrivilegeLevel *int    `json:"privilege_level"`
	SiteID         string  `json:"site_id"`
	BranchID       string  `json:"branch_id"`
	BranchLabel    string  `json:"branch_label"`
	Local          string  `json:"local"`
	Phone          *string `json:"phone"`
	VehicleType    *string `json:"vehicle_type"`
}

// updateUserRequest — тело PATCH /endpoints/users/{id}.
type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Active   *bool   `json:"active"`
}

type accountResponse struct {
	OK   bool           `json:"ok"`
	Data *model.Account `json:"data,omitempty"`
}

type accountListResponse struct {
	OK       bool             `json:"ok"`
	Data     []*model.Account `json:"data"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int              `json:"total"`
}

// ListUsers — GET /endpoints/users?q=&role=&branch=&active=&page=&pageSize=.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var in service.ListInput
	query := r.URL.Query()

	bindings := []struct {
		name string
		dest any
	}{
		{"q", &in.Query},
		{"role", &in.Role},
		{"branch", &in.Branch},
		{"active", &in.Active},
		{"page", &in.Page},
		{"pageSize", &in.PageSize},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			apierrors.ValidationError(w, "Parámetro inválido "+b.name+": "+err.Error())
			return
		}
	}

	result, err := h.directory.List(r.Context(), in)
	if err != nil {
		h.logger.Error("Ошибка получения справочника операторов",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, rawMessage(err))
		return
	}

	data := result.Data
	if data == nil {
		data = []*model.Account{}
	}
	writeJSON(w, http.StatusOK, accountListResponse{
		OK:       true,
		Data:     data,
		Page:     result.Page,
		PageSize: result.PageSize,
		Total:    result.Total,
	})
}

// CreateUser — POST /endpoints/users.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "JSON inválido: "+err.Error())
		return
	}

	account, err := h.accounts.Create(r.Context(), service.CreateInput{
		FullName:       req.FullName,
		Role:           req.Role,
		PrivilegeLevel: req.PrivilegeLevel,
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		SiteID:         req.SiteID,
		BranchID:       req.BranchID,
		BranchLabel:    req.BranchLabel,
		Local:          req.Local,
		Phone:          req.Phone,
		VehicleType:    req.VehicleType,
	})
	if err != nil {
		h.writeServiceError(w, "Ошибка создания учётной записи", err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{OK: true, Data: account})
}

// UpdateUser — PATCH /endpoints/users/{id}.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "JSON inválido: "+err.Error())
		return
	}
	if req.Username == nil && req.Email == nil && req.Active == nil {
		apierrors.ValidationError(w, "Debe indicar username, email o active")
		return
	}

	account, err := h.accounts.UpdateLogin(r.Context(), id, service.UpdateLoginInput{
		Username: req.Username,
		Email:    req.Email,
		Active:   req.Active,
	})
	if err != nil {
		h.writeServiceError(w, "Ошибка обновления учётной записи", err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{OK: true, Data: account})
}

// DeleteUser — DELETE /endpoints/users/{id}.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.accounts.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "Ошибка удаления учётной записи", err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{OK: true})
}

// writeServiceError выбирает статус по типу ошибки сервисного слоя.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, logMsg string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Usuario no encontrado")
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrConstraint):
		h.logger.Warn(logMsg, slog.String("error", err.Error()))
		apierrors.ConstraintViolation(w, err.Error())
	case errors.Is(err, service.ErrAttemptsExhausted):
		h.logger.Error(logMsg, slog.String("error", err.Error()))
		apierrors.InternalError(w, "No se pudo generar un usuario único: "+rawMessage(err))
	default:
		h.logger.Error(logMsg, slog.String("error", err.Error()))
		apierrors.InternalError(w, rawMessage(err))
	}
}

// rawMessage — исходный текст ошибки: сообщение PostgreSQL, если оно есть.
func rawMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	var ce *repository.ConstraintError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
