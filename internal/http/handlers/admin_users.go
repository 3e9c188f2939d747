package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/promptpilot/server/internal/admin"
	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/middleware"
)

type adminUserDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Picture    string    `json:"picture,omitempty"`
	Role       string    `json:"role"`
	Roles      []string  `json:"roles"`
	Status     string    `json:"status"`
	LastActive string    `json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func newAdminUserDTO(u domain.AdminUser) adminUserDTO {
	return adminUserDTO{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Picture:    u.Picture,
		Role:       string(u.EffectiveRole),
		Roles:      roleStrings(u.Roles),
		Status:     u.Status(),
		LastActive: u.LastActive,
		CreatedAt:  u.CreatedAt,
	}
}

// AdminUsersList returns the filtered user list. Filters compose with AND;
// all of them are optional.
func (a *App) AdminUsersList(w http.ResponseWriter, r *http.Request) {
	filter := domain.UserFilter{
		Query:  r.URL.Query().Get("q"),
		Role:   r.URL.Query().Get("role"),
		Status: r.URL.Query().Get("status"),
	}
	locale := middleware.LocaleFromContext(r.Context())

	users, err := a.Admin.ListUsers(r.Context(), filter, locale)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list users failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list users")
		return
	}

	out := make([]adminUserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, newAdminUserDTO(u))
	}
	a.json(w, http.StatusOK, map[string]any{"users": out, "total": len(out)})
}

type adminUserUpdateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *App) AdminUserUpdate(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	var req adminUserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	updated, err := a.Admin.UpdateUser(r.Context(), a.currentUserID(r), targetID, admin.UpdateUserInput{
		Name:  req.Name,
		Email: req.Email,
	})
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "validation", "name and a valid email are required")
		return
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "user not found")
		return
	case err != nil:
		a.Logger.Error().Err(err).Msg("update user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to update user")
		return
	}

	a.json(w, http.StatusOK, map[string]any{"user": map[string]any{
		"id":    updated.ID,
		"name":  updated.Name,
		"email": updated.Email,
	}})
}

func (a *App) AdminUserDelete(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	err := a.Admin.DeleteUser(r.Context(), a.currentUserID(r), targetID)
	switch {
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "only a superadmin can delete a superadmin")
		return
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "user not found")
		return
	case errors.Is(err, domain.ErrDeleteInFlight):
		a.error(w, http.StatusConflict, "conflict", "delete already in progress")
		return
	case err != nil:
		a.Logger.Error().Err(err).Msg("delete user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete user")
		return
	}

	a.json(w, http.StatusOK, map[string]bool{"deleted": true})
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// AdminUsersBulkDelete deletes the listed users one at a time and reports a
// per-target outcome; one failing target never aborts the rest.
func (a *App) AdminUsersBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "ids required")
		return
	}

	result, err := a.Admin.BulkDelete(r.Context(), a.currentUserID(r), req.IDs)
	if err != nil {
		a.Logger.Error().Err(err).Msg("bulk delete failed")
		a.error(w, http.StatusInternalServerError, "internal", "bulk delete failed")
		return
	}
	a.json(w, http.StatusOK, result)
}

func (a *App) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Admin.Stats(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("stats failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, stats)
}
